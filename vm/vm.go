// Package vm implements Eva's stack machine: a value stack, a call stack of
// Frames, a shared Globals table, and a fetch-decode-execute loop over one
// CodeObject at a time.
package vm

import (
	"encoding/binary"
	"fmt"

	"eva/compiler"
	"eva/runtime"
)

// VM executes compiled Eva bytecode.
type VM struct {
	stack stack

	ip    int
	bp    int
	fn    *runtime.Function
	cells []*runtime.Cell

	frames []*Frame

	globals *runtime.Globals
}

// New creates a VM sharing globals with whatever Compiler produced the
// bytecode it will run; natives/constants registered on globals before
// Exec are callable from the program.
func New(globals *runtime.Globals) *VM {
	return &VM{globals: globals}
}

// Exec runs a "main" CodeObject (as produced by compiler.Compile) to
// completion and returns whatever value was left on top of the stack.
func (vm *VM) Exec(code *runtime.CodeObject) (runtime.Value, error) {
	vm.fn = &runtime.Function{Code: code}
	vm.cells = make([]*runtime.Cell, len(code.CellNames))
	for i := range vm.cells {
		vm.cells[i] = &runtime.Cell{}
	}
	vm.ip = 0
	vm.bp = 0
	vm.stack.sp = 0
	vm.frames = nil

	if err := vm.run(); err != nil {
		return runtime.Value{}, err
	}
	if vm.stack.sp == 0 {
		return runtime.Value{}, nil
	}
	return vm.stack.top(), nil
}

func (vm *VM) run() error {
	for {
		ins := vm.fn.Code.Instructions
		if vm.ip >= len(ins) {
			return RuntimeError{Message: "fell off the end of the instruction stream"}
		}
		op := compiler.Opcode(ins[vm.ip])
		vm.ip++

		switch op {
		case compiler.HALT:
			return nil

		case compiler.CONST:
			idx := vm.readByte()
			if err := vm.stack.push(vm.fn.Code.Constants[idx]); err != nil {
				return err
			}

		case compiler.ADD:
			if err := vm.binaryAdd(); err != nil {
				return err
			}
		case compiler.SUB:
			if err := vm.binaryNumeric(op); err != nil {
				return err
			}
		case compiler.MUL:
			if err := vm.binaryNumeric(op); err != nil {
				return err
			}
		case compiler.DIV:
			if err := vm.binaryNumeric(op); err != nil {
				return err
			}

		case compiler.COMPARE:
			mode := vm.readByte()
			if err := vm.compare(byte(mode)); err != nil {
				return err
			}

		case compiler.JMP_IF_FALSE:
			addr := vm.readUint16()
			v, err := vm.stack.pop()
			if err != nil {
				return err
			}
			if !v.Truthy() {
				vm.ip = addr
			}

		case compiler.JMP:
			addr := vm.readUint16()
			vm.ip = addr

		case compiler.GET_GLOBAL:
			idx := vm.readByte()
			if err := vm.stack.push(vm.globals.Get(idx)); err != nil {
				return err
			}

		case compiler.SET_GLOBAL:
			idx := vm.readByte()
			v, err := vm.stack.peek(0)
			if err != nil {
				return err
			}
			vm.globals.Set(idx, v)

		case compiler.POP:
			if _, err := vm.stack.pop(); err != nil {
				return err
			}

		case compiler.GET_LOCAL:
			slot := vm.readByte()
			if err := vm.stack.push(vm.stack.values[vm.bp+slot]); err != nil {
				return err
			}

		case compiler.SET_LOCAL:
			slot := vm.readByte()
			v, err := vm.stack.peek(0)
			if err != nil {
				return err
			}
			vm.stack.values[vm.bp+slot] = v

		case compiler.SCOPE_EXIT:
			n := vm.readByte()
			result, err := vm.stack.pop()
			if err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				if _, err := vm.stack.pop(); err != nil {
					return err
				}
			}
			if err := vm.stack.push(result); err != nil {
				return err
			}

		case compiler.CALL:
			argc := vm.readByte()
			if err := vm.call(argc); err != nil {
				return err
			}

		case compiler.RETURN:
			if err := vm.doReturn(); err != nil {
				return err
			}

		case compiler.GET_CELL:
			idx := vm.readByte()
			if err := vm.stack.push(vm.cells[idx].Value); err != nil {
				return err
			}

		case compiler.SET_CELL:
			idx := vm.readByte()
			v, err := vm.stack.peek(0)
			if err != nil {
				return err
			}
			vm.cells[idx].Value = v

		case compiler.LOAD_CELL:
			idx := vm.readByte()
			if err := vm.stack.push(runtime.Obj(vm.cells[idx])); err != nil {
				return err
			}

		case compiler.MAKE_FUNCTION:
			freeCount := vm.readByte()
			if err := vm.makeFunction(freeCount); err != nil {
				return err
			}

		default:
			return RuntimeError{Message: fmt.Sprintf("unknown opcode %d at ip %d", op, vm.ip-1)}
		}
	}
}

func (vm *VM) readByte() int {
	b := vm.fn.Code.Instructions[vm.ip]
	vm.ip++
	return int(b)
}

func (vm *VM) readUint16() int {
	v := binary.BigEndian.Uint16(vm.fn.Code.Instructions[vm.ip:])
	vm.ip += 2
	return int(v)
}

func (vm *VM) binaryAdd() error {
	b, err := vm.stack.pop()
	if err != nil {
		return err
	}
	a, err := vm.stack.pop()
	if err != nil {
		return err
	}

	if a.Kind == runtime.KindNumber && b.Kind == runtime.KindNumber {
		return vm.stack.push(runtime.Num(a.Number + b.Number))
	}
	as, aOK := asString(a)
	bs, bOK := asString(b)
	if aOK && bOK {
		return vm.stack.push(runtime.Obj(&runtime.String{Value: as + bs}))
	}
	return RuntimeError{Message: "ADD requires two numbers or two strings"}
}

func asString(v runtime.Value) (string, bool) {
	if v.Kind != runtime.KindObject {
		return "", false
	}
	s, ok := v.Obj.(*runtime.String)
	if !ok {
		return "", false
	}
	return s.Value, true
}

func (vm *VM) binaryNumeric(op compiler.Opcode) error {
	b, err := vm.stack.pop()
	if err != nil {
		return err
	}
	a, err := vm.stack.pop()
	if err != nil {
		return err
	}
	if a.Kind != runtime.KindNumber || b.Kind != runtime.KindNumber {
		return RuntimeError{Message: "arithmetic requires two numbers"}
	}
	var result float64
	switch op {
	case compiler.SUB:
		result = a.Number - b.Number
	case compiler.MUL:
		result = a.Number * b.Number
	case compiler.DIV:
		if b.Number == 0 {
			return RuntimeError{Message: "division by zero"}
		}
		result = a.Number / b.Number
	}
	return vm.stack.push(runtime.Num(result))
}

func (vm *VM) compare(mode byte) error {
	b, err := vm.stack.pop()
	if err != nil {
		return err
	}
	a, err := vm.stack.pop()
	if err != nil {
		return err
	}

	var result bool
	switch mode {
	case compiler.CmpEQ:
		result = valuesEqual(a, b)
	case compiler.CmpNEQ:
		result = !valuesEqual(a, b)
	default:
		if a.Kind != runtime.KindNumber || b.Kind != runtime.KindNumber {
			return RuntimeError{Message: "relational comparison requires two numbers"}
		}
		switch mode {
		case compiler.CmpLT:
			result = a.Number < b.Number
		case compiler.CmpLTE:
			result = a.Number <= b.Number
		case compiler.CmpGT:
			result = a.Number > b.Number
		case compiler.CmpGTE:
			result = a.Number >= b.Number
		}
	}
	return vm.stack.push(runtime.Bool(result))
}

func valuesEqual(a, b runtime.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case runtime.KindNumber:
		return a.Number == b.Number
	case runtime.KindBoolean:
		return a.Boolean == b.Boolean
	case runtime.KindObject:
		as, aOK := asString(a)
		bs, bOK := asString(b)
		if aOK && bOK {
			return as == bs
		}
		return a.Obj == b.Obj
	}
	return false
}

// call implements CALL <argc>: the callee sits argc slots below the current
// top; a Native is invoked directly and its result replaces the callee +
// argument window, a Function pushes a new Frame and transfers control.
func (vm *VM) call(argc int) error {
	callee, err := vm.stack.peek(argc)
	if err != nil {
		return err
	}
	if callee.Kind != runtime.KindObject {
		return RuntimeError{Message: "attempt to call a non-function value"}
	}

	base := vm.stack.sp - argc - 1
	switch fn := callee.Obj.(type) {
	case *runtime.Native:
		args := make([]runtime.Value, argc)
		copy(args, vm.stack.values[base+1:vm.stack.sp])
		result, err := fn.Fn(args)
		if err != nil {
			return err
		}
		vm.stack.sp = base
		return vm.stack.push(result)

	case *runtime.Function:
		if argc != fn.Code.Arity {
			return RuntimeError{Message: fmt.Sprintf("%s expects %d arguments, got %d", fn.Code.Name, fn.Code.Arity, argc)}
		}
		vm.frames = append(vm.frames, &Frame{
			returnIP: vm.ip,
			bp:       vm.bp,
			fn:       vm.fn,
			cells:    vm.cells,
		})

		cells := make([]*runtime.Cell, len(fn.Code.CellNames))
		copy(cells, fn.Cells)
		for i := fn.Code.FreeCount; i < len(cells); i++ {
			cells[i] = &runtime.Cell{}
		}

		vm.fn = fn
		vm.cells = cells
		vm.bp = base
		vm.ip = 0
		return nil

	default:
		return RuntimeError{Message: "attempt to call a non-function value"}
	}
}

func (vm *VM) doReturn() error {
	if len(vm.frames) == 0 {
		return RuntimeError{Message: "RETURN with no active call frame"}
	}
	frame := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.ip = frame.returnIP
	vm.bp = frame.bp
	vm.fn = frame.fn
	vm.cells = frame.cells
	return nil
}

// makeFunction implements MAKE_FUNCTION <freeCount>: the stack holds the
// CodeObject constant with freeCount cell references stacked above it (the
// last free name pushed sits on top), in the order the compiler emitted
// LOAD_CELL for the function's free-prefix.
func (vm *VM) makeFunction(freeCount int) error {
	cells := make([]*runtime.Cell, freeCount)
	for i := freeCount - 1; i >= 0; i-- {
		v, err := vm.stack.pop()
		if err != nil {
			return err
		}
		cell, ok := v.Obj.(*runtime.Cell)
		if !ok {
			return RuntimeError{Message: "MAKE_FUNCTION expected a cell reference"}
		}
		cells[i] = cell
	}
	codeVal, err := vm.stack.pop()
	if err != nil {
		return err
	}
	code, ok := codeVal.Obj.(*runtime.CodeObject)
	if !ok {
		return RuntimeError{Message: "MAKE_FUNCTION expected a CodeObject constant"}
	}
	return vm.stack.push(runtime.Obj(&runtime.Function{Code: code, Cells: cells}))
}
