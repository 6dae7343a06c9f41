// Package compiler implements Eva's single-pass bytecode emitter. It runs a
// scope.Analyzer pre-pass over the program, then walks the same AST a
// second time, consulting the Scope each scope-introducing node produced to
// pick GET_LOCAL/GET_CELL/GET_GLOBAL (and their SET_* counterparts) for
// every symbol reference.
package compiler

import (
	"eva/ast"
	"eva/runtime"
	"eva/scope"
)

var arithOps = map[string]Opcode{"+": ADD, "-": SUB, "*": MUL, "/": DIV}

var compareOps = map[string]byte{
	"==": CmpEQ, "!=": CmpNEQ,
	"<": CmpLT, "<=": CmpLTE,
	">": CmpGT, ">=": CmpGTE,
}

type localVar struct {
	name       string
	slot       int
	scopeLevel int
}

// frame holds the compiler state private to one CodeObject: the in-progress
// instruction stream, its constant-pool dedup tables, and the compile-time
// locals stack used to assign stack slots and know what SCOPE_EXIT must pop.
type frame struct {
	code       *runtime.CodeObject
	sc         *scope.Scope
	locals     []localVar
	nextSlot   int
	scopeLevel int

	numConsts  map[float64]int
	strConsts  map[string]int
	boolConsts map[bool]int
}

func newFrame(name string, arity int, sc *scope.Scope) *frame {
	return &frame{
		code:       &runtime.CodeObject{Name: name, Arity: arity},
		sc:         sc,
		numConsts:  make(map[float64]int),
		strConsts:  make(map[string]int),
		boolConsts: make(map[bool]int),
	}
}

// Compiler turns a parsed program into a tree of runtime.CodeObjects.
type Compiler struct {
	analyzer    *scope.Analyzer
	globals     *runtime.Globals
	codeObjects []*runtime.CodeObject
	cur         *frame
	stack       []*frame
}

// New creates a Compiler. globals is the shared, process-level name table:
// natives and constants registered on it before Compile are visible to the
// program as GET_GLOBAL references; `var`/`def` at global scope extend it.
func New(globals *runtime.Globals) *Compiler {
	return &Compiler{globals: globals}
}

// CodeObjects returns every CodeObject emitted by the most recent Compile
// call (the "main" object first, then each function in compilation order),
// for the disassembler.
func (c *Compiler) CodeObjects() []*runtime.CodeObject {
	return c.codeObjects
}

// Compile analyzes and compiles a sequence of top-level forms, wrapping
// them in an implicit `begin`, and returns the "main" CodeObject.
func (c *Compiler) Compile(forms []ast.Node) (*runtime.CodeObject, error) {
	elems := make([]ast.Node, 0, len(forms)+1)
	elems = append(elems, ast.NewSymbol("begin", 0))
	elems = append(elems, forms...)
	program := ast.NewList(elems, 0)

	c.analyzer = scope.NewAnalyzer()
	if err := c.analyzer.Analyze(&program); err != nil {
		return nil, err
	}

	mainScope := c.analyzer.ScopeOf(&program)
	c.codeObjects = nil
	c.cur = newFrame("main", 0, mainScope)
	c.stack = nil
	c.codeObjects = append(c.codeObjects, c.cur.code)

	if err := c.compileBody(&program); err != nil {
		return nil, err
	}
	c.emit(HALT)
	c.cur.code.Instructions = []byte(c.cur.code.Instructions)
	return c.cur.code, nil
}

// compileBody compiles every form after elems[0] (the form's keyword head,
// e.g. "begin"), discarding every intermediate result with POP except the
// last one (the block's value) and declarations, whose own emission already
// leaves the stack balanced.
func (c *Compiler) compileBody(n *ast.Node) error {
	elems := n.Elements[1:]
	if len(elems) == 0 {
		c.emitConst(runtime.Bool(false))
		return nil
	}
	for i := range elems {
		form := &elems[i]
		if err := c.compileForm(form); err != nil {
			return err
		}
		if i != len(elems)-1 && !isDeclaration(form) {
			c.emit(POP)
		}
	}
	return nil
}

func isDeclaration(n *ast.Node) bool {
	return n.IsCall("var") || n.IsCall("def")
}

func (c *Compiler) compileForm(n *ast.Node) error {
	switch n.Kind {
	case ast.Number:
		c.emitConst(runtime.Num(n.NumberValue))
		return nil
	case ast.String:
		c.emitConst(runtime.Obj(&runtime.String{Value: n.StringValue}))
		return nil
	case ast.Symbol:
		return c.compileSymbol(n)
	case ast.List:
		return c.compileList(n)
	}
	return CompileError{Reason: "unrecognized AST node"}
}

func (c *Compiler) compileSymbol(n *ast.Node) error {
	if n.SymbolName == "true" {
		c.emitConst(runtime.Bool(true))
		return nil
	}
	if n.SymbolName == "false" {
		c.emitConst(runtime.Bool(false))
		return nil
	}

	alloc, ok := scope.Lookup(c.cur.sc, n.SymbolName)
	if !ok {
		return CompileError{Reason: "unresolved reference: " + n.SymbolName}
	}
	switch alloc {
	case scope.AllocLocal:
		slot, ok := c.resolveLocalSlot(n.SymbolName)
		if !ok {
			return CompileError{Reason: "local not found: " + n.SymbolName}
		}
		c.emit(GET_LOCAL, slot)
	case scope.AllocCell:
		idx, ok := indexOf(c.cur.code.CellNames, n.SymbolName)
		if !ok {
			return CompileError{Reason: "cell not found: " + n.SymbolName}
		}
		c.emit(GET_CELL, idx)
	case scope.AllocGlobal:
		idx, ok := c.globals.Lookup(n.SymbolName)
		if !ok {
			return CompileError{Reason: "undefined global: " + n.SymbolName}
		}
		c.emit(GET_GLOBAL, idx)
	}
	return nil
}

func (c *Compiler) compileList(n *ast.Node) error {
	if len(n.Elements) == 0 {
		return CompileError{Reason: "empty form"}
	}
	head := n.Elements[0]
	if head.Kind == ast.Symbol {
		switch head.SymbolName {
		case "begin":
			return c.compileBegin(n, false, 0)
		case "var":
			return c.compileVar(n)
		case "set":
			return c.compileSet(n)
		case "if":
			return c.compileIf(n)
		case "while":
			return c.compileWhile(n)
		case "def":
			return c.compileDef(n)
		case "lambda":
			return c.compileLambda(n, "")
		}
		if op, ok := arithOps[head.SymbolName]; ok {
			return c.compileArith(n, op)
		}
		if cmp, ok := compareOps[head.SymbolName]; ok {
			return c.compileCompare(n, cmp)
		}
	}
	return c.compileCall(n)
}

func (c *Compiler) compileArith(n *ast.Node, op Opcode) error {
	if err := c.compileForm(&n.Elements[1]); err != nil {
		return err
	}
	if err := c.compileForm(&n.Elements[2]); err != nil {
		return err
	}
	c.emit(op)
	return nil
}

func (c *Compiler) compileCompare(n *ast.Node, cmp byte) error {
	if err := c.compileForm(&n.Elements[1]); err != nil {
		return err
	}
	if err := c.compileForm(&n.Elements[2]); err != nil {
		return err
	}
	c.emit(COMPARE, int(cmp))
	return nil
}

// compileIf implements `(if test consequent [alternate])`. A missing
// alternate pushes Boolean(false) so the stack always balances to exactly
// one value regardless of which branch runs.
func (c *Compiler) compileIf(n *ast.Node) error {
	if err := c.compileForm(&n.Elements[1]); err != nil {
		return err
	}
	jmpIfFalse := c.emitJumpPlaceholder(JMP_IF_FALSE)

	if err := c.compileForm(&n.Elements[2]); err != nil {
		return err
	}
	jmpEnd := c.emitJumpPlaceholder(JMP)

	c.patchJump(jmpIfFalse, len(c.cur.code.Instructions))
	if len(n.Elements) > 3 {
		if err := c.compileForm(&n.Elements[3]); err != nil {
			return err
		}
	} else {
		c.emitConst(runtime.Bool(false))
	}
	c.patchJump(jmpEnd, len(c.cur.code.Instructions))
	return nil
}

// compileWhile implements `(while test body)`.
func (c *Compiler) compileWhile(n *ast.Node) error {
	loopStart := len(c.cur.code.Instructions)
	if err := c.compileForm(&n.Elements[1]); err != nil {
		return err
	}
	jmpIfFalse := c.emitJumpPlaceholder(JMP_IF_FALSE)

	if err := c.compileForm(&n.Elements[2]); err != nil {
		return err
	}
	c.emit(POP)
	c.emitJump(JMP, loopStart)

	c.patchJump(jmpIfFalse, len(c.cur.code.Instructions))
	c.emitConst(runtime.Bool(false))
	return nil
}

// compileVar implements `(var name initExpr)`.
func (c *Compiler) compileVar(n *ast.Node) error {
	name := n.Elements[1].SymbolName
	init := &n.Elements[2]

	if init.IsCall("lambda") {
		if err := c.compileLambda(init, name); err != nil {
			return err
		}
	} else if err := c.compileForm(init); err != nil {
		return err
	}

	alloc, _ := scope.Lookup(c.cur.sc, name)
	switch alloc {
	case scope.AllocGlobal:
		idx := c.globals.Define(name)
		c.emit(SET_GLOBAL, idx)
		c.emit(POP)
	case scope.AllocCell:
		idx := c.addOwnCell(name)
		c.emit(SET_CELL, idx)
		c.emit(POP)
	default: // AllocLocal: the initializer's value on the stack IS the slot.
		c.addLocal(name)
	}
	return nil
}

// compileSet implements `(set name value)`.
func (c *Compiler) compileSet(n *ast.Node) error {
	name := n.Elements[1].SymbolName
	if err := c.compileForm(&n.Elements[2]); err != nil {
		return err
	}

	alloc, ok := scope.Lookup(c.cur.sc, name)
	if !ok {
		return CompileError{Reason: "unresolved reference: " + name}
	}
	switch alloc {
	case scope.AllocLocal:
		slot, ok := c.resolveLocalSlot(name)
		if !ok {
			return CompileError{Reason: "local not found: " + name}
		}
		c.emit(SET_LOCAL, slot)
	case scope.AllocCell:
		idx, ok := indexOf(c.cur.code.CellNames, name)
		if !ok {
			return CompileError{Reason: "cell not found: " + name}
		}
		c.emit(SET_CELL, idx)
	case scope.AllocGlobal:
		idx, ok := c.globals.Lookup(name)
		if !ok {
			return CompileError{Reason: "undefined global: " + name}
		}
		c.emit(SET_GLOBAL, idx)
	}
	return nil
}

// compileBegin implements `(begin e1 … en)`. isFunctionBody/arity let a
// function whose body is directly a begin fold the callee-cleanup count
// into the same SCOPE_EXIT as the block's own locals.
func (c *Compiler) compileBegin(n *ast.Node, isFunctionBody bool, arity int) error {
	sc := c.analyzer.ScopeOf(n)
	prevScope := c.cur.sc
	c.cur.sc = sc
	c.cur.scopeLevel++
	level := c.cur.scopeLevel

	if err := c.compileBody(n); err != nil {
		return err
	}

	removed := 0
	for len(c.cur.locals) > 0 && c.cur.locals[len(c.cur.locals)-1].scopeLevel == level {
		c.cur.locals = c.cur.locals[:len(c.cur.locals)-1]
		removed++
	}

	exitCount := removed
	if isFunctionBody {
		exitCount += arity + 1
	}
	c.emit(SCOPE_EXIT, exitCount)

	c.cur.scopeLevel--
	c.cur.sc = prevScope
	return nil
}

// compileDef implements `(def name (params…) body)`: sugar for
// `(var name (lambda (params…) body))`, except the function's own name is
// additionally bound as a local slot 0 inside its own scope, enabling
// direct-local self-recursion instead of resolving the call through a
// cell or global.
func (c *Compiler) compileDef(n *ast.Node) error {
	name := n.Elements[1].SymbolName
	params := &n.Elements[2]
	body := &n.Elements[3]

	if err := c.compileFunctionBody(n, name, name, params, body); err != nil {
		return err
	}

	alloc, _ := scope.Lookup(c.cur.sc, name)
	switch alloc {
	case scope.AllocGlobal:
		idx := c.globals.Define(name)
		c.emit(SET_GLOBAL, idx)
		c.emit(POP)
	case scope.AllocCell:
		idx := c.addOwnCell(name)
		c.emit(SET_CELL, idx)
		c.emit(POP)
	default:
		c.addLocal(name)
	}
	return nil
}

// compileLambda implements `(lambda (params…) body)`. displayName, when
// non-empty, is cosmetic only (used so a `(var f (lambda ...))` shows up as
// "f" in disassembly) — it never binds a self-recursion slot.
func (c *Compiler) compileLambda(n *ast.Node, displayName string) error {
	params := &n.Elements[1]
	body := &n.Elements[2]
	name := displayName
	if name == "" {
		name = "lambda"
	}
	return c.compileFunctionBody(n, name, "", params, body)
}

// compileFunctionBody compiles a def/lambda's CodeObject: swaps in a fresh
// frame, wires up cellNames from the analyzer's free/cells sets, binds
// params (and the self-recursion slot for selfBindName, if the analyzer
// recorded one), compiles the body, and leaves the constructed Function on
// the enclosing frame's stack via CONST + MAKE_FUNCTION.
func (c *Compiler) compileFunctionBody(n *ast.Node, codeName, selfBindName string, params, body *ast.Node) error {
	fnScope := c.analyzer.ScopeOf(n)
	free := fnScope.FreeNames()
	cells := fnScope.Cells()
	cellNames := make([]string, 0, len(free)+len(cells))
	cellNames = append(cellNames, free...)
	cellNames = append(cellNames, cells...)

	next := newFrame(codeName, len(params.Elements), fnScope)
	next.code.CellNames = cellNames
	next.code.FreeCount = len(free)

	c.stack = append(c.stack, c.cur)
	c.cur = next
	c.codeObjects = append(c.codeObjects, next.code)

	if selfBindName != "" {
		if alloc, ok := scope.Lookup(fnScope, selfBindName); ok && alloc == scope.AllocLocal {
			c.addLocal(selfBindName)
		} else {
			c.reserveSlot()
		}
	} else {
		c.reserveSlot()
	}

	for i := range params.Elements {
		pname := params.Elements[i].SymbolName
		c.addLocal(pname)
		if alloc, _ := scope.Lookup(fnScope, pname); alloc == scope.AllocCell {
			idx, ok := indexOf(c.cur.code.CellNames, pname)
			if !ok {
				return CompileError{Reason: "cell not found: " + pname}
			}
			slot, _ := c.resolveLocalSlot(pname)
			c.emit(GET_LOCAL, slot)
			c.emit(SET_CELL, idx)
			c.emit(POP)
		}
	}

	arity := len(params.Elements)
	if body.IsCall("begin") {
		if err := c.compileBegin(body, true, arity); err != nil {
			return err
		}
	} else {
		if err := c.compileForm(body); err != nil {
			return err
		}
		c.emit(SCOPE_EXIT, arity+1)
	}
	c.emit(RETURN)

	compiled := c.cur.code
	freeNames := compiled.CellNames[:compiled.FreeCount]
	c.cur = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]

	// MAKE_FUNCTION pops its cell references off the top of the stack, so
	// the CodeObject constant is pushed first and the free-prefix cells
	// (resolved against the *enclosing* frame's own cellNames) after it.
	idx := c.addConstant(runtime.Obj(compiled))
	c.emit(CONST, idx)
	for _, name := range freeNames {
		cellIdx, ok := indexOf(c.cur.code.CellNames, name)
		if !ok {
			return CompileError{Reason: "free variable not threaded through enclosing scope: " + name}
		}
		c.emit(LOAD_CELL, cellIdx)
	}
	c.emit(MAKE_FUNCTION, compiled.FreeCount)
	return nil
}

// compileCall implements `(callee arg1 … argN)`.
func (c *Compiler) compileCall(n *ast.Node) error {
	if err := c.compileForm(&n.Elements[0]); err != nil {
		return err
	}
	for i := 1; i < len(n.Elements); i++ {
		if err := c.compileForm(&n.Elements[i]); err != nil {
			return err
		}
	}
	c.emit(CALL, len(n.Elements)-1)
	return nil
}

// --- locals/slots ---

func (c *Compiler) addLocal(name string) int {
	slot := c.cur.nextSlot
	c.cur.nextSlot++
	c.cur.locals = append(c.cur.locals, localVar{name: name, slot: slot, scopeLevel: c.cur.scopeLevel})
	return slot
}

func (c *Compiler) reserveSlot() int {
	slot := c.cur.nextSlot
	c.cur.nextSlot++
	return slot
}

// resolveLocalSlot finds the most recently declared local with this name
// (innermost shadowing wins).
func (c *Compiler) resolveLocalSlot(name string) (int, bool) {
	for i := len(c.cur.locals) - 1; i >= 0; i-- {
		if c.cur.locals[i].name == name {
			return c.cur.locals[i].slot, true
		}
	}
	return 0, false
}

func indexOf(names []string, name string) (int, bool) {
	for i, n := range names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// addOwnCell returns name's index in the current CodeObject's CellNames,
// appending it if this is the first time a cell owned by this function (as
// opposed to one of its free variables, already present from
// compileFunctionBody's initial population) is declared — a `var`/`def`
// nested inside a `begin` block only earns its cell slot once the scope
// analyzer has promoted it, which happens while that declaration itself is
// being compiled, not when the enclosing function's frame was opened.
func (c *Compiler) addOwnCell(name string) int {
	if idx, ok := indexOf(c.cur.code.CellNames, name); ok {
		return idx
	}
	idx := len(c.cur.code.CellNames)
	c.cur.code.CellNames = append(c.cur.code.CellNames, name)
	return idx
}

// --- emission ---

func (c *Compiler) emit(op Opcode, operands ...int) int {
	pos := len(c.cur.code.Instructions)
	c.cur.code.Instructions = append(c.cur.code.Instructions, Make(op, operands...)...)
	return pos
}

func (c *Compiler) emitJumpPlaceholder(op Opcode) int {
	return c.emit(op, 0)
}

func (c *Compiler) emitJump(op Opcode, target int) {
	c.emit(op, target)
}

// patchJump overwrites a previously emitted two-byte jump operand with
// target — the only form of mutation ever applied to already-emitted bytes.
func (c *Compiler) patchJump(pos int, target int) {
	ins := c.cur.code.Instructions
	ins[pos+1] = byte(target >> 8)
	ins[pos+2] = byte(target)
}

func (c *Compiler) emitConst(v runtime.Value) {
	idx := c.addConstant(v)
	c.emit(CONST, idx)
}

// addConstant appends v to the current CodeObject's constant pool, reusing
// an existing entry for numbers, strings, and booleans with the same value.
func (c *Compiler) addConstant(v runtime.Value) int {
	switch v.Kind {
	case runtime.KindNumber:
		if idx, ok := c.cur.numConsts[v.Number]; ok {
			return idx
		}
		idx := len(c.cur.code.Constants)
		c.cur.code.Constants = append(c.cur.code.Constants, v)
		c.cur.numConsts[v.Number] = idx
		return idx
	case runtime.KindBoolean:
		if idx, ok := c.cur.boolConsts[v.Boolean]; ok {
			return idx
		}
		idx := len(c.cur.code.Constants)
		c.cur.code.Constants = append(c.cur.code.Constants, v)
		c.cur.boolConsts[v.Boolean] = idx
		return idx
	case runtime.KindObject:
		if s, ok := v.Obj.(*runtime.String); ok {
			if idx, ok := c.cur.strConsts[s.Value]; ok {
				return idx
			}
			idx := len(c.cur.code.Constants)
			c.cur.code.Constants = append(c.cur.code.Constants, v)
			c.cur.strConsts[s.Value] = idx
			return idx
		}
	}
	idx := len(c.cur.code.Constants)
	c.cur.code.Constants = append(c.cur.code.Constants, v)
	return idx
}
