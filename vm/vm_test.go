package vm

import (
	"testing"

	"eva/compiler"
	"eva/lexer"
	"eva/parser"
	"eva/runtime"
)

// run lexes, parses, compiles, and executes source against a fresh VM,
// mirroring the host API's exec(program) contract: the program is treated
// as a sequence of top-level forms implicitly wrapped in one `begin`.
func run(t *testing.T, source string) runtime.Value {
	t.Helper()

	tokens, err := lexer.New(source).Scan()
	if err != nil {
		t.Fatalf("lexer error: %v", err)
	}
	forms, errs := parser.Make(tokens).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	globals := runtime.NewGlobals()
	comp := compiler.New(globals)
	code, err := comp.Compile(forms)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	vm := New(globals)
	result, err := vm.Exec(code)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return result
}

func wantNumber(t *testing.T, v runtime.Value, want float64) {
	t.Helper()
	if v.Kind != runtime.KindNumber || v.Number != want {
		t.Fatalf("got %v, want Number(%v)", v, want)
	}
}

func wantString(t *testing.T, v runtime.Value, want string) {
	t.Helper()
	if v.Kind != runtime.KindObject {
		t.Fatalf("got %v, want String(%q)", v, want)
	}
	s, ok := v.Obj.(*runtime.String)
	if !ok || s.Value != want {
		t.Fatalf("got %v, want String(%q)", v, want)
	}
}

func TestArithmetic(t *testing.T) {
	wantNumber(t, run(t, `(+ 2 (* 3 4))`), 14)
}

func TestStringVar(t *testing.T) {
	wantString(t, run(t, `(var x "foo") x`), "foo")
}

func TestBeginBlockScoping(t *testing.T) {
	wantNumber(t, run(t, `(begin (var a 10) (var b 20) (+ a b))`), 30)
}

func TestFunctionCall(t *testing.T) {
	wantNumber(t, run(t, `(def square (x) (* x x)) (square 3)`), 9)
}

func TestWhileLoop(t *testing.T) {
	src := `(var i 0) (var count 0)
	        (while (< i 10) (begin (set i (+ i 1)) (set count (+ count 1))))
	        count`
	wantNumber(t, run(t, src), 10)
}

func TestRecursiveFactorial(t *testing.T) {
	src := `(def factorial (x) (if (== x 1) 1 (* x (factorial (- x 1))))) (factorial 5)`
	wantNumber(t, run(t, src), 120)
}

// TestClosureCellSharing is scenario 7: y and z, declared in nested begin
// blocks inside the top-level program, are captured by bar (itself declared
// two begin-levels deep) and must be promoted to cells rather than locals —
// this is the scenario that exercises incremental cellNames growth for
// var/def declarations nested below a function's own scope.
func TestClosureCellSharing(t *testing.T) {
	src := `(var x 10)
	        (def foo () x)
	        (begin
	          (var y 100)
	          (var q 7)
	          q
	          (+ y x)
	          (begin
	            (var z 200)
	            z
	            (def bar () (+ y z))
	            (bar)))`
	wantNumber(t, run(t, src), 300)
}

// TestSetGlobalInNonTailPositionDoesNotUnderflow guards against a stack-
// discipline regression: `set` on a global must leave its value on the
// stack like SET_LOCAL/SET_CELL do, so a non-last `(set <global> ...)`
// inside a begin is only popped once by compileBody, not twice.
func TestSetGlobalInNonTailPositionDoesNotUnderflow(t *testing.T) {
	src := `(var i 0) (var count 0)
	        (begin (set i (+ i 1)) (set count (+ count 1)))
	        count`
	wantNumber(t, run(t, src), 1)
}

func TestIfWithoutAlternatePushesFalse(t *testing.T) {
	v := run(t, `(if false 1)`)
	if v.Kind != runtime.KindBoolean || v.Boolean != false {
		t.Fatalf("got %v, want Boolean(false)", v)
	}
}

func TestVarBoundLambdaUpdatesGlobal(t *testing.T) {
	src := `(var counter 0)
	        (var bump (lambda () (begin (set counter (+ counter 1)) counter)))
	        (bump) (bump) (bump)`
	wantNumber(t, run(t, src), 3)
}

func TestNativeFunctionCallAndStackCleanup(t *testing.T) {
	globals := runtime.NewGlobals()
	globals.RegisterNative("double", func(args []runtime.Value) (runtime.Value, error) {
		return runtime.Num(args[0].Number * 2), nil
	})

	tokens, err := lexer.New(`(+ 1 (double 10))`).Scan()
	if err != nil {
		t.Fatalf("lexer error: %v", err)
	}
	forms, errs := parser.Make(tokens).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	comp := compiler.New(globals)
	code, err := comp.Compile(forms)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	vm := New(globals)
	result, err := vm.Exec(code)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	wantNumber(t, result, 21)
}

func TestUndefinedGlobalIsReferenceError(t *testing.T) {
	tokens, _ := lexer.New(`(set nope 1)`).Scan()
	forms, _ := parser.Make(tokens).Parse()
	globals := runtime.NewGlobals()
	comp := compiler.New(globals)
	if _, err := comp.Compile(forms); err == nil {
		t.Fatal("expected a compile error for an undefined global set")
	}
}

func TestStackOverflowIsFatal(t *testing.T) {
	var s stack
	var pushErr error
	for i := 0; i < StackSize+1; i++ {
		if err := s.push(runtime.Num(1)); err != nil {
			pushErr = err
			break
		}
	}
	if pushErr == nil {
		t.Fatal("expected a stack overflow error")
	}
}
