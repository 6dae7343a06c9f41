package natives

import (
	"testing"

	"eva/compiler"
	"eva/lexer"
	"eva/parser"
	"eva/runtime"
	"eva/vm"
)

// run mirrors vm_test.go's end-to-end helper: lex, parse, compile, execute
// against a Globals with the full native standard library registered.
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
	Register(globals)

	comp := compiler.New(globals)
	code, err := comp.Compile(forms)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}

	machine := vm.New(globals)
	result, err := machine.Exec(code)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return result
}

func wantNum(t *testing.T, v runtime.Value, want float64) {
	t.Helper()
	if v.Kind != runtime.KindNumber || v.Number != want {
		t.Fatalf("got %v, want Number(%v)", v, want)
	}
}

func wantStr(t *testing.T, v runtime.Value, want string) {
	t.Helper()
	s, ok := v.Obj.(*runtime.String)
	if v.Kind != runtime.KindObject || !ok || s.Value != want {
		t.Fatalf("got %v, want String(%q)", v, want)
	}
}

func TestMathNatives(t *testing.T) {
	wantNum(t, run(t, `(sqrt 81)`), 9)
	wantNum(t, run(t, `(pow 2 10)`), 1024)
	wantNum(t, run(t, `(floor 3.7)`), 3)
	wantNum(t, run(t, `(ceil 3.1)`), 4)
	wantNum(t, run(t, `(abs -5)`), 5)
}

func TestMathNativeArityError(t *testing.T) {
	tokens, err := lexer.New(`(sqrt 1 2)`).Scan()
	if err != nil {
		t.Fatalf("lexer error: %v", err)
	}
	forms, errs := parser.Make(tokens).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	globals := runtime.NewGlobals()
	Register(globals)
	comp := compiler.New(globals)
	code, err := comp.Compile(forms)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	machine := vm.New(globals)
	if _, err := machine.Exec(code); err == nil {
		t.Fatal("expected a runtime error for sqrt called with 2 arguments")
	}
}

func TestStringNatives(t *testing.T) {
	wantNum(t, run(t, `(str-len "hello")`), 5)
	wantStr(t, run(t, `(str-upper "eva")`), "EVA")
	wantStr(t, run(t, `(str-lower "EVA")`), "eva")
	wantStr(t, run(t, `(str-concat "foo" "bar")`), "foobar")
}

func TestNativeDocsListing(t *testing.T) {
	globals := runtime.NewGlobals()
	Register(globals)
	docs := globals.NativeDocs()
	if len(docs) == 0 {
		t.Fatal("expected at least one documented native")
	}
	found := false
	for _, d := range docs {
		if d == "sqrt — (sqrt n) -> square root of n" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected sqrt's doc string in listing, got %v", docs)
	}
}
