// Package natives is Eva's native-function standard library: the concrete
// host functions registered on runtime.Globals before a program runs, since
// the language itself has no syntax for I/O, hashing, or networking.
package natives

import (
	"fmt"

	"eva/runtime"
)

// arityError is the uniform complaint every native raises when called with
// the wrong argument count — natives receive no arity enforcement from the
// VM itself (CALL only checks Function arity), so each one checks its own.
func arityError(name string, want, got int) error {
	return fmt.Errorf("%s expects %d argument(s), got %d", name, want, got)
}

func wantNumber(name string, args []runtime.Value, i int) (float64, error) {
	if args[i].Kind != runtime.KindNumber {
		return 0, fmt.Errorf("%s: argument %d must be a number", name, i+1)
	}
	return args[i].Number, nil
}

func wantString(name string, args []runtime.Value, i int) (string, error) {
	if args[i].Kind != runtime.KindObject {
		return "", fmt.Errorf("%s: argument %d must be a string", name, i+1)
	}
	s, ok := args[i].Obj.(*runtime.String)
	if !ok {
		return "", fmt.Errorf("%s: argument %d must be a string", name, i+1)
	}
	return s.Value, nil
}

// Register wires every native package's functions onto globals under its own
// name. Mail and Auth read credentials lazily from the process environment
// at call time, so `.env` loading (done by main before dispatch) just needs to run
// before a program actually calls mail-send/jwt-sign, not before Register.
func Register(globals *runtime.Globals) {
	RegisterMath(globals)
	RegisterStrings(globals)
	RegisterAuth(globals)
	RegisterMail(globals)
	RegisterSocket(globals)
}
