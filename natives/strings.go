package natives

import (
	"strings"

	"eva/runtime"
)

// RegisterStrings wires `str-len`, `str-upper`, `str-lower`, and
// `str-concat` onto globals.
func RegisterStrings(globals *runtime.Globals) {
	globals.RegisterNativeDoc("str-len", "(str-len s) -> length of s", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return runtime.Value{}, arityError("str-len", 1, len(args))
		}
		s, err := wantString("str-len", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.Num(float64(len(s))), nil
	})

	globals.RegisterNativeDoc("str-upper", "(str-upper s) -> s uppercased", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return runtime.Value{}, arityError("str-upper", 1, len(args))
		}
		s, err := wantString("str-upper", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.Obj(&runtime.String{Value: strings.ToUpper(s)}), nil
	})

	globals.RegisterNativeDoc("str-lower", "(str-lower s) -> s lowercased", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return runtime.Value{}, arityError("str-lower", 1, len(args))
		}
		s, err := wantString("str-lower", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.Obj(&runtime.String{Value: strings.ToLower(s)}), nil
	})

	globals.RegisterNativeDoc("str-concat", "(str-concat a b) -> a followed by b", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return runtime.Value{}, arityError("str-concat", 2, len(args))
		}
		a, err := wantString("str-concat", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		b, err := wantString("str-concat", args, 1)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.Obj(&runtime.String{Value: a + b}), nil
	})
}
