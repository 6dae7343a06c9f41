package natives

import (
	"math"

	"eva/runtime"
)

// RegisterMath wires `sqrt`, `pow`, `floor`, `ceil`, and `abs` onto globals.
// Plain math.* calls are the right tool here: no repo in the retrieval pack
// reaches for a third-party math library for this.
func RegisterMath(globals *runtime.Globals) {
	globals.RegisterNativeDoc("sqrt", "(sqrt n) -> square root of n", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return runtime.Value{}, arityError("sqrt", 1, len(args))
		}
		n, err := wantNumber("sqrt", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.Num(math.Sqrt(n)), nil
	})

	globals.RegisterNativeDoc("pow", "(pow base exp) -> base raised to exp", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return runtime.Value{}, arityError("pow", 2, len(args))
		}
		base, err := wantNumber("pow", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		exp, err := wantNumber("pow", args, 1)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.Num(math.Pow(base, exp)), nil
	})

	globals.RegisterNativeDoc("floor", "(floor n) -> largest integer <= n", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return runtime.Value{}, arityError("floor", 1, len(args))
		}
		n, err := wantNumber("floor", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.Num(math.Floor(n)), nil
	})

	globals.RegisterNativeDoc("ceil", "(ceil n) -> smallest integer >= n", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return runtime.Value{}, arityError("ceil", 1, len(args))
		}
		n, err := wantNumber("ceil", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.Num(math.Ceil(n)), nil
	})

	globals.RegisterNativeDoc("abs", "(abs n) -> absolute value of n", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 1 {
			return runtime.Value{}, arityError("abs", 1, len(args))
		}
		n, err := wantNumber("abs", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		return runtime.Num(math.Abs(n)), nil
	})
}
