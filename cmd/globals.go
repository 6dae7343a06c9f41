package cmd

import (
	"eva/natives"
	"eva/runtime"
)

// NewGlobalsWithNatives builds the Globals table every cmd entry point
// compiles and runs against: the native standard library registered before
// any program sees it, per §4.4's "populated at VM-construction time".
func NewGlobalsWithNatives() *runtime.Globals {
	globals := runtime.NewGlobals()
	natives.Register(globals)
	return globals
}
