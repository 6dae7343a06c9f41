package vm

import "eva/runtime"

// Frame is a suspended caller context, pushed by CALL and restored by
// RETURN: where to resume (returnIP), where the caller's stack window
// started (bp), which function was running, and the cells that function's
// body was addressing.
type Frame struct {
	returnIP int
	bp       int
	fn       *runtime.Function
	cells    []*runtime.Cell
}
