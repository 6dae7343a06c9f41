package natives

import (
	"fmt"

	"github.com/gorilla/websocket"

	"eva/runtime"
)

// RegisterSocket wires `ws-ping` onto globals, grounded on
// senapati484-flowa/pkg/eval/ws_helpers.go and pkg/vm/websocket.go's
// send/receive pair, turned into a synchronous client round-trip (dial, send
// one text frame, read one text frame back, close) per §5's "no operation
// suspends or yields": a failure is returned as a String value prefixed
// "error: " rather than aborting the VM, since a flaky remote endpoint is not
// a compiler/VM-level fault.
func RegisterSocket(globals *runtime.Globals) {
	globals.RegisterNativeDoc("ws-ping", "(ws-ping url message) -> sends message, returns one reply", func(args []runtime.Value) (runtime.Value, error) {
		if len(args) != 2 {
			return runtime.Value{}, arityError("ws-ping", 2, len(args))
		}
		url, err := wantString("ws-ping", args, 0)
		if err != nil {
			return runtime.Value{}, err
		}
		message, err := wantString("ws-ping", args, 1)
		if err != nil {
			return runtime.Value{}, err
		}

		conn, _, dialErr := websocket.DefaultDialer.Dial(url, nil)
		if dialErr != nil {
			return runtime.Obj(&runtime.String{Value: "error: " + dialErr.Error()}), nil
		}
		defer conn.Close()

		if writeErr := conn.WriteMessage(websocket.TextMessage, []byte(message)); writeErr != nil {
			return runtime.Obj(&runtime.String{Value: "error: " + writeErr.Error()}), nil
		}

		msgType, reply, readErr := conn.ReadMessage()
		if readErr != nil {
			return runtime.Obj(&runtime.String{Value: "error: " + readErr.Error()}), nil
		}
		if msgType != websocket.TextMessage {
			return runtime.Obj(&runtime.String{Value: fmt.Sprintf("error: unexpected message type %d", msgType)}), nil
		}
		return runtime.Obj(&runtime.String{Value: string(reply)}), nil
	})
}
