//go:build js && wasm

package platform

import "syscall/js"

// hostBridge times blocks with the host's performance.now(), which has a
// finer resolution than the Go runtime clock in most browsers.
func hostBridge() Bridge {
	perf := js.Global().Get("performance")
	if perf.IsUndefined() || perf.IsNull() {
		return nil
	}

	return func(block func()) int64 {
		start := perf.Call("now").Float()
		block()
		end := perf.Call("now").Float()

		return int64((end - start) * 1e6)
	}
}
