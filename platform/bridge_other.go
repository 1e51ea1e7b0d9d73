//go:build !(js && wasm)

package platform

func hostBridge() Bridge { return nil }
