// Package main is the worker binary that runs the built-in benchmark
// suites. The host builds it once per target, natively or for wasm.
package main

import (
	"github.com/weiihann/microbench/suites"
	"github.com/weiihann/microbench/worker"
)

func main() {
	worker.Main(suites.All())
}
