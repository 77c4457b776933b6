// CureNest plans autoclave loads: it nests composite parts onto autoclave
// beds and tracks the resulting batches from draft to completion.
//
// Build:
//
//	go build -o curenest ./cmd/curenest
package main

func main() {
	Execute()
}
