// Package veilmark provides in-process text watermarking for Go
// applications. It embeds zero-width provenance tags into text, detects
// them, and strips them, with no subprocess or network hop.
//
// Usage:
//
//	vm, err := veilmark.New(veilmark.WithIssuerID(42), veilmark.WithModelID(7))
//	marked := vm.Apply("model output here")
//	result := vm.Detect(marked) // result.Watermarked == true
//
// HTTP clients talking to an LLM API can watermark responses transparently:
//
//	client := &http.Client{Transport: vm.WrapTransport(http.DefaultTransport)}
//
// The SDK links directly against internal packages for zero-subprocess
// overhead. External users import github.com/ppiankov/veilmark/sdk/go/veilmark.
package veilmark
