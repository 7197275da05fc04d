package delit

import "github.com/clrtools/delit/cilmeta"

// Verify re-walks every non-decoder-type method body and counts residual
// calls to the decoder type. A positive count means the accessor analyzer
// could not recover every accessor; it is a warning, never fatal.
func Verify(m *cilmeta.Module, binding *DecoderBinding) int {
	decoderName := binding.DecoderType.FullName
	residual := 0
	for _, t := range m.EnumerateTypes() {
		if t.FullName == decoderName {
			continue
		}
		for _, meth := range t.AllMethods() {
			if meth.Body == nil {
				continue
			}
			for i := 0; i < meth.Body.Len(); i++ {
				if _, ok := IsDecoderCall(meth.Body.At(i), decoderName); ok {
					residual++
				}
			}
		}
	}
	return residual
}
