package delit

import "github.com/clrtools/delit/cilmeta"

// RewriteStats counts what the Call-site Rewriter changed.
type RewriteStats struct {
	MethodsPatched int
	CallsReplaced  int
}

// IsDecoderCall reports whether ins is a call/virtual-call targeting a
// method declared on decoderTypeFullName, and if so returns that method's
// name. The Call-site Rewriter and the Verifier both use this single
// predicate, so "residual call" in the verifier's count means exactly
// "a call the rewriter would have considered".
func IsDecoderCall(ins cilmeta.Instruction, decoderTypeFullName string) (methodName string, ok bool) {
	if !ins.Opcode.IsCall() || ins.Operand.Kind != cilmeta.OperandMethod {
		return "", false
	}
	if ins.Operand.Method.DeclaringType != decoderTypeFullName {
		return "", false
	}
	return ins.Operand.Method.Name, true
}

// Rewrite walks every method body in m outside the decoder type and
// replaces each call to a recovered accessor with a literal-text-load
// instruction carrying the mapped text. Instructions are mutated in place;
// nothing is inserted, removed, or reordered, so instruction counts and
// branch targets are unaffected.
func Rewrite(m *cilmeta.Module, binding *DecoderBinding, am *AccessorMap) RewriteStats {
	stats := RewriteStats{}
	decoderName := binding.DecoderType.FullName

	for _, t := range m.EnumerateTypes() {
		if t.FullName == decoderName {
			continue
		}
		for _, meth := range t.AllMethods() {
			if meth.Body == nil {
				continue
			}
			patched := false
			for i := 0; i < meth.Body.Len(); i++ {
				name, ok := IsDecoderCall(meth.Body.At(i), decoderName)
				if !ok {
					continue
				}
				text, ok := am.Get(name)
				if !ok {
					// Accessor dropped by the analyzer: leave the call in
					// place, it is still callable at runtime.
					continue
				}
				meth.Body.Set(i, cilmeta.Ldstr(text))
				stats.CallsReplaced++
				patched = true
			}
			if patched {
				stats.MethodsPatched++
				log.Debugf("rewriter: patched %s.%s", t.FullName, meth.Name)
			}
		}
	}
	return stats
}
