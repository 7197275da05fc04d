package delit

import (
	"strings"

	"github.com/clrtools/delit/cilmeta"
)

// sMin is the payload-field size, in bytes, that a type's field must exceed
// for the type to be considered a decoder candidate.
const sMin = 50000

// DecoderBinding is the result of locating the decoder type. It is built up
// across the pipeline and is treated as immutable by every later phase:
// Locate fills in DecoderType/PayloadField/TableField, and RunModule fills
// in Payload with the extracted and decrypted bytes.
type DecoderBinding struct {
	DecoderType  *cilmeta.TypeRef
	PayloadField *cilmeta.FieldRef
	TableField   *cilmeta.FieldRef // nil if the type has no lookup-table field
	Payload      []byte
}

func isSystemType(fullName string) bool {
	return strings.HasPrefix(fullName, "System.") || strings.HasPrefix(fullName, "Microsoft.")
}

// Locate scans every non-system type in m and returns the first one
// satisfying both qualifying predicates: a static byte-sequence field whose
// initial bytes (reached directly or through its static initializer) exceed
// sMin bytes, and a non-empty method list.
//
// A nil binding with found=false is not an error: it means no decoder-shaped
// type exists in the module, which is treated as a clean, zero-replacement
// run.
func Locate(m *cilmeta.Module) (binding *DecoderBinding, found bool) {
	for _, t := range m.EnumerateTypes() {
		if isSystemType(t.FullName) {
			continue
		}
		if len(t.Methods) == 0 {
			continue
		}
		payloadField := findPayloadField(t)
		if payloadField == nil {
			continue
		}
		log.Debugf("locator: candidate decoder type %s (payload field %s)", t.FullName, payloadField.Name)
		return &DecoderBinding{
			DecoderType:  t,
			PayloadField: payloadField,
			TableField:   findTableField(t),
		}, true
	}
	return nil, false
}

// findPayloadField returns the first static byte-sequence field on t whose
// initial bytes exceed sMin, resolving the indirect
// "load-token <data field>; ...; store-static <candidate>" pattern in t's
// static initializer when the field carries no initial bytes of its own.
func findPayloadField(t *cilmeta.TypeRef) *cilmeta.FieldRef {
	for _, f := range t.Fields {
		if !f.Static || f.Semantic != cilmeta.SemanticByteSequence {
			continue
		}
		if b, ok := f.InitialBytes(); ok && len(b) > sMin {
			return f
		}
		if b, ok := reachThroughStaticInitializer(t, f); ok && len(b) > sMin {
			// Attach the resolved bytes to the candidate field itself so
			// downstream phases have one place to read them from.
			f.SetInitialBytes(b)
			return f
		}
	}
	return nil
}

// reachThroughStaticInitializer looks for
// "ldtoken <data field>; ...; stsfld <candidate>" in t's static
// initializer and, on a match, returns the data field's initial bytes.
func reachThroughStaticInitializer(t *cilmeta.TypeRef, candidate *cilmeta.FieldRef) ([]byte, bool) {
	if t.StaticConstructor == nil || t.StaticConstructor.Body == nil {
		return nil, false
	}
	body := t.StaticConstructor.Body

	var pendingDataField string
	for i := 0; i < body.Len(); i++ {
		ins := body.At(i)
		switch ins.Opcode {
		case cilmeta.OpLdtoken:
			if ins.Operand.Kind == cilmeta.OperandField {
				pendingDataField = ins.Operand.Field.Name
			}
		case cilmeta.OpStsfld:
			if ins.Operand.Kind != cilmeta.OperandField {
				continue
			}
			if ins.Operand.Field.Name != candidate.Name || ins.Operand.Field.DeclaringType != t.FullName {
				continue
			}
			if pendingDataField == "" {
				continue
			}
			if dataField := t.FieldByName(pendingDataField); dataField != nil {
				if b, ok := dataField.InitialBytes(); ok {
					return b, true
				}
			}
		}
	}
	return nil, false
}

// findTableField returns the first text-sequence or text-sequence-array
// field on t, the optional lookup-table path.
func findTableField(t *cilmeta.TypeRef) *cilmeta.FieldRef {
	for _, f := range t.Fields {
		if f.Semantic == cilmeta.SemanticTextSequence || f.Semantic == cilmeta.SemanticTextSequenceArray {
			return f
		}
	}
	return nil
}
