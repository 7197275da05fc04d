package delit

// ExtractPayload returns an owned copy of the decoder's payload field
// bytes, still encrypted. The original metadata blob is never touched: the
// decryptor that runs next mutates this copy, not anything backing the
// module.
func ExtractPayload(binding *DecoderBinding) ([]byte, error) {
	b, ok := binding.PayloadField.InitialBytes()
	if !ok {
		return nil, &PayloadExtractionError{
			DeclaringType: binding.DecoderType.FullName,
			FieldName:     binding.PayloadField.Name,
		}
	}
	return b, nil
}

// cipherKey is the byte-index-keyed XOR mask.
const cipherKey = 0xAA

// Decrypt inverts the decoder's stream cipher in place:
//
//	payload[i] ^= (i mod 256) ^ 0xAA
//
// The cipher is its own inverse, so calling Decrypt twice on the same slice
// restores the original (still-encrypted) bytes. Callers must not do this;
// the pipeline calls it exactly once per run.
func Decrypt(payload []byte) {
	for i := range payload {
		payload[i] ^= byte(i%256) ^ cipherKey
	}
}
