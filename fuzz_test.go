package delit

import (
	"bytes"
	"testing"

	"github.com/clrtools/delit/cilmeta"
)

// cilmetaFuzzModule builds a minimal decoder-shaped module whose lookup
// table field carries the given (possibly malformed) text.
func cilmetaFuzzModule(table string) *cilmeta.Module {
	plain := padPayload("fuzzpayload", 50001)
	encrypted := encryptPlain(plain)

	m := cilmeta.NewModule()
	decoder := m.AddType(decoderTypeName, false)
	decoder.AddField("payload", true, cilmeta.SemanticByteSequence).SetInitialBytes(encrypted)
	decoder.AddField("table", true, cilmeta.SemanticTextSequence).SetInitialBytes([]byte(table))
	decoder.AddMethod("GetX", 0, cilmeta.SemanticTextSequence, false, nil)
	return m
}

// FuzzDecrypt checks that the stream cipher is its own inverse for
// arbitrary payloads, including lengths that are not a multiple of 256.
func FuzzDecrypt(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x00})
	f.Add(bytes.Repeat([]byte{0xAA}, 300))
	f.Add([]byte("Hello, world!"))

	f.Fuzz(func(t *testing.T, payload []byte) {
		original := append([]byte(nil), payload...)
		Decrypt(payload)
		Decrypt(payload)
		if !bytes.Equal(payload, original) {
			t.Fatalf("Decrypt is not an involution for input of length %d", len(original))
		}
	})
}

// FuzzAnalyzeLookupTable checks that the lookup-table decode path never
// panics on arbitrary table text, regardless of how malformed it is.
func FuzzAnalyzeLookupTable(f *testing.F) {
	f.Add("StringID,_,_,offset,length\nX,,,0,3\n")
	f.Add("")
	f.Add("garbage\n\n,,,,\nX,,,999999999,1\n")
	f.Add("X,,,-1,5\n")

	f.Fuzz(func(t *testing.T, table string) {
		m := cilmetaFuzzModule(table)
		binding, found := Locate(m)
		if !found {
			return
		}
		raw, err := ExtractPayload(binding)
		if err != nil {
			return
		}
		Decrypt(raw)
		binding.Payload = raw
		AnalyzeAccessors(binding)
	})
}
