package delit

import (
	"strings"

	"github.com/clrtools/delit/cilmeta"
)

const decoderTypeName = "Obfuscated.Strings"

// encryptPlain returns the on-disk encrypted form of plain: the cipher is
// its own inverse, so "encrypting" and "decrypting" are the same transform.
func encryptPlain(plain []byte) []byte {
	b := append([]byte(nil), plain...)
	Decrypt(b)
	return b
}

// padPayload pads plain with deterministic filler bytes so the resulting
// encrypted payload exceeds sMin, the minimum size of a decoder candidate.
func padPayload(plain string, totalLen int) []byte {
	buf := make([]byte, totalLen)
	copy(buf, plain)
	for i := len(plain); i < totalLen; i++ {
		buf[i] = byte(i)
	}
	return buf
}

// buildSingleMethodDecoderType returns a minimal decoder-shaped TypeRef
// with a payload field carrying no initial bytes, for tests exercising the
// payload-extraction failure path.
func buildSingleMethodDecoderType() *cilmeta.TypeRef {
	m := cilmeta.NewModule()
	t := m.AddType(decoderTypeName, false)
	t.AddField("payload", true, cilmeta.SemanticByteSequence)
	t.AddMethod("A", 0, cilmeta.SemanticTextSequence, false, cilmeta.NewInstructionStream(cilmeta.Ret()))
	return t
}

// accessorBody builds the instruction-pattern accessor body: three
// integer-constant loads, then a call, then a return.
func accessorBody(index, offset, length int32, call cilmeta.Instruction) *cilmeta.InstructionStream {
	return cilmeta.NewInstructionStream(
		cilmeta.LdcI4(index),
		cilmeta.LdcI4(offset),
		cilmeta.LdcI4(length),
		call,
		cilmeta.Ret(),
	)
}

// happyPathModule builds a decoder type with one accessor "A" recovering
// "Hello, world!" at offset 0, and one external caller invoking it.
func happyPathModule() (*cilmeta.Module, []byte) {
	plain := padPayload("Hello, world!", 50001)
	encrypted := encryptPlain(plain)

	m := cilmeta.NewModule()
	decoder := m.AddType(decoderTypeName, false)
	decoder.AddField("payload", true, cilmeta.SemanticByteSequence).SetInitialBytes(encrypted)
	decoder.AddMethod("A", 0, cilmeta.SemanticTextSequence, false,
		accessorBody(0, 0, int32(len("Hello, world!")), cilmeta.Call(decoderTypeName, "helper")))
	decoder.AddMethod("helper", 3, cilmeta.SemanticTextSequence, false, nil)

	caller := m.AddType("App.Program", false)
	caller.AddMethod("Main", 0, cilmeta.SemanticOther, false, cilmeta.NewInstructionStream(
		cilmeta.Call(decoderTypeName, "A"),
		cilmeta.Ret(),
	))

	return m, plain
}

// twoAccessorBoundsFailureModule builds the S2 fixture: accessor "A"
// recovers "alpha" at (0,5); accessor "B" is given (59999, 10), which
// overflows a 60000-byte payload and must be skipped.
func twoAccessorBoundsFailureModule() *cilmeta.Module {
	plain := padPayload("alpha", 60000)
	encrypted := encryptPlain(plain)

	m := cilmeta.NewModule()
	decoder := m.AddType(decoderTypeName, false)
	decoder.AddField("payload", true, cilmeta.SemanticByteSequence).SetInitialBytes(encrypted)
	decoder.AddMethod("A", 0, cilmeta.SemanticTextSequence, false,
		accessorBody(0, 0, 5, cilmeta.Call(decoderTypeName, "helper")))
	decoder.AddMethod("B", 0, cilmeta.SemanticTextSequence, false,
		accessorBody(1, 59999, 10, cilmeta.Call(decoderTypeName, "helper")))
	decoder.AddMethod("helper", 3, cilmeta.SemanticTextSequence, false, nil)

	caller := m.AddType("App.Program", false)
	caller.AddMethod("Main", 0, cilmeta.SemanticOther, false, cilmeta.NewInstructionStream(
		cilmeta.Call(decoderTypeName, "A"),
		cilmeta.Call(decoderTypeName, "B"),
		cilmeta.Ret(),
	))

	return m
}

// noDecoderModule builds the S3 fixture: no static byte-sequence field
// reaches the sMin threshold.
func noDecoderModule() *cilmeta.Module {
	m := cilmeta.NewModule()
	t := m.AddType("App.Config", false)
	small := t.AddField("smallPayload", true, cilmeta.SemanticByteSequence)
	small.SetInitialBytes(make([]byte, 10))
	t.AddMethod("DoWork", 0, cilmeta.SemanticOther, false, cilmeta.NewInstructionStream(cilmeta.Ret()))
	return m
}

// lookupTableModule builds the S5 fixture: a decoder with a text-sequence
// table field instead of per-accessor instruction patterns.
func lookupTableModule() *cilmeta.Module {
	plain := padPayload("foobarz", 50001)
	encrypted := encryptPlain(plain)

	table := strings.Join([]string{
		"StringID,_,_,offset,length",
		"X,,,0,3",
		"Y,,,3,4",
		"",
	}, "\n")

	m := cilmeta.NewModule()
	decoder := m.AddType(decoderTypeName, false)
	decoder.AddField("payload", true, cilmeta.SemanticByteSequence).SetInitialBytes(encrypted)
	decoder.AddField("table", true, cilmeta.SemanticTextSequence).SetInitialBytes([]byte(table))
	decoder.AddMethod("GetX", 0, cilmeta.SemanticTextSequence, false, nil)

	return m
}

// mixedOpcodeWidthModule builds the S6 fixture: offset uses the short
// (single-byte) constant form, length uses the full 32-bit form and
// overflows the payload.
func mixedOpcodeWidthModule() *cilmeta.Module {
	plain := padPayload("irrelevant", 50001)
	encrypted := encryptPlain(plain)

	m := cilmeta.NewModule()
	decoder := m.AddType(decoderTypeName, false)
	decoder.AddField("payload", true, cilmeta.SemanticByteSequence).SetInitialBytes(encrypted)
	decoder.AddMethod("Overflowing", 0, cilmeta.SemanticTextSequence, false, cilmeta.NewInstructionStream(
		cilmeta.LdcI4(0),
		cilmeta.LdcI4Short(10),
		cilmeta.LdcI4Full(0x00010000),
		cilmeta.Call(decoderTypeName, "helper"),
		cilmeta.Ret(),
	))
	decoder.AddMethod("helper", 3, cilmeta.SemanticTextSequence, false, nil)

	return m
}
