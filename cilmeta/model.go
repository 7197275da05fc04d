// Package cilmeta is a minimal managed-module object model: types, fields,
// methods and mutable instruction streams, plus a self-describing binary
// container format to load and write them.
//
// It stands in for the real metadata reader/writer library a production
// deobfuscator would sit on top of (PE headers, the CLR metadata tables,
// the IL instruction encoding). No such library is assumed to exist here;
// cilmeta only implements the surface the rest of this module needs, kept
// behind this package boundary so a real library could be dropped in
// without touching callers.
package cilmeta

import "fmt"

// SemanticType classifies what a field or a method's return value actually
// holds, independent of its declared CLR type. The pipeline only cares
// about a handful of shapes.
type SemanticType int

const (
	SemanticOther SemanticType = iota
	SemanticByteSequence
	SemanticTextSequence
	SemanticTextSequenceArray
)

func (s SemanticType) String() string {
	switch s {
	case SemanticByteSequence:
		return "byte-sequence"
	case SemanticTextSequence:
		return "text-sequence"
	case SemanticTextSequenceArray:
		return "text-sequence-array"
	default:
		return "other"
	}
}

// OperandKind is the shape of an Instruction's Operand.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandInt32
	OperandMethod
	OperandField
	OperandText
	OperandOther
)

// Opcode enumerates the subset of a CIL-like instruction set this pipeline
// needs to recognize or emit. Anything not listed here round-trips as
// OpOther and is never a rewrite target.
type Opcode int

const (
	OpNop Opcode = iota
	OpLdcI4M1
	OpLdcI4_0
	OpLdcI4_1
	OpLdcI4_2
	OpLdcI4_3
	OpLdcI4_4
	OpLdcI4_5
	OpLdcI4_6
	OpLdcI4_7
	OpLdcI4_8
	OpLdcI4S // short (single-byte) form
	OpLdcI4  // full 32-bit form
	OpCall
	OpCallVirt
	OpLdstr // literal-text-load: pushes a constant text reference
	OpLdtoken
	OpStsfld
	OpRet
	OpOther
)

func (op Opcode) String() string {
	switch op {
	case OpNop:
		return "nop"
	case OpLdcI4M1:
		return "ldc.i4.m1"
	case OpLdcI4_0, OpLdcI4_1, OpLdcI4_2, OpLdcI4_3, OpLdcI4_4, OpLdcI4_5, OpLdcI4_6, OpLdcI4_7, OpLdcI4_8:
		return fmt.Sprintf("ldc.i4.%d", op-OpLdcI4_0)
	case OpLdcI4S:
		return "ldc.i4.s"
	case OpLdcI4:
		return "ldc.i4"
	case OpCall:
		return "call"
	case OpCallVirt:
		return "callvirt"
	case OpLdstr:
		return "ldstr"
	case OpLdtoken:
		return "ldtoken"
	case OpStsfld:
		return "stsfld"
	case OpRet:
		return "ret"
	default:
		return "other"
	}
}

// IsCall reports whether op is one of the two call opcodes this pipeline
// treats as interchangeable at recognition time.
func (op Opcode) IsCall() bool {
	return op == OpCall || op == OpCallVirt
}

// MemberRef identifies a field or method by its declaring type's fully
// qualified name and its own name. Identity comparisons throughout this
// module are by name, never by pointer, so a call instruction compares
// equal to its target member regardless of which TypeRef or MethodRef
// value backs that member.
type MemberRef struct {
	DeclaringType string
	Name          string
}

// Operand is the payload half of an Instruction.
type Operand struct {
	Kind   OperandKind
	Int32  int32
	Method MemberRef
	Field  MemberRef
	Text   string
	Other  string
}

// Instruction is one (opcode, operand) pair in a method body.
type Instruction struct {
	Opcode  Opcode
	Operand Operand
}

// IntConst decodes ins as one of the shorthand integer-constant encodings:
// the dedicated 0..8 opcodes, the -1 opcode, the short (single-byte) form
// and the full 32-bit form. Any other opcode is not an integer constant.
func (ins Instruction) IntConst() (int32, bool) {
	switch ins.Opcode {
	case OpLdcI4M1:
		return -1, true
	case OpLdcI4_0, OpLdcI4_1, OpLdcI4_2, OpLdcI4_3, OpLdcI4_4, OpLdcI4_5, OpLdcI4_6, OpLdcI4_7, OpLdcI4_8:
		return int32(ins.Opcode - OpLdcI4_0), true
	case OpLdcI4S, OpLdcI4:
		return ins.Operand.Int32, true
	default:
		return 0, false
	}
}

// InstructionStream is an ordered, mutable sequence of instructions.
// Rewriting only ever mutates an existing slot in place: the length and
// the relative order of untouched instructions never change, so branch
// offsets computed against this stream stay valid by construction.
type InstructionStream struct {
	ins []Instruction
}

// NewInstructionStream builds a stream from a fixed instruction sequence.
func NewInstructionStream(ins ...Instruction) *InstructionStream {
	cp := make([]Instruction, len(ins))
	copy(cp, ins)
	return &InstructionStream{ins: cp}
}

// Len returns the instruction count.
func (s *InstructionStream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ins)
}

// At returns the instruction at index i.
func (s *InstructionStream) At(i int) Instruction {
	return s.ins[i]
}

// Set replaces the instruction at index i in place.
func (s *InstructionStream) Set(i int, ins Instruction) {
	s.ins[i] = ins
}

// FieldRef describes one field declared on a TypeRef.
type FieldRef struct {
	Token        uint32
	Name         string
	Static       bool
	Semantic     SemanticType
	hasInitial   bool
	initialBytes []byte
}

// InitialBytes returns the field's embedded initial value, if metadata
// carries one directly on the field.
func (f *FieldRef) InitialBytes() ([]byte, bool) {
	if !f.hasInitial {
		return nil, false
	}
	out := make([]byte, len(f.initialBytes))
	copy(out, f.initialBytes)
	return out, true
}

// SetInitialBytes attaches an embedded initial value to the field.
func (f *FieldRef) SetInitialBytes(b []byte) {
	f.hasInitial = true
	f.initialBytes = append([]byte(nil), b...)
}

// MethodRef describes one method declared on a TypeRef.
type MethodRef struct {
	Token          uint32
	Name           string
	ParamCount     int
	ReturnSemantic SemanticType
	IsConstructor  bool
	Body           *InstructionStream
}

// TypeRef describes one type declared in a Module.
type TypeRef struct {
	Token             uint32
	FullName          string
	Nested            bool
	Fields            []*FieldRef
	Methods           []*MethodRef
	StaticConstructor *MethodRef
}

// AllMethods returns Methods plus the static constructor, when present, so
// callers that must walk every method body in a type don't have to
// special-case the constructor separately.
func (t *TypeRef) AllMethods() []*MethodRef {
	if t.StaticConstructor == nil {
		return t.Methods
	}
	out := make([]*MethodRef, 0, len(t.Methods)+1)
	out = append(out, t.Methods...)
	out = append(out, t.StaticConstructor)
	return out
}

// FieldByName finds a field declared directly on t.
func (t *TypeRef) FieldByName(name string) *FieldRef {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Module is the in-memory representation of one loaded managed binary.
type Module struct {
	Types []*TypeRef

	nextToken uint32
}

// EnumerateTypes returns the module's types in declaration order.
func (m *Module) EnumerateTypes() []*TypeRef {
	return m.Types
}
