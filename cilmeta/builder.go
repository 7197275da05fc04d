package cilmeta

// NewModule returns an empty Module ready to have types added to it.
func NewModule() *Module {
	return &Module{}
}

func (m *Module) allocToken() uint32 {
	m.nextToken++
	return m.nextToken
}

// AddType declares a new type and appends it to the module in enumeration
// order.
func (m *Module) AddType(fullName string, nested bool) *TypeRef {
	t := &TypeRef{
		Token:    m.allocToken(),
		FullName: fullName,
		Nested:   nested,
	}
	m.Types = append(m.Types, t)
	return t
}

// AddField declares a new field on t.
func (t *TypeRef) AddField(name string, static bool, semantic SemanticType) *FieldRef {
	f := &FieldRef{Name: name, Static: static, Semantic: semantic}
	t.Fields = append(t.Fields, f)
	return f
}

// AddMethod declares a new ordinary (non-constructor-special-cased) method
// on t with the given body. body may be nil for a method with no body.
func (t *TypeRef) AddMethod(name string, paramCount int, returnSemantic SemanticType, isConstructor bool, body *InstructionStream) *MethodRef {
	m := &MethodRef{
		Name:           name,
		ParamCount:     paramCount,
		ReturnSemantic: returnSemantic,
		IsConstructor:  isConstructor,
		Body:           body,
	}
	t.Methods = append(t.Methods, m)
	return m
}

// SetStaticConstructor attaches a static initializer body to t.
func (t *TypeRef) SetStaticConstructor(body *InstructionStream) *MethodRef {
	t.StaticConstructor = &MethodRef{
		Name:          ".cctor",
		IsConstructor: true,
		Body:          body,
	}
	return t.StaticConstructor
}

// Assign tokens to every type/field/method that doesn't have one yet. Called
// by Write so that hand-built fixtures (which never go through AddType's
// token allocator for fields/methods) still round-trip with stable tokens.
func (m *Module) assignTokens() {
	for _, t := range m.Types {
		if t.Token == 0 {
			t.Token = m.allocToken()
		}
		for _, f := range t.Fields {
			if f.Token == 0 {
				f.Token = m.allocToken()
			}
		}
		for _, meth := range t.Methods {
			if meth.Token == 0 {
				meth.Token = m.allocToken()
			}
		}
		if t.StaticConstructor != nil && t.StaticConstructor.Token == 0 {
			t.StaticConstructor.Token = m.allocToken()
		}
	}
}

// Instruction constructors used both by production code emitting
// literal-text-load instructions and by tests building synthetic method
// bodies.

func Nop() Instruction { return Instruction{Opcode: OpNop} }

func LdcI4M1() Instruction { return Instruction{Opcode: OpLdcI4M1} }

func ldcI4Small(n int32) Instruction { return Instruction{Opcode: OpLdcI4_0 + Opcode(n)} }

// LdcI4Small returns the dedicated zero-through-eight opcode for n.
// n must be in [0, 8].
func LdcI4Small(n int32) Instruction {
	if n < 0 || n > 8 {
		panic("cilmeta: LdcI4Small out of range")
	}
	return ldcI4Small(n)
}

// LdcI4Short returns the short (single-byte) integer-constant form.
func LdcI4Short(n int8) Instruction {
	return Instruction{Opcode: OpLdcI4S, Operand: Operand{Kind: OperandInt32, Int32: int32(n)}}
}

// LdcI4Full returns the full 32-bit integer-constant form.
func LdcI4Full(n int32) Instruction {
	return Instruction{Opcode: OpLdcI4, Operand: Operand{Kind: OperandInt32, Int32: n}}
}

// LdcI4 picks whichever encoding a real compiler would emit for n: the
// dedicated opcode for -1..8, the short form for anything else in the
// signed-byte range, and the full form otherwise.
func LdcI4(n int32) Instruction {
	switch {
	case n == -1:
		return LdcI4M1()
	case n >= 0 && n <= 8:
		return ldcI4Small(n)
	case n >= -128 && n <= 127:
		return LdcI4Short(int8(n))
	default:
		return LdcI4Full(n)
	}
}

// Call returns a call instruction targeting the named method on
// declaringType.
func Call(declaringType, methodName string) Instruction {
	return Instruction{Opcode: OpCall, Operand: Operand{Kind: OperandMethod, Method: MemberRef{declaringType, methodName}}}
}

// CallVirt returns a virtual-call instruction targeting the named method on
// declaringType.
func CallVirt(declaringType, methodName string) Instruction {
	return Instruction{Opcode: OpCallVirt, Operand: Operand{Kind: OperandMethod, Method: MemberRef{declaringType, methodName}}}
}

// Ret returns a return instruction.
func Ret() Instruction { return Instruction{Opcode: OpRet} }

// Ldtoken returns an instruction that loads a metadata token for the named
// field on declaringType.
func Ldtoken(declaringType, fieldName string) Instruction {
	return Instruction{Opcode: OpLdtoken, Operand: Operand{Kind: OperandField, Field: MemberRef{declaringType, fieldName}}}
}

// Stsfld returns an instruction that stores the evaluation stack's top into
// the named static field on declaringType.
func Stsfld(declaringType, fieldName string) Instruction {
	return Instruction{Opcode: OpStsfld, Operand: Operand{Kind: OperandField, Field: MemberRef{declaringType, fieldName}}}
}

// Ldstr returns a literal-text-load instruction carrying text.
func Ldstr(text string) Instruction {
	return Instruction{Opcode: OpLdstr, Operand: Operand{Kind: OperandText, Text: text}}
}

// Other returns a filler instruction with an opcode outside the subset this
// package models explicitly. Useful in fixtures to pad a body with
// instructions the pipeline must leave untouched.
func Other() Instruction { return Instruction{Opcode: OpOther} }
