package cilmeta

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// magic identifies the on-disk container format. It has no relationship to
// any real managed-binary file format; it exists purely so this package has
// something concrete to load and write while standing in for one.
var magic = [4]byte{'D', 'L', 'T', 'M'}

const formatVersion = 1

// LoadError is returned by Load when the module cannot be read.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("cilmeta: load %s: %v", e.Path, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// WriteError is returned by (*Module).Write when the module cannot be
// written back out.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("cilmeta: write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Load reads a Module from path.
func Load(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	m, err := decodeModule(bufio.NewReader(f))
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return m, nil
}

// Write serializes m to path, preserving every token assigned to its types,
// fields and methods.
func (m *Module) Write(path string) (err error) {
	m.assignTokens()

	f, err := os.Create(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	defer func() {
		cerr := f.Close()
		if err == nil && cerr != nil {
			err = &WriteError{Path: path, Err: cerr}
		}
	}()

	w := bufio.NewWriter(f)
	if encErr := encodeModule(w, m); encErr != nil {
		return &WriteError{Path: path, Err: encErr}
	}
	if flushErr := w.Flush(); flushErr != nil {
		return &WriteError{Path: path, Err: flushErr}
	}
	return nil
}

// --- wire encoding ---
//
// All multi-byte integers are little-endian. Strings are length-prefixed
// (uint32 byte count) UTF-8. Presence of optional data is signalled by a
// single byte flag immediately preceding it.

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeBool(w io.Writer, b bool) error {
	var v byte
	if b {
		v = 1
	}
	_, err := w.Write([]byte{v})
	return err
}

func readBool(r io.Reader) (bool, error) {
	var v [1]byte
	if _, err := io.ReadFull(r, v[:]); err != nil {
		return false, err
	}
	return v[0] != 0, nil
}

func encodeModule(w io.Writer, m *Module) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(formatVersion)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.Types))); err != nil {
		return err
	}
	for _, t := range m.Types {
		if err := encodeType(w, t); err != nil {
			return err
		}
	}
	return nil
}

func encodeType(w io.Writer, t *TypeRef) error {
	if err := binary.Write(w, binary.LittleEndian, t.Token); err != nil {
		return err
	}
	if err := writeString(w, t.FullName); err != nil {
		return err
	}
	if err := writeBool(w, t.Nested); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(t.Fields))); err != nil {
		return err
	}
	for _, f := range t.Fields {
		if err := encodeField(w, f); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(t.Methods))); err != nil {
		return err
	}
	for _, meth := range t.Methods {
		if err := encodeMethod(w, meth); err != nil {
			return err
		}
	}
	hasCctor := t.StaticConstructor != nil
	if err := writeBool(w, hasCctor); err != nil {
		return err
	}
	if hasCctor {
		if err := encodeMethod(w, t.StaticConstructor); err != nil {
			return err
		}
	}
	return nil
}

func encodeField(w io.Writer, f *FieldRef) error {
	if err := binary.Write(w, binary.LittleEndian, f.Token); err != nil {
		return err
	}
	if err := writeString(w, f.Name); err != nil {
		return err
	}
	if err := writeBool(w, f.Static); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(f.Semantic)); err != nil {
		return err
	}
	if err := writeBool(w, f.hasInitial); err != nil {
		return err
	}
	if f.hasInitial {
		if err := writeBytes(w, f.initialBytes); err != nil {
			return err
		}
	}
	return nil
}

func encodeMethod(w io.Writer, meth *MethodRef) error {
	if err := binary.Write(w, binary.LittleEndian, meth.Token); err != nil {
		return err
	}
	if err := writeString(w, meth.Name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(meth.ParamCount)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(meth.ReturnSemantic)); err != nil {
		return err
	}
	if err := writeBool(w, meth.IsConstructor); err != nil {
		return err
	}
	hasBody := meth.Body != nil
	if err := writeBool(w, hasBody); err != nil {
		return err
	}
	if !hasBody {
		return nil
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(meth.Body.Len())); err != nil {
		return err
	}
	for i := 0; i < meth.Body.Len(); i++ {
		if err := encodeInstruction(w, meth.Body.At(i)); err != nil {
			return err
		}
	}
	return nil
}

func encodeInstruction(w io.Writer, ins Instruction) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(ins.Opcode)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(ins.Operand.Kind)); err != nil {
		return err
	}
	switch ins.Operand.Kind {
	case OperandNone:
	case OperandInt32:
		if err := binary.Write(w, binary.LittleEndian, ins.Operand.Int32); err != nil {
			return err
		}
	case OperandMethod:
		if err := writeString(w, ins.Operand.Method.DeclaringType); err != nil {
			return err
		}
		if err := writeString(w, ins.Operand.Method.Name); err != nil {
			return err
		}
	case OperandField:
		if err := writeString(w, ins.Operand.Field.DeclaringType); err != nil {
			return err
		}
		if err := writeString(w, ins.Operand.Field.Name); err != nil {
			return err
		}
	case OperandText:
		if err := writeString(w, ins.Operand.Text); err != nil {
			return err
		}
	case OperandOther:
		if err := writeString(w, ins.Operand.Other); err != nil {
			return err
		}
	}
	return nil
}

func decodeModule(r io.Reader) (*Module, error) {
	var got [4]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return nil, err
	}
	if got != magic {
		return nil, fmt.Errorf("bad magic %q", got)
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported format version %d", version)
	}
	var nTypes uint32
	if err := binary.Read(r, binary.LittleEndian, &nTypes); err != nil {
		return nil, err
	}
	m := &Module{Types: make([]*TypeRef, 0, nTypes)}
	for i := uint32(0); i < nTypes; i++ {
		t, err := decodeType(r)
		if err != nil {
			return nil, err
		}
		m.Types = append(m.Types, t)
		if t.Token > m.nextToken {
			m.nextToken = t.Token
		}
	}
	return m, nil
}

func decodeType(r io.Reader) (*TypeRef, error) {
	t := &TypeRef{}
	if err := binary.Read(r, binary.LittleEndian, &t.Token); err != nil {
		return nil, err
	}
	var err error
	if t.FullName, err = readString(r); err != nil {
		return nil, err
	}
	if t.Nested, err = readBool(r); err != nil {
		return nil, err
	}
	var nFields uint32
	if err := binary.Read(r, binary.LittleEndian, &nFields); err != nil {
		return nil, err
	}
	for i := uint32(0); i < nFields; i++ {
		f, err := decodeField(r)
		if err != nil {
			return nil, err
		}
		t.Fields = append(t.Fields, f)
	}
	var nMethods uint32
	if err := binary.Read(r, binary.LittleEndian, &nMethods); err != nil {
		return nil, err
	}
	for i := uint32(0); i < nMethods; i++ {
		meth, err := decodeMethod(r)
		if err != nil {
			return nil, err
		}
		t.Methods = append(t.Methods, meth)
	}
	hasCctor, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if hasCctor {
		t.StaticConstructor, err = decodeMethod(r)
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

func decodeField(r io.Reader) (*FieldRef, error) {
	f := &FieldRef{}
	if err := binary.Read(r, binary.LittleEndian, &f.Token); err != nil {
		return nil, err
	}
	var err error
	if f.Name, err = readString(r); err != nil {
		return nil, err
	}
	if f.Static, err = readBool(r); err != nil {
		return nil, err
	}
	var semantic uint32
	if err := binary.Read(r, binary.LittleEndian, &semantic); err != nil {
		return nil, err
	}
	f.Semantic = SemanticType(semantic)
	if f.hasInitial, err = readBool(r); err != nil {
		return nil, err
	}
	if f.hasInitial {
		if f.initialBytes, err = readBytes(r); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func decodeMethod(r io.Reader) (*MethodRef, error) {
	meth := &MethodRef{}
	if err := binary.Read(r, binary.LittleEndian, &meth.Token); err != nil {
		return nil, err
	}
	var err error
	if meth.Name, err = readString(r); err != nil {
		return nil, err
	}
	var paramCount, semantic uint32
	if err := binary.Read(r, binary.LittleEndian, &paramCount); err != nil {
		return nil, err
	}
	meth.ParamCount = int(paramCount)
	if err := binary.Read(r, binary.LittleEndian, &semantic); err != nil {
		return nil, err
	}
	meth.ReturnSemantic = SemanticType(semantic)
	if meth.IsConstructor, err = readBool(r); err != nil {
		return nil, err
	}
	hasBody, err := readBool(r)
	if err != nil {
		return nil, err
	}
	if !hasBody {
		return meth, nil
	}
	var nIns uint32
	if err := binary.Read(r, binary.LittleEndian, &nIns); err != nil {
		return nil, err
	}
	ins := make([]Instruction, nIns)
	for i := range ins {
		ins[i], err = decodeInstruction(r)
		if err != nil {
			return nil, err
		}
	}
	meth.Body = &InstructionStream{ins: ins}
	return meth, nil
}

func decodeInstruction(r io.Reader) (Instruction, error) {
	var opcode, kind uint32
	if err := binary.Read(r, binary.LittleEndian, &opcode); err != nil {
		return Instruction{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return Instruction{}, err
	}
	ins := Instruction{Opcode: Opcode(opcode), Operand: Operand{Kind: OperandKind(kind)}}
	var err error
	switch ins.Operand.Kind {
	case OperandNone:
	case OperandInt32:
		err = binary.Read(r, binary.LittleEndian, &ins.Operand.Int32)
	case OperandMethod:
		if ins.Operand.Method.DeclaringType, err = readString(r); err != nil {
			break
		}
		ins.Operand.Method.Name, err = readString(r)
	case OperandField:
		if ins.Operand.Field.DeclaringType, err = readString(r); err != nil {
			break
		}
		ins.Operand.Field.Name, err = readString(r)
	case OperandText:
		ins.Operand.Text, err = readString(r)
	case OperandOther:
		ins.Operand.Other, err = readString(r)
	}
	if err != nil {
		return Instruction{}, err
	}
	return ins, nil
}
