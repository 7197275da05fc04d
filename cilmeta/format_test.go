package cilmeta

import (
	"os"
	"path/filepath"
	"testing"
)

func buildSampleModule() *Module {
	m := NewModule()

	decoder := m.AddType("Obfuscated.Strings", false)
	payload := decoder.AddField("payload", true, SemanticByteSequence)
	payload.SetInitialBytes([]byte{1, 2, 3, 4})
	decoder.AddMethod("A", 0, SemanticTextSequence, false, NewInstructionStream(
		LdcI4(0), LdcI4(0), LdcI4(4), Call("Obfuscated.Strings", "helper"), Ret(),
	))

	caller := m.AddType("App.Program", false)
	caller.AddMethod("Main", 0, SemanticOther, false, NewInstructionStream(
		Call("Obfuscated.Strings", "A"), Ret(),
	))

	return m
}

func TestWriteLoadRoundTrip(t *testing.T) {
	m := buildSampleModule()
	dir := t.TempDir()
	path := filepath.Join(dir, "module.bin")

	if err := m.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	m2, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(m2.Types) != len(m.Types) {
		t.Fatalf("type count: got %d want %d", len(m2.Types), len(m.Types))
	}
	for i, t1 := range m.Types {
		t2 := m2.Types[i]
		if t1.Token != t2.Token {
			t.Errorf("type %d: token not preserved: got %d want %d", i, t2.Token, t1.Token)
		}
		if t1.FullName != t2.FullName {
			t.Errorf("type %d: name mismatch: got %q want %q", i, t2.FullName, t1.FullName)
		}
		for j, m1 := range t1.Methods {
			m2m := t2.Methods[j]
			if m1.Body.Len() != m2m.Body.Len() {
				t.Errorf("type %d method %d: instruction count changed: got %d want %d", i, j, m2m.Body.Len(), m1.Body.Len())
			}
		}
	}

	field := m2.Types[0].FieldByName("payload")
	if field == nil {
		t.Fatal("payload field missing after round trip")
	}
	b, ok := field.InitialBytes()
	if !ok || string(b) != "\x01\x02\x03\x04" {
		t.Errorf("payload bytes not preserved: %v ok=%v", b, ok)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.bin"))
	if err == nil {
		t.Fatal("expected error loading missing file")
	}
	var loadErr *LoadError
	if !asLoadError(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %T: %v", err, err)
	}
}

func asLoadError(err error, target **LoadError) bool {
	le, ok := err.(*LoadError)
	if ok {
		*target = le
	}
	return ok
}

func TestWriteFailsOnUnwritableDir(t *testing.T) {
	m := buildSampleModule()
	err := m.Write(filepath.Join(os.DevNull, "sub", "module.bin"))
	if err == nil {
		t.Fatal("expected write error")
	}
}
