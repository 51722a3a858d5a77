package skills

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDoc_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills.md")
	if err := os.WriteFile(path, []byte("# Skills\n\n- woodworking\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadDoc(path)
	if err != nil {
		t.Fatalf("LoadDoc: %v", err)
	}
	if got != "# Skills\n\n- woodworking" {
		t.Errorf("LoadDoc = %q", got)
	}
}

func TestLoadDoc_Missing(t *testing.T) {
	if _, err := LoadDoc(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadDocs_Joins(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	os.WriteFile(a, []byte("first"), 0o644)
	os.WriteFile(b, []byte("second"), 0o644)

	got, err := LoadDocs([]string{a, b})
	if err != nil {
		t.Fatalf("LoadDocs: %v", err)
	}
	if got != "first\n\nsecond" {
		t.Errorf("LoadDocs = %q", got)
	}
}

func TestLoadDocs_FailsFast(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	os.WriteFile(a, []byte("first"), 0o644)

	if _, err := LoadDocs([]string{a, filepath.Join(dir, "missing.txt")}); err == nil {
		t.Fatal("expected error when one doc is unreadable")
	}
}
