package storage

import (
	"testing"
)

func tempWorkspace(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempWorkspace(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("nb1/block.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("nb1/block.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteEmptyFile(t *testing.T) {
	s := tempWorkspace(t)
	if err := s.Write("nb1/empty.py", nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("nb1/empty.py")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty file, got %d bytes", len(got))
	}
}

func TestDelete(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("del.csv", []byte("a,b\n"))
	if err := s.Delete("del.csv"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.csv"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("old.md", []byte("data"))
	if err := s.Move("old.md", "sub/new.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.md")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.md"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestListFiltersBlockFiles(t *testing.T) {
	s := tempWorkspace(t)
	_ = s.Write("nb/a.md", []byte("a"))
	_ = s.Write("nb/b.py", []byte("b"))
	_ = s.Write("nb/c.csv", []byte("c"))
	_ = s.Write("nb/ignore.txt", []byte("x"))

	metas, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("len = %d, want 3", len(metas))
	}
	for _, m := range metas {
		if m.Checksum == "" {
			t.Errorf("missing checksum for %s", m.Path)
		}
	}
}

func TestPathTraversalRejected(t *testing.T) {
	s := tempWorkspace(t)
	if _, err := s.Read("../outside.md"); err == nil {
		t.Error("traversal read should fail")
	}
	if err := s.Write("../outside.md", []byte("x")); err == nil {
		t.Error("traversal write should fail")
	}
	if err := s.Delete("/etc/passwd"); err == nil {
		t.Error("absolute delete should fail")
	}
}
