package blobstore

import (
	"io"
	"strings"
	"testing"
)

func TestSaveOpenDelete(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rel, err := store.Save(strings.NewReader("hello world"), "report.pdf")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasSuffix(rel, ".pdf") {
		t.Errorf("saved path %q should keep the extension", rel)
	}

	r, err := store.Open(rel)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("blob content = %q, want %q", data, "hello world")
	}

	if err := store.Delete(rel); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Open(rel); err == nil {
		t.Error("Open() after Delete() should fail")
	}

	// deleting again is not an error
	if err := store.Delete(rel); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := store.Open("../../etc/passwd"); err == nil {
		t.Error("Open() should reject paths escaping the root")
	}
}

func TestSaveStripsDangerousExtension(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rel, err := store.Save(strings.NewReader("x"), "weird.averylongextension")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if strings.Contains(rel, "averylongextension") {
		t.Errorf("oversized extension should be dropped, got %q", rel)
	}
}
