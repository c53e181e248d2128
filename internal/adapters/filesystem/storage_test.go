package filesystem

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"printvault/internal/domain"
)

func setupTestRoot(t *testing.T) (string, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "printvault-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	// Create an army folder with one unit
	unitPath := filepath.Join(tmpDir, "chaos", "skaven", "clanrats")
	if err := os.MkdirAll(unitPath, 0755); err != nil {
		t.Fatalf("failed to create unit folder: %v", err)
	}
	if err := os.WriteFile(filepath.Join(unitPath, "troop.stl"), []byte("solid troop"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	cleanup := func() {
		os.RemoveAll(tmpDir)
	}

	return tmpDir, cleanup
}

func TestUpload_CreatesFolders(t *testing.T) {
	root, cleanup := setupTestRoot(t)
	defer cleanup()

	s := NewStorage(root)
	p, err := s.Upload(context.Background(), "order/stormcast-eternals/liberators", "preview.jpg", strings.NewReader("jpg"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if p != "order/stormcast-eternals/liberators/preview.jpg" {
		t.Errorf("unexpected path %s", p)
	}

	content, err := os.ReadFile(filepath.Join(root, "order", "stormcast-eternals", "liberators", "preview.jpg"))
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(content) != "jpg" {
		t.Errorf("expected jpg, got %q", content)
	}
}

func TestUpload_Overwrites(t *testing.T) {
	root, cleanup := setupTestRoot(t)
	defer cleanup()

	s := NewStorage(root)
	if _, err := s.Upload(context.Background(), "chaos/skaven/clanrats", "troop.stl", strings.NewReader("v2")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	records, err := s.List(context.Background(), "chaos/skaven/clanrats")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 file after overwrite, got %d: %+v", len(records), records)
	}
	if records[0].Size != 2 {
		t.Errorf("expected size 2, got %d", records[0].Size)
	}
}

func TestUpload_CanceledLeavesNoFile(t *testing.T) {
	root, cleanup := setupTestRoot(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewStorage(root)
	_, err := s.Upload(ctx, "chaos/skaven/clanrats", "new.stl", strings.NewReader("x"))
	if domain.CodeOf(err) != domain.CodeUploadFailed {
		t.Fatalf("expected upload error, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "chaos", "skaven", "clanrats", "new.stl")); !os.IsNotExist(err) {
		t.Errorf("canceled upload left a file behind")
	}
}

func TestDownload(t *testing.T) {
	root, cleanup := setupTestRoot(t)
	defer cleanup()

	s := NewStorage(root)
	body, err := s.Download(context.Background(), "chaos/skaven/clanrats/troop.stl")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if string(data) != "solid troop" {
		t.Errorf("unexpected content %q", data)
	}

	_, err = s.Download(context.Background(), "chaos/skaven/clanrats/missing.stl")
	if !domain.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDelete_MissingFileIsNotFound(t *testing.T) {
	root, cleanup := setupTestRoot(t)
	defer cleanup()

	s := NewStorage(root)
	if err := s.Delete(context.Background(), "chaos/skaven/clanrats/troop.stl"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	err := s.Delete(context.Background(), "chaos/skaven/clanrats/troop.stl")
	if !domain.IsNotFound(err) {
		t.Errorf("expected not found on second delete, got %v", err)
	}

	err = s.Delete(context.Background(), "chaos/skaven")
	if domain.CodeOf(err) != domain.CodeDelete {
		t.Errorf("deleting a folder should fail, got %v", err)
	}
}

func TestList_MissingFolderIsEmpty(t *testing.T) {
	root, cleanup := setupTestRoot(t)
	defer cleanup()

	s := NewStorage(root)
	records, err := s.List(context.Background(), "order/seraphon")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", records)
	}
}

func TestList_HidesTemporaryFiles(t *testing.T) {
	root, cleanup := setupTestRoot(t)
	defer cleanup()

	unit := filepath.Join(root, "chaos", "skaven", "clanrats")
	if err := os.WriteFile(filepath.Join(unit, ".troop.stl.12345"), []byte("partial"), 0644); err != nil {
		t.Fatal(err)
	}

	records, err := NewStorage(root).List(context.Background(), "chaos/skaven/clanrats")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 || records[0].Name != "troop.stl" {
		t.Errorf("expected only troop.stl, got %+v", records)
	}
}

func TestProbe(t *testing.T) {
	root, cleanup := setupTestRoot(t)
	defer cleanup()

	s := NewStorage(root)
	tests := []struct {
		dir  string
		want domain.ProbeState
	}{
		{"", domain.ProbeFound},
		{"chaos/skaven", domain.ProbeFound},
		{"chaos/skaven/clanrats/troop.stl", domain.ProbeNotFound},
		{"order", domain.ProbeNotFound},
		{"../outside", domain.ProbeError},
	}

	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			if got := s.Probe(context.Background(), tt.dir).State; got != tt.want {
				t.Errorf("Probe(%q) = %s, want %s", tt.dir, got, tt.want)
			}
		})
	}
}

func TestPathsCannotEscapeRoot(t *testing.T) {
	root, cleanup := setupTestRoot(t)
	defer cleanup()

	s := NewStorage(filepath.Join(root, "chaos"))
	if _, err := s.Upload(context.Background(), "../order", "x.stl", strings.NewReader("x")); err == nil {
		t.Fatal("expected upload outside root to fail")
	}
	if _, err := os.Stat(filepath.Join(root, "order", "x.stl")); !os.IsNotExist(err) {
		t.Error("file was written outside root")
	}
}

func TestHealth(t *testing.T) {
	root, cleanup := setupTestRoot(t)
	defer cleanup()

	report := NewStorage(root).Health(context.Background())
	if !report.OK() || !report.BaseDirExists {
		t.Errorf("expected healthy report, got %+v", report)
	}

	report = NewStorage(filepath.Join(root, "missing")).Health(context.Background())
	if report.BaseDirExists {
		t.Errorf("missing root reported as existing")
	}
}
