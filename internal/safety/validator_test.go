package safety

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidatorAllowsTargetInsideRoot(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "db_102025.img")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create artifact: %v", err)
	}

	v := NewValidator(dir, nil)
	if err := v.ValidateDeleteTarget(target); err != nil {
		t.Errorf("expected target inside root to be allowed, got %v", err)
	}
}

func TestValidatorBlocksProtectedPath(t *testing.T) {
	v := NewValidator(t.TempDir(), nil)
	if err := v.ValidateDeleteTarget("/etc/passwd"); !errors.Is(err, ErrProtectedPath) {
		t.Errorf("expected ErrProtectedPath, got %v", err)
	}
}

func TestValidatorBlocksOutsideRoot(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()

	v := NewValidator(root, nil)
	if err := v.ValidateDeleteTarget(filepath.Join(other, "a.img")); !errors.Is(err, ErrOutsideAllowed) {
		t.Errorf("expected ErrOutsideAllowed, got %v", err)
	}
}

func TestValidatorBlocksTraversal(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator(dir, nil)

	raw := dir + "/sub/../../../etc/shadow"
	err := v.ValidateDeleteTarget(raw)
	if err == nil {
		t.Error("expected traversal input to be rejected")
	}
}

func TestValidatorRejectsEmptyPath(t *testing.T) {
	v := NewValidator(t.TempDir(), nil)
	if err := v.ValidateDeleteTarget("  "); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("expected ErrInvalidPath, got %v", err)
	}
}
