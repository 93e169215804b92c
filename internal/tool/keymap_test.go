package tool

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadKeymap_Defaults(t *testing.T) {
	keymap, err := LoadKeymap("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if keymap["Return"] != "kp:return" {
		t.Fatalf("expected default Return mapping, got %q", keymap["Return"])
	}
}

func TestLoadKeymap_OverrideMerges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keymap.yaml")
	content := "Return: kp:enter\nSuper: kp:fn\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write keymap: %v", err)
	}

	keymap, err := LoadKeymap(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if keymap["Return"] != "kp:enter" {
		t.Fatalf("override not applied, got %q", keymap["Return"])
	}
	if keymap["Super"] != "kp:fn" {
		t.Fatalf("new key not merged, got %q", keymap["Super"])
	}
	if keymap["Tab"] != "kp:tab" {
		t.Fatalf("default lost after merge, got %q", keymap["Tab"])
	}
}

func TestLoadKeymap_MissingFile(t *testing.T) {
	if _, err := LoadKeymap(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing keymap file")
	}
}

func TestLoadKeymap_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("{{not yaml"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadKeymap(path); err == nil {
		t.Fatal("expected error for malformed keymap file")
	}
}
