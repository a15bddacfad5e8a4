package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTokenFile(t *testing.T) {
	tf := &tokenFile{path: filepath.Join(t.TempDir(), "nested", "token.json")}

	got, err := tf.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if got != (Tokens{}) {
		t.Fatalf("missing file should load empty tokens, got %+v", got)
	}

	want := Tokens{Username: "ana", Access: "a", Refresh: "r"}
	if err := tf.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(tf.path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("token file mode = %v, want 0600", perm)
	}
	if got, err = tf.Load(); err != nil || got != want {
		t.Fatalf("Load = %+v, %v", got, err)
	}

	if err := tf.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := tf.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestTokenFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := (&tokenFile{path: path}).Load(); err == nil {
		t.Fatalf("expected error for corrupt token file")
	}
}
