package keystore

import (
	"path/filepath"
	"testing"
)

func TestOpenGeneratesAndReusesKeypair(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "node.key")

	s1, err := Open(keyPath)
	if err != nil {
		t.Fatalf("Open (generate): %v", err)
	}
	s2, err := Open(keyPath)
	if err != nil {
		t.Fatalf("Open (reuse): %v", err)
	}

	sealed, err := s1.Seal([]byte("hello"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	got, err := s2.Unseal(sealed)
	if err != nil {
		t.Fatalf("Unseal with reloaded key: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestUnsealRejectsTruncatedInput(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "node.key"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Unseal([]byte{0x00}); err != ErrShortBuffer {
		t.Fatalf("err = %v, want ErrShortBuffer", err)
	}
}

func TestSealToFileAndUnsealFromFile(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "node.key"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	profilePath := filepath.Join(dir, "profile.sealed")
	if err := s.SealToFile(profilePath, []byte("app_key: ABCD")); err != nil {
		t.Fatalf("SealToFile: %v", err)
	}
	got, err := s.UnsealFromFile(profilePath)
	if err != nil {
		t.Fatalf("UnsealFromFile: %v", err)
	}
	if string(got) != "app_key: ABCD" {
		t.Fatalf("got %q", got)
	}
}

func TestUnsealFailsWithWrongKey(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(filepath.Join(dir, "a.key"))
	if err != nil {
		t.Fatalf("Open a: %v", err)
	}
	s2, err := Open(filepath.Join(dir, "b.key"))
	if err != nil {
		t.Fatalf("Open b: %v", err)
	}

	sealed, err := s1.Seal([]byte("secret"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := s2.Unseal(sealed); err == nil {
		t.Fatal("expected unseal with the wrong key to fail")
	}
}
