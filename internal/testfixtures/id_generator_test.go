package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("session")

	first := gen.Next()
	second := gen.Next()

	if first != "session-1" || second != "session-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
}

func TestIDGeneratorDefaultsToTokenPrefix(t *testing.T) {
	gen := NewIDGenerator("")

	if next := gen.Next(); next != "token-1" {
		t.Fatalf("expected token-1, got %q", next)
	}
}

func TestIDGeneratorCanReset(t *testing.T) {
	gen := NewIDGenerator("session")
	_ = gen.Next()
	gen.SetCounter(0)
	gen.SetPrefix("tok")

	if next := gen.Next(); next != "tok-1" {
		t.Fatalf("expected tok-1 after reset, got %q", next)
	}
}
