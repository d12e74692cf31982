package testfixtures

import "testing"

func TestIDGeneratorSequence(t *testing.T) {
	gen := NewIDGenerator("")

	first, second := gen.Next(), gen.Next()
	if first != "group-1" || second != "group-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}

	if next := NewIDGenerator("jio").Next(); next != "jio-1" {
		t.Fatalf("expected jio-1 for a custom prefix, got %q", next)
	}
}

func TestNilIDGeneratorFunc(t *testing.T) {
	var gen *IDGenerator
	if gen.NextFunc() != nil {
		t.Fatal("expected nil id source from nil generator")
	}
}
