package utils

import "testing"

func TestPtr(t *testing.T) {
	v := 0.7
	p := Ptr(v)
	if *p != 0.7 {
		t.Fatalf("expected 0.7, got %v", *p)
	}

	*p = 1
	if v != 0.7 {
		t.Fatalf("expected the original to be untouched, got %v", v)
	}
}
