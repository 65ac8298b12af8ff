package entropy

import "testing"

func TestResolveSeed(t *testing.T) {
	if got := ResolveSeed(42); got != 42 {
		t.Errorf("ResolveSeed(42) = %d, want 42", got)
	}
	for i := 0; i < 20; i++ {
		if got := ResolveSeed(0); got <= 0 {
			t.Fatalf("ResolveSeed(0) = %d, want positive", got)
		}
	}
}
