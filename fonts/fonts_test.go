package fonts

import "testing"

func TestMeasureString_Empty(t *testing.T) {
	if got := MeasureString("", 12); got != 0 {
		t.Fatalf("empty string width = %v", got)
	}
}

func TestMeasureString_Positive(t *testing.T) {
	if got := MeasureString("John Doe", 12); got <= 0 {
		t.Fatalf("width = %v", got)
	}
}

func TestMeasureString_LongerIsWider(t *testing.T) {
	short := MeasureString("Hi", 12)
	long := MeasureString("Hi there, much longer", 12)
	if long <= short {
		t.Fatalf("longer text not wider: %v vs %v", short, long)
	}
}

func TestMeasureString_ScalesWithSize(t *testing.T) {
	small := MeasureString("Sample", 10)
	large := MeasureString("Sample", 20)
	// Shaping rounds to fixed point, so allow slack around the exact
	// doubling.
	if large < small*1.8 || large > small*2.2 {
		t.Fatalf("width did not scale with size: %v at 10pt, %v at 20pt", small, large)
	}
}

func TestFallbackWidth(t *testing.T) {
	if got := fallbackWidth("abcd", 10); got != 24 {
		t.Fatalf("fallback width = %v, want 24", got)
	}
}
