package agreement

import (
	"strings"
	"testing"
)

// charMeasure treats every character as 10 units wide.
func charMeasure(s string) float64 { return float64(len(s)) * 10 }

func TestWrapTextFitsWidth(t *testing.T) {
	lines := WrapText("the quick brown fox jumps over the lazy dog", 100, charMeasure)
	if len(lines) == 0 {
		t.Fatal("expected wrapped lines")
	}
	for _, line := range lines {
		if len(strings.Fields(line)) > 1 && charMeasure(line) > 100 {
			t.Fatalf("multi-word line exceeds width: %q", line)
		}
	}
}

func TestWrapTextPreservesWords(t *testing.T) {
	text := "alpha beta gamma delta epsilon"
	lines := WrapText(text, 120, charMeasure)
	joined := strings.Join(lines, " ")
	if joined != text {
		t.Fatalf("words lost or reordered: %q", joined)
	}
}

func TestWrapTextOversizedWordIsolated(t *testing.T) {
	lines := WrapText("a incomprehensibilities b", 100, charMeasure)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", len(lines), lines)
	}
	if lines[1] != "incomprehensibilities" {
		t.Fatalf("oversized word not isolated: %q", lines[1])
	}
}

func TestWrapTextEmpty(t *testing.T) {
	if lines := WrapText("", 100, charMeasure); lines != nil {
		t.Fatalf("expected nil for empty input, got %v", lines)
	}
	if lines := WrapText("   \t  ", 100, charMeasure); lines != nil {
		t.Fatalf("expected nil for whitespace input, got %v", lines)
	}
}

func TestWrapTextTrailingWhitespace(t *testing.T) {
	a := WrapText("alpha beta", 200, charMeasure)
	b := WrapText("alpha beta   ", 200, charMeasure)
	if strings.Join(a, "|") != strings.Join(b, "|") {
		t.Fatalf("trailing whitespace changed output: %v vs %v", a, b)
	}
}

func TestWrapTextSingleShortWord(t *testing.T) {
	lines := WrapText("hi", 100, charMeasure)
	if len(lines) != 1 || lines[0] != "hi" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}
