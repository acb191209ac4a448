package telegram

import (
	"strings"
	"testing"
)

func TestSplitMessageKeepsLinesTogether(t *testing.T) {
	var builder strings.Builder
	builder.WriteString(strings.Repeat("a", 3000))
	builder.WriteString("\n\n")
	builder.WriteString(strings.Repeat("b", 2000))
	builder.WriteString("\n")
	builder.WriteString(strings.Repeat("c", 500))

	parts := SplitMessage(builder.String())
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	for i, part := range parts {
		if length := len([]rune(part)); length > messageLimit {
			t.Fatalf("part %d exceeds limit: %d", i, length)
		}
	}
	if parts[0] != strings.Repeat("a", 3000) {
		t.Fatalf("unexpected content in first part")
	}
	if parts[1] != strings.Repeat("b", 2000)+"\n"+strings.Repeat("c", 500) {
		t.Fatalf("unexpected content in second part")
	}
}

func TestSplitMessageHardSplitsLongLine(t *testing.T) {
	parts := SplitMessage(strings.Repeat("я", messageLimit*2+10))
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	if len([]rune(parts[2])) != 10 {
		t.Fatalf("expected 10 runes in tail, got %d", len([]rune(parts[2])))
	}
}

func TestSplitMessageShortText(t *testing.T) {
	parts := SplitMessage(" hello world ")
	if len(parts) != 1 || parts[0] != "hello world" {
		t.Fatalf("unexpected parts: %q", parts)
	}
}

func TestSplitMessageEmpty(t *testing.T) {
	if parts := SplitMessage("   \n  "); len(parts) != 0 {
		t.Fatalf("expected no parts for empty input, got %d", len(parts))
	}
}
