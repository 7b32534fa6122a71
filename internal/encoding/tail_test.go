package encoding

import (
	"fmt"
	"testing"
)

func TestTailBufferKeepsLastLines(t *testing.T) {
	tail := newTailBuffer(3)
	for i := 0; i < 10; i++ {
		tail.Append(fmt.Sprintf("line %d", i))
	}
	lines := tail.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "line 7" || lines[2] != "line 9" {
		t.Fatalf("unexpected tail: %v", lines)
	}
	if got := tail.Summary(); got != "ffmpeg: line 9" {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestTailBufferSkipsBlankLines(t *testing.T) {
	tail := newTailBuffer(5)
	tail.Append("")
	tail.Append("\r\n")
	if got := tail.Summary(); got != "ffmpeg exited with error" {
		t.Fatalf("unexpected empty summary: %q", got)
	}
}
