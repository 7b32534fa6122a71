package encoding

import "strings"

const tailLines = 20

// tailBuffer keeps the last N lines of encoder output for diagnostics.
// ffmpeg writes progress and errors to stderr; only the tail matters when
// the process fails.
type tailBuffer struct {
	lines []string
	max   int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Append(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) Summary() string {
	if len(t.lines) == 0 {
		return "ffmpeg exited with error"
	}
	return "ffmpeg: " + t.lines[len(t.lines)-1]
}

func (t *tailBuffer) Lines() []string {
	cp := make([]string, len(t.lines))
	copy(cp, t.lines)
	return cp
}
