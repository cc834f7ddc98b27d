package spimem

import (
	"fmt"
	"testing"
)

func TestHexDump(t *testing.T) {
	want := "h -> \n00000000  9f ef 40 18                                       |..@.|\n\n <- h"
	got := fmt.Sprintf("h -> %s <- h", hexDump([]byte{0x9f, 0xef, 0x40, 0x18}))
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestGetLogger(t *testing.T) {
	if l := getLogger(IfaceConfig{}); l != nullLogger {
		t.Errorf("got %T, want null logger", l)
	}
	var rec recordLogger
	if l := getLogger(IfaceConfig{Debug: &rec}); l != &rec {
		t.Errorf("got %T, want configured logger", l)
	}
}

type recordLogger struct {
	lines []string
}

func (r *recordLogger) Printf(format string, args ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}
