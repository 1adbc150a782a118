package debug

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"
)

func TestDisabledWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(log.New(&buf, prefix, 0))
	SetEnabled(false)
	Log("hello %d", 1)
	LogTiming("fill", time.Millisecond)
	LogEnterExit("step")()
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestEnabledWritesPrefixedLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(log.New(&buf, prefix, 0))
	SetEnabled(true)
	defer SetEnabled(false)

	Log("sites=%d", 9)
	LogEnterExit("find_clusters")()
	out := buf.String()
	for _, want := range []string{prefix + "sites=9", "-> find_clusters", "<- find_clusters"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}
