package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedLogger(buf *bytes.Buffer) writerLogger {
	return writerLogger{
		mu:  &sync.Mutex{},
		w:   buf,
		now: func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func TestWriterLoggerFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	l := fixedLogger(&buf)

	l.Warn("tool ignored", Fields{"tool": "sentry_get_issue"})

	want := `2024-01-02T03:04:05Z WARN  tool ignored obj={"tool":"sentry_get_issue"}` + "\n"
	if buf.String() != want {
		t.Fatalf("unexpected line:\n got %q\nwant %q", buf.String(), want)
	}
}

func TestWriterLoggerWithoutObject(t *testing.T) {
	var buf bytes.Buffer
	fixedLogger(&buf).Info("ready", nil)
	if !strings.HasSuffix(buf.String(), "INFO  ready\n") {
		t.Fatalf("unexpected line: %q", buf.String())
	}
}

func TestWithMergesBaseFields(t *testing.T) {
	var buf bytes.Buffer
	l := With(fixedLogger(&buf), Fields{"query_id": "q1"})

	l.Error("boom", Fields{"err": "x"})

	if !strings.Contains(buf.String(), `obj={"err":"x","query_id":"q1"}`) {
		t.Fatalf("expected merged fields, got %q", buf.String())
	}
}

func TestDebugDisabledWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	Debug(false, fixedLogger(&buf), "hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestHelpersTolerateNilLogger(t *testing.T) {
	Info(nil, "x", nil)
	Warn(nil, "x", nil)
	Error(nil, "x", nil)
	Debug(true, nil, "x", nil)
}
