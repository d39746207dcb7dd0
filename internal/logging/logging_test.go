package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn).With("reconciler")

	l.Infof("tick")
	l.Warnf("slow pass duration_ms=%d", 1200)

	out := buf.String()
	assert.NotContains(t, out, "tick")
	assert.Contains(t, out, "WARN reconciler: slow pass duration_ms=1200")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestNilLoggerIsSilent(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Errorf("ignored") })
}
