package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter("test", &buf, LevelInfo)

	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "test - INFO - shown 2")
}

func TestSetWritesWorkerAndMainStreams(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run.log")
	var console bytes.Buffer

	set, err := NewSet(prefix, LevelDebug, &console)
	require.NoError(t, err)

	w0, err := set.Worker(0)
	require.NoError(t, err)
	w1, err := set.Worker(1)
	require.NoError(t, err)

	again, err := set.Worker(0)
	require.NoError(t, err)
	assert.Same(t, w0, again)

	w0.Debug("item from zero")
	w1.Info("summary from one")
	w1.Error("broken in one")
	set.Main().Info("main only")

	require.NoError(t, set.Close())

	zero := readFile(t, prefix+".0")
	one := readFile(t, prefix+".1")
	main := readFile(t, prefix+".main")

	assert.Contains(t, zero, "fanout.0 - DEBUG - item from zero")
	assert.NotContains(t, zero, "summary from one")
	assert.Contains(t, one, "fanout.1 - INFO - summary from one")

	// worker lines are forwarded to the aggregate stream with their own name
	assert.Contains(t, main, "fanout.0 - DEBUG - item from zero")
	assert.Contains(t, main, "fanout.1 - ERROR - broken in one")
	assert.Contains(t, main, "fanout - INFO - main only")

	// console only receives errors, once
	assert.Equal(t, 1, strings.Count(console.String(), "broken in one"))
	assert.NotContains(t, console.String(), "summary from one")
}

func TestWriterSetForwardsWorkersOnce(t *testing.T) {
	var buf bytes.Buffer
	set := NewWriterSet(&buf, LevelInfo)

	w3, err := set.Worker(3)
	require.NoError(t, err)
	w3.Debug("too quiet")
	w3.Info("from three")
	set.Main().Info("from main")
	require.NoError(t, set.Close())

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "fanout.3 - INFO - from three"))
	assert.Contains(t, out, "fanout - INFO - from main")
	assert.NotContains(t, out, "too quiet")
}

func TestWriteAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter("http", &buf, LevelDebug)

	n, err := l.Write([]byte("GET /api/runs 200\n"))
	require.NoError(t, err)
	assert.Equal(t, len("GET /api/runs 200\n"), n)
	assert.Contains(t, buf.String(), "http - INFO - GET /api/runs 200")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
