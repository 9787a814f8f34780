package logx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentoys/gmcrypto/logx"
)

func decode(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestJSONRecord(t *testing.T) {
	var buf bytes.Buffer
	log := logx.NewLogger(&buf)
	log.Info("hello", "a", 1, "b", "two", "c", true, "err", errors.New("boom"))

	recs := decode(t, &buf)
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "hello", r["msg"])
	assert.Equal(t, "INFO", r["level"])
	assert.NotEmpty(t, r["time"])
	assert.Equal(t, float64(1), r["a"])
	assert.Equal(t, "two", r["b"])
	assert.Equal(t, true, r["c"])
	assert.Equal(t, "boom", r["err"])
}

func TestLevelAndErrorWriter(t *testing.T) {
	var out, errw bytes.Buffer
	log := logx.NewLogger(&out, logx.WithLevel(slog.LevelWarn), logx.WithErrorWriter(&errw))
	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept")
	log.Error("failed")

	recs := decode(t, &out)
	require.Len(t, recs, 1)
	assert.Equal(t, "kept", recs[0]["msg"])

	recs = decode(t, &errw)
	require.Len(t, recs, 1)
	assert.Equal(t, "failed", recs[0]["msg"])
}

func TestGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := logx.NewLogger(&buf).With("session", "s1").WithGroup("step").With("name", "respond")
	log.Info("ok", slog.Group("peer", "uid", "alice"), "n", 2)

	r := decode(t, &buf)[0]
	assert.Equal(t, "s1", r["session"])
	assert.Equal(t, "respond", r["step.name"])
	assert.Equal(t, "alice", r["step.peer.uid"])
	assert.Equal(t, float64(2), r["step.n"])
}

func TestRedact(t *testing.T) {
	var buf bytes.Buffer
	log := logx.NewLogger(&buf, logx.WithRedact("key", "password"))
	log.Info("derive", "key", []byte{1, 2, 3}, slog.Group("cli", "password", "hunter2"), "iterations", 10)

	r := decode(t, &buf)[0]
	assert.Equal(t, "[REDACTED]", r["key"])
	assert.Equal(t, "[REDACTED]", r["cli.password"])
	assert.Equal(t, float64(10), r["iterations"])
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestReplaceAttrAndSource(t *testing.T) {
	var buf bytes.Buffer
	log := logx.NewLogger(&buf,
		logx.WithAddSource(true),
		logx.WithReplaceAttr(func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "drop" {
				return slog.Attr{}
			}
			return a
		}),
	)
	log.Info("x", "drop", 1, "keep", []byte{0xab})

	r := decode(t, &buf)[0]
	assert.NotContains(t, r, "drop")
	assert.Equal(t, "ab", r["keep"])
	assert.Contains(t, r["source"], "json_test.go")
}

func TestDiscard(t *testing.T) {
	assert.False(t, logx.Discard().Enabled(context.Background(), slog.LevelError))
	logx.Discard().Error("nothing")
}

func TestParseLevel(t *testing.T) {
	l, err := logx.ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)

	_, err = logx.ParseLevel("loud")
	assert.Error(t, err)
}
