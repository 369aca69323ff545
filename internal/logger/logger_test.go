package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// captureOutput redirects logger output to a buffer for the duration of a test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()

	originalLevel := Level(currentLevel.Load())
	originalFormat, _ := currentFormat.Load().(string)
	reconfigure()

	t.Cleanup(func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		currentLevel.Store(int32(originalLevel))
		currentFormat.Store(originalFormat)
		reconfigure()
	})
	return buf
}

func decodeJSONLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	return entry
}

// ============================================================================
// Level Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
		skip  []string
	}{
		{"DEBUG", []string{"dbg", "inf", "wrn", "err"}, nil},
		{"INFO", []string{"inf", "wrn", "err"}, []string{"dbg"}},
		{"warn", []string{"wrn", "err"}, []string{"dbg", "inf"}},
		{"ERROR", []string{"err"}, []string{"dbg", "inf", "wrn"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t)
			SetLevel(tt.level)

			Debug("dbg")
			Info("inf")
			Warn("wrn")
			Error("err")

			out := buf.String()
			for _, msg := range tt.want {
				assert.Contains(t, out, "] "+msg)
			}
			for _, msg := range tt.skip {
				assert.NotContains(t, out, "] "+msg)
			}
		})
	}
}

func TestSetLevelIgnoresInvalidValues(t *testing.T) {
	captureOutput(t)
	SetLevel("WARN")
	SetLevel("verbose")

	assert.Equal(t, LevelWarn, Level(currentLevel.Load()))
	assert.True(t, Enabled(LevelError))
	assert.False(t, Enabled(LevelInfo))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

// ============================================================================
// Text Handler Tests
// ============================================================================

func TestTextFormat(t *testing.T) {
	t.Run("RendersLevelMessageAndFields", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")
		SetFormat("text")

		Info("segment fetched", KeyKey, "chunk_0_0", KeyLength, uint64(4096))

		out := buf.String()
		assert.Contains(t, out, "[INFO] segment fetched")
		assert.Contains(t, out, "key=chunk_0_0")
		assert.Contains(t, out, "length=4096")
		assert.True(t, strings.HasSuffix(out, "\n"))
	})

	t.Run("QuotesValuesWithSpaces", func(t *testing.T) {
		buf := captureOutput(t)
		SetFormat("text")

		Warn("transfer failed", KeyError, errors.New("connection reset by peer"))

		assert.Contains(t, buf.String(), `error="connection reset by peer"`)
	})

	t.Run("PrefixesGroups", func(t *testing.T) {
		buf := new(bytes.Buffer)
		h := NewColorTextHandler(buf, nil, false)
		l := slog.New(h).WithGroup("s3").With(KeyBucket, "arrays")

		l.Info("ready", slog.Group("retry", slog.Int("max", 3)))

		out := buf.String()
		assert.Contains(t, out, "s3.bucket=arrays")
		assert.Contains(t, out, "s3.retry.max=3")
	})

	t.Run("SkipsEmptyAttrs", func(t *testing.T) {
		buf := new(bytes.Buffer)
		l := slog.New(NewColorTextHandler(buf, nil, false))

		l.Info("done", Err(nil))

		assert.NotContains(t, buf.String(), "error=")
	})

	t.Run("ColorsLevel", func(t *testing.T) {
		buf := new(bytes.Buffer)
		l := slog.New(NewColorTextHandler(buf, nil, true))

		l.Error("boom")

		assert.Contains(t, buf.String(), colorRed+"ERROR"+colorReset)
	})
}

func TestConcurrentLogging(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("text")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for range 10 {
				Info("segment done", KeySegment, id)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 200)
}

// ============================================================================
// JSON Format Tests
// ============================================================================

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("INFO")
	SetFormat("json")

	Info("chunk read", KeyURI, "dset/0.0", KeySegments, 2)

	entry := decodeJSONLine(t, buf)
	assert.Equal(t, "chunk read", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "dset/0.0", entry["uri"])
	assert.Equal(t, float64(2), entry["segments"])
	assert.Contains(t, entry, "time")
}

func TestSetFormatIgnoresInvalidValues(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("text")
	SetFormat("xml")

	Info("still text")
	assert.Contains(t, buf.String(), "[INFO] still text")
}

// ============================================================================
// Context Logging Tests
// ============================================================================

func TestContextLogging(t *testing.T) {
	t.Run("InjectsLogContextFields", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")
		SetFormat("json")

		lc := &LogContext{
			TraceID:   "abc123",
			SpanID:    "xyz789",
			RequestID: "req-1",
			Operation: "read",
			Bucket:    "arrays",
			BatchID:   "batch-7",
		}
		ctx := WithContext(context.Background(), lc)

		InfoCtx(ctx, "chunk read", "extra_field", "value")

		entry := decodeJSONLine(t, buf)
		assert.Equal(t, "abc123", entry[KeyTraceID])
		assert.Equal(t, "xyz789", entry[KeySpanID])
		assert.Equal(t, "req-1", entry[KeyRequestID])
		assert.Equal(t, "read", entry[KeyOperation])
		assert.Equal(t, "arrays", entry[KeyBucket])
		assert.Equal(t, "batch-7", entry[KeyBatchID])
		assert.Equal(t, "value", entry["extra_field"])
	})

	t.Run("NilContext", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		require.NotPanics(t, func() {
			//nolint:staticcheck // nil context is tolerated
			InfoCtx(nil, "test message")
		})
		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("ContextWithoutLogContext", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("INFO")

		WarnCtx(context.Background(), "test message")
		assert.Contains(t, buf.String(), "test message")
	})
}

func TestLogContext(t *testing.T) {
	t.Run("NewLogContext", func(t *testing.T) {
		lc := NewLogContext("write")
		assert.Equal(t, "write", lc.Operation)
		assert.False(t, lc.StartTime.IsZero())
		assert.GreaterOrEqual(t, lc.DurationMs(), 0.0)
	})

	t.Run("WithersDoNotMutateOriginal", func(t *testing.T) {
		lc := NewLogContext("read")

		lc2 := lc.WithBatch("b1").WithBucket("arrays").WithTrace("t", "s")

		assert.Equal(t, "b1", lc2.BatchID)
		assert.Equal(t, "arrays", lc2.Bucket)
		assert.Equal(t, "t", lc2.TraceID)
		assert.Equal(t, "s", lc2.SpanID)
		assert.Empty(t, lc.BatchID)
		assert.Empty(t, lc.Bucket)
	})

	t.Run("NilIsSafe", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Nil(t, lc.WithBatch("b"))
		assert.Zero(t, lc.DurationMs())
		assert.Nil(t, FromContext(context.Background()))
	})
}

// ============================================================================
// Field Helper Tests
// ============================================================================

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, slog.Attr{}, Err(nil))

	attr := Err(assert.AnError)
	assert.Equal(t, KeyError, attr.Key)

	assert.Equal(t, KeyKey, Key("a/b").Key)
	assert.Equal(t, uint64(10), Offset(10).Value.Uint64())
	assert.Equal(t, int64(2), Segment(2).Value.Int64())
	assert.Equal(t, "s3", Platform("s3").Value.String())
}

// ============================================================================
// Init Tests
// ============================================================================

func TestInit(t *testing.T) {
	t.Run("InitWithWriter", func(t *testing.T) {
		captureOutput(t)
		buf := new(bytes.Buffer)

		InitWithWriter(buf, "DEBUG", "text", false)
		Debug("test message")

		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("InitWithFile", func(t *testing.T) {
		captureOutput(t)
		path := t.TempDir() + "/arraymorph.log"

		require.NoError(t, Init(Config{Level: "INFO", Format: "json", Output: path}))
		Info("to file")
	})

	t.Run("InitWithUnwritableFile", func(t *testing.T) {
		captureOutput(t)
		err := Init(Config{Output: t.TempDir() + "/missing/dir/log"})
		assert.Error(t, err)
	})

	t.Run("InitWithEmptyConfig", func(t *testing.T) {
		captureOutput(t)
		require.NoError(t, Init(Config{}))
	})
}

// ============================================================================
// Benchmark Tests
// ============================================================================

func BenchmarkLogDisabled(b *testing.B) {
	buf := new(bytes.Buffer)
	InitWithWriter(buf, "ERROR", "text", false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Debug("segment fetched", KeyKey, "chunk")
	}
}

func BenchmarkLogText(b *testing.B) {
	buf := new(bytes.Buffer)
	InitWithWriter(buf, "DEBUG", "text", false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Info("segment fetched", KeyKey, "chunk", KeySegment, i)
	}
}
