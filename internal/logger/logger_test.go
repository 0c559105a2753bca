package logger

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "empty defaults to info", in: "", want: zapcore.InfoLevel},
		{name: "debug", in: "debug", want: zapcore.DebugLevel},
		{name: "upper case", in: "WARN", want: zapcore.WarnLevel},
		{name: "warning alias", in: "warning", want: zapcore.WarnLevel},
		{name: "error", in: " error ", want: zapcore.ErrorLevel},
		{name: "unknown", in: "chatty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestZapLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zapcore.InfoLevel, "console")

	l.Debug("hidden %d", 1)
	l.Info("visible %d", 2)
	l.Warn("careful %s", "now")

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "visible 2")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "careful now")
}

func TestZapLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zapcore.DebugLevel, "json")

	l.Error("sample failed for %s", "root@db1:22")

	assert.Contains(t, buf.String(), `"msg":"sample failed for root@db1:22"`)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vitals.log")

	l, closeFn, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)
	l.Debug("to file")
	require.NoError(t, closeFn())

	assert.FileExists(t, path)
}

func TestNew_RejectsBadLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestWithPrefix(t *testing.T) {
	buf := NewBufferLogger()
	l := WithPrefix(buf, "[registry]")

	l.Info("opened %s", "a@b:22")
	l.Warn("probe failed")

	require.Len(t, buf.Messages, 2)
	assert.Equal(t, "[registry] opened a@b:22", buf.Messages[0].Message)
	assert.Equal(t, "warn", buf.Messages[1].Level)

	assert.Same(t, buf, WithPrefix(buf, "").(*BufferLogger))
}

func TestNoopLogger(t *testing.T) {
	l := Noop()
	assert.NotPanics(t, func() {
		l.Debug("debug")
		l.Info("info")
		l.Warn("warn")
		l.Error("error")
	})
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("debug %s", "msg")
	l.Info("info %s", "msg")
	l.Warn("warn %s", "msg")
	l.Error("error %s", "msg")

	require.Len(t, l.Messages, 4)
	assert.Equal(t, "debug", l.Messages[0].Level)
	assert.Equal(t, "debug msg", l.Messages[0].Message)
	assert.True(t, l.HasLevel("warn"))
	assert.True(t, l.Contains("error", "error msg"))
	assert.False(t, l.Contains("info", "error"))

	l.Clear()
	assert.Empty(t, l.Messages)
	assert.False(t, l.HasLevel("warn"))
}

func TestBufferLogger_Concurrent(t *testing.T) {
	l := NewBufferLogger()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Info("message %d", i)
		}(i)
	}
	wg.Wait()

	assert.Len(t, l.Messages, 20)
}

func TestDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	assert.NotNil(t, Default())

	buf := NewBufferLogger()
	SetDefault(buf)
	assert.Equal(t, buf, Default())
}
