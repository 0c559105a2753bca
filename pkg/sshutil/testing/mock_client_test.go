package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_ExactAndPattern(t *testing.T) {
	m := NewMockClient("db1")
	m.SetOutput("hostname", "db1\n")
	m.SetOutput(`^cat /sys/class/thermal/.*`, "45000\n")

	out, _, code, err := m.Exec(context.Background(), "hostname")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "db1\n", string(out))

	out, _, _, err = m.Exec(context.Background(), "cat /sys/class/thermal/thermal_zone0/temp")
	require.NoError(t, err)
	assert.Equal(t, "45000\n", string(out))

	assert.Equal(t, []string{"hostname", "cat /sys/class/thermal/thermal_zone0/temp"}, m.Calls())
	assert.Equal(t, 2, m.CallCount())
}

func TestMockClient_UnknownCommand(t *testing.T) {
	m := NewMockClient("db1")

	_, stderr, code, err := m.Exec(context.Background(), "iostat -dk 1 2")
	require.NoError(t, err)
	assert.Equal(t, 127, code)
	assert.Contains(t, string(stderr), "not found")
}

func TestMockClient_Error(t *testing.T) {
	m := NewMockClient("db1")
	boom := errors.New("session reset")
	m.SetError("echo 1", boom)

	_, _, code, err := m.Exec(context.Background(), "echo 1")
	assert.Equal(t, -1, code)
	assert.ErrorIs(t, err, boom)
}

func TestMockClient_DelayHonoursContext(t *testing.T) {
	m := NewMockClient("db1")
	m.SetCommandResponse("top -bn1", CommandResponse{Stdout: []byte("x"), Delay: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, _, err := m.Exec(ctx, "top -bn1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestMockClient_Close(t *testing.T) {
	m := NewMockClient("db1")
	m.SetOutput("hostname", "db1")
	assert.False(t, m.IsClosed())

	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())

	_, _, _, err := m.Exec(context.Background(), "hostname")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, m.CallCount())
}

func TestMockClient_Metadata(t *testing.T) {
	m := NewMockClient("db1")
	assert.Equal(t, "db1", m.GetHost())
	assert.Equal(t, "db1:22", m.GetAddress())
}
