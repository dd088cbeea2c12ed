package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func installObserver(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	previous := current.Load()
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { current.Store(previous) })
	return logs
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Setup(Options{Level: "chatty"}))
}

func TestSetInstallsProcessLogger(t *testing.T) {
	logs := installObserver(t)

	Get().Info("hello")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "hello", logs.All()[0].Message)
}

func TestForColumnScopesFields(t *testing.T) {
	logs := installObserver(t)

	ForColumn("orders", "status").Debug("scanning")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "orders", fields["table"])
	assert.Equal(t, "status", fields["column"])
}
