package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPackageFunctionsUseCurrentLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	setLogger(zap.New(core, zap.AddCaller()))
	t.Cleanup(func() { setLogger(zap.NewNop()) })

	Info("starting", " refresh")
	Infof("listening on %s", "0.0.0.0:8080")
	Warnf("preload failed: %v", "timeout")
	Errorf("refresh %s failed", "borehole")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "starting refresh", entries[0].Message)
	assert.Equal(t, "listening on 0.0.0.0:8080", entries[1].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Contains(t, entries[1].Caller.File, "log_test.go")
}

func TestGetSugaredLoggerSharesCore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	setLogger(zap.New(core))
	t.Cleanup(func() { setLogger(zap.NewNop()) })

	GetSugaredLogger().Infow("dataset refreshed", "dataset", "groundwater_level")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "groundwater_level", logs.All()[0].ContextMap()["dataset"])
}

func TestInit(t *testing.T) {
	require.NoError(t, Init(true))
	assert.NotNil(t, GetSugaredLogger())
	Sync()
}
