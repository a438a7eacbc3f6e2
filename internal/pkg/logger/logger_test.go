package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("loud", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewDefaultsToInfo(t *testing.T) {
	l, err := New("", "console")
	require.NoError(t, err)
	assert.False(t, l.Zap().Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Zap().Core().Enabled(zap.InfoLevel))
}

func TestFieldsAndErrorsReachZap(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := Wrap(zap.New(core))

	l.Info("quota checked", map[string]interface{}{"team": "t1"})
	l.Error("memory save failed", errors.New("disk full"), map[string]interface{}{"session": "s1"})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "t1", entries[0].ContextMap()["team"])
	assert.Equal(t, "disk full", entries[1].ContextMap()["error"])
	assert.Equal(t, "s1", entries[1].ContextMap()["session"])
}
