package logger

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestGetLogger(t *testing.T) {
	logger := GetLogger()
	assert.NotNil(t, logger)
	assert.IsType(t, &logrus.Logger{}, logger)
}

func TestWithName(t *testing.T) {
	entry := WithName("test-logger")
	assert.NotNil(t, entry)
	assert.Equal(t, "test-logger", entry.Data["name"])
}

func TestWithFields(t *testing.T) {
	entry := WithFields(logrus.Fields{"key1": "value1", "key2": "value2"})
	assert.NotNil(t, entry)
	assert.Equal(t, "value1", entry.Data["key1"])
	assert.Equal(t, "value2", entry.Data["key2"])
}

func TestSetLevel(t *testing.T) {
	originalLevel := defaultLogger.Level
	defer SetLevel(originalLevel)

	SetLevel(logrus.DebugLevel)
	assert.Equal(t, logrus.DebugLevel, defaultLogger.Level)

	SetLevel(logrus.WarnLevel)
	assert.Equal(t, logrus.WarnLevel, defaultLogger.Level)
}

func TestConfigure(t *testing.T) {
	originalLevel := defaultLogger.Level
	originalOut := defaultLogger.Out
	originalEnv := os.Getenv("GO_ENV")
	defer func() {
		SetLevel(originalLevel)
		defaultLogger.Out = originalOut
		os.Setenv("GO_ENV", originalEnv)
	}()

	t.Run("test mode is silent", func(t *testing.T) {
		os.Setenv("GO_ENV", "test")
		assert.NoError(t, Configure("debug"))
	})

	t.Run("valid levels", func(t *testing.T) {
		os.Setenv("GO_ENV", "")
		for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
			assert.NoError(t, Configure(level), "level %s", level)
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		os.Setenv("GO_ENV", "")
		assert.Error(t, Configure("not_a_level"))
	})

	t.Run("case insensitive", func(t *testing.T) {
		os.Setenv("GO_ENV", "")
		assert.NoError(t, Configure("DEBUG"))
	})
}
