package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New("debug", "text", &buf)
		require.NoError(t, err)
		assert.Equal(t, logrus.DebugLevel, log.GetLevel())

		log.WithField("count", 2).Info("Detected 2 signs")
		assert.Contains(t, buf.String(), "Detected 2 signs")
		assert.Contains(t, buf.String(), "count=2")
	})

	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New("info", "JSON", &buf)
		require.NoError(t, err)

		log.Debug("hidden")
		log.WithField("path", "/detect").Warn("slow request")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "slow request", entry["msg"])
		assert.Equal(t, "warning", entry["level"])
		assert.Equal(t, "/detect", entry["path"])
	})

	t.Run("empty format defaults to text", func(t *testing.T) {
		log, err := New("warn", "", &bytes.Buffer{})
		require.NoError(t, err)
		assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := New("loud", "text", &bytes.Buffer{})
		assert.Error(t, err)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := New("info", "xml", &bytes.Buffer{})
		assert.Error(t, err)
	})
}
