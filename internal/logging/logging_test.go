package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewWithWriter_Levels(t *testing.T) {
	var quiet bytes.Buffer
	log := NewWithWriter(&quiet, false)
	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("shown", zap.String("k", "v"))

	assert.NotContains(t, quiet.String(), "hidden")
	assert.Contains(t, quiet.String(), "WARN")
	assert.Contains(t, quiet.String(), "shown")
	assert.Contains(t, quiet.String(), `"k": "v"`)

	var verbose bytes.Buffer
	NewWithWriter(&verbose, true).Debug("details")
	assert.Contains(t, verbose.String(), "DEBUG")
	assert.Contains(t, verbose.String(), "details")
}
