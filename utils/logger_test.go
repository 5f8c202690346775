package utils

import (
	"bytes"
	"errors"
	"testing"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestTextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := &log.Logger{Handler: NewTextHandler(&buf), Level: log.InfoLevel}

	logger.WithField("entries", 3).Info("[Photos] Directory refreshed")
	logger.WithError(errors.New("status 503")).Warn("[Photos] Directory refresh failed")
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, " I [Photos] Directory refreshed entries=3\n")
	assert.Contains(t, out, " W [Photos] Directory refresh failed error=status 503\n")
	assert.NotContains(t, out, "hidden")
}
