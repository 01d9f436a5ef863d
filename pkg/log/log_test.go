package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func Test_GetLogger(t *testing.T) {
	parentCtx := context.Background()

	logger := GetLogger(parentCtx)
	require.NotNil(t, logger)

	subCtx := WithFields(parentCtx, map[string]interface{}{"component": "main", "host": "web01"})
	require.Equal(t, "main", Fields(subCtx)["component"])

	subSubCtx := WithFields(subCtx, map[string]interface{}{"component": "sub"})
	require.Equal(t, "sub", Fields(subSubCtx)["component"])
	require.Equal(t, "web01", Fields(subSubCtx)["host"])

	// parent context is untouched
	require.Equal(t, "main", Fields(subCtx)["component"])
}

func Test_WithLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := logrus.New()
	logger.SetOutput(buf)
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, DisableTimestamp: true})

	ctx := WithLogger(context.Background(), logrus.NewEntry(logger))
	ctx = WithFields(ctx, map[string]interface{}{"run": "1"})

	Warnf(ctx)("could not change local password for '%s'", "admin")
	Debugf(ctx)("hidden at info level")

	require.Contains(t, buf.String(), "level=warning")
	require.Contains(t, buf.String(), "could not change local password for 'admin'")
	require.Contains(t, buf.String(), "run=1")
	require.NotContains(t, buf.String(), "hidden")
}
