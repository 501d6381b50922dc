package observability

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "WARN", "error"} {
		logger, err := NewLogger(level, false)
		require.NoError(t, err, level)
		require.NotNil(t, logger)
	}

	logger, err := NewLogger("debug", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = NewLogger("loud", false)
	assert.Error(t, err)
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	ctx, span := StartSpan(context.Background(), "stage")
	assert.NotNil(t, ctx)
	span.End()
}

func TestMetricsServer(t *testing.T) {
	RunsTotal.WithLabelValues("success").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(RunsTotal.WithLabelValues("success")), 1.0)

	server := NewMetricsServer("127.0.0.1:0", zap.NewNop())
	require.NoError(t, server.Start())
	defer func() { _ = server.Stop(context.Background()) }()

	resp, err := http.Get("http://" + server.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "valknut_runs_total")

	resp, err = http.Get("http://" + server.Addr() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
