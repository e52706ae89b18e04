package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartable-app/cartable/internal/config"
)

func TestApplyConfig_AdjustsGatePacing(t *testing.T) {
	c := newTestClient(t, http.NewServeMux())

	fresh := config.Default()
	fresh.Gate.Delay = 80 * time.Millisecond
	c.ApplyConfig(fresh)

	start := time.Now()
	require.NoError(t, c.gate.Acquire(context.Background()))
	c.gate.Release()
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)

	// A nil reload is ignored.
	c.ApplyConfig(nil)
}
