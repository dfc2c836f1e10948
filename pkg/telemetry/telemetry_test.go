package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	p, err := Init(context.Background(), Config{ServiceName: "checkout-service", Enabled: false})

	require.NoError(t, err)
	assert.Nil(t, p.Tracer)
	assert.Nil(t, p.Meter)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_Enabled(t *testing.T) {
	p, err := Init(context.Background(), Config{
		ServiceName: "checkout-service",
		Endpoint:    "localhost:4318",
		Enabled:     true,
	})

	require.NoError(t, err)
	assert.NotNil(t, p.Tracer)
	assert.NotNil(t, p.Meter)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(ctx)
}
