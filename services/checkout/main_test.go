package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPServer_NoWriteDeadline(t *testing.T) {
	// Arrange
	cfg := Config{Port: "8080", OrderTimeout: 60 * time.Second}

	// Act
	srv := newHTTPServer(cfg, http.NotFoundHandler())

	// Assert
	assert.Equal(t, ":8080", srv.Addr)
	assert.Zero(t, srv.WriteTimeout, "a long checkout must still deliver its order id")
	assert.Positive(t, srv.ReadHeaderTimeout)
}

func TestNewHTTPServer_DeliversSlowCheckout(t *testing.T) {
	// Arrange
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(150 * time.Millisecond)
		writeJSON(w, http.StatusMultiStatus, `{"order_id":1001}`)
	})
	ts := httptest.NewUnstartedServer(handler)
	ts.Config = newHTTPServer(Config{}, handler)
	ts.Start()
	t.Cleanup(ts.Close)

	// Act
	resp, err := http.Post(ts.URL+"/api/checkout", "application/json", nil)

	// Assert
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusMultiStatus, resp.StatusCode)
	assert.JSONEq(t, `{"order_id":1001}`, string(body))
}
