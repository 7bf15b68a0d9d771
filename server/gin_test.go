package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windofthesky/mysql-router/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinServerServesUntilCancelled(t *testing.T) {
	engine := NewDefaultGinEngine()
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	reg := logging.NewRegistry()
	s := NewGinServer(engine, "127.0.0.1:0", reg.Logger("admin"), GinOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	addr, err := s.Addr(waitCtx)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	assert.ErrorIs(t, s.Start(ctx), ErrServerStarted, "a running server cannot be started again")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestGinServerListenFailure(t *testing.T) {
	s := NewGinServer(NewDefaultGinEngine(), "127.0.0.1:-1", logging.For("admin"), GinOptions{})
	assert.Error(t, s.Start(context.Background()))
}

func TestGinServerStartAfterStop(t *testing.T) {
	s := NewGinServer(NewDefaultGinEngine(), "127.0.0.1:0", logging.For("admin"), GinOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Start(ctx))
	assert.NotPanics(t, func() {
		assert.ErrorIs(t, s.Start(context.Background()), ErrServerStarted)
	})
}
