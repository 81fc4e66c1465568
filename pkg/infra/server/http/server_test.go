package http

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/kart-io/legalens/pkg/errors"
	"github.com/kart-io/legalens/pkg/infra/middleware"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/ping", func(c *gin.Context) { c.String(nethttp.StatusOK, "pong") })
	engine.POST("/echo", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(nethttp.StatusRequestEntityTooLarge)
			return
		}
		c.String(nethttp.StatusOK, string(body))
	})
}

func TestNoRouteReturnsEnvelope(t *testing.T) {
	s := NewServer(NewOptions(), middleware.RequestID())
	s.Register(pingRoutes{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(nethttp.MethodGet, "/missing", nil)
	s.Engine().ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`"code":%d`, apierrors.ErrRouteNotFound.Code))
	assert.Contains(t, w.Body.String(), `"request_id"`)
}

func TestBodyLimit(t *testing.T) {
	opts := NewOptions()
	opts.MaxBodyBytes = 4
	s := NewServer(opts)
	s.Register(pingRoutes{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(nethttp.MethodPost, "/echo", strings.NewReader("too large"))
	s.Engine().ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusRequestEntityTooLarge, w.Code)
}

func TestStartStop(t *testing.T) {
	s := NewServer(NewOptions(WithAddr("127.0.0.1:0")))
	s.Register(pingRoutes{})

	require.NoError(t, s.Start(context.Background()))

	resp, err := nethttp.Get("http://" + s.Addr() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func TestStopBeforeStart(t *testing.T) {
	s := NewServer(nil)
	assert.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, "http[gin]", s.Name())
}
