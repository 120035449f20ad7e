package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/host/core"
	"github.com/gocrud/host/di"
	"github.com/gocrud/host/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requestState struct {
	id int
}

func quietLogging(lb *logging.LoggingBuilder) {
	lb.SetMinimumLevel(logging.LogLevelError)
}

func TestRequestScopes(t *testing.T) {
	var wb *Builder
	nextID := 0

	core.NewApplicationBuilder().
		ConfigureLogging(quietLogging).
		Configure(func(ctx *core.BuildContext) {
			di.RegisterScoped[*requestState](ctx.Container(), func() *requestState {
				nextID++
				return &requestState{id: nextID}
			})
		}).
		Configure(Configure(func(b *Builder) {
			wb = b
			b.UseRequestScopes()
			b.Get("/state", func(c *gin.Context) {
				first, err := ResolveScoped[*requestState](c)
				require.NoError(t, err)
				second, err := ResolveScoped[*requestState](c)
				require.NoError(t, err)

				c.String(http.StatusOK, fmt.Sprintf("same=%t id=%d", first == second, first.id))
			})
		})).
		Build()

	w1 := httptest.NewRecorder()
	req1, _ := http.NewRequest("GET", "/state", nil)
	wb.Engine().ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, "same=true id=1", w1.Body.String())

	// 第二个请求拿到新的作用域实例
	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("GET", "/state", nil)
	wb.Engine().ServeHTTP(w2, req2)
	assert.Equal(t, "same=true id=2", w2.Body.String())
}

func TestDiagnosticsEndpoint(t *testing.T) {
	var wb *Builder

	core.NewApplicationBuilder().
		ConfigureLogging(quietLogging).
		Configure(Configure(func(b *Builder) {
			wb = b
			b.EnableDiagnostics("")
		})).
		Build()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/diagnostics/eventbus", nil)
	wb.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Published")
	assert.Contains(t, w.Body.String(), "RequestHandlers")
}

func TestRouteRegistration(t *testing.T) {
	logger := logging.NewLogger()
	builder := NewBuilder(logger)

	builder.Get("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	builder.Post("/echo", func(c *gin.Context) {
		c.String(http.StatusOK, "echo")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	builder.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	// 未注册的路由
	w404 := httptest.NewRecorder()
	req404, _ := http.NewRequest("GET", "/missing", nil)
	builder.Engine().ServeHTTP(w404, req404)
	assert.Equal(t, http.StatusNotFound, w404.Code)
}

func TestRequestScopeWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, RequestScope(c))

	_, err := ResolveScoped[*requestState](c)
	assert.Error(t, err)
}
