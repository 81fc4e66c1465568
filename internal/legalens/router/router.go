// Package router provides legalens service routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/legalens/internal/legalens/handler"
)

// Router registers legalens routes on a gin engine.
type Router struct {
	handler *handler.LegalHandler
}

// New creates a Router.
func New(h *handler.LegalHandler) *Router {
	return &Router{handler: h}
}

// RegisterRoutes registers the legalens routes.
// 保留旧客户端使用的根路径，同时提供 /v1 下的路由。
func (r *Router) RegisterRoutes(engine *gin.Engine) {
	h := r.handler

	engine.Handle(http.MethodPost, "/analyze", h.Analyze)
	engine.Handle(http.MethodPost, "/chatbot", h.Chat)
	engine.Handle(http.MethodPost, "/loan_comparison", h.CompareLoan)
	engine.Handle(http.MethodGet, "/healthz", h.Healthz)
	engine.Handle(http.MethodGet, "/metrics", h.Metrics)

	v1 := engine.Group("/v1")
	{
		v1.Handle(http.MethodPost, "/analyze", h.Analyze)
		v1.Handle(http.MethodPost, "/chatbot", h.Chat)
		v1.Handle(http.MethodPost, "/loan-comparison", h.CompareLoan)

		knowledge := v1.Group("/knowledge")
		{
			knowledge.Handle(http.MethodPost, "/clauses", h.IndexClauses)
		}

		v1.Handle(http.MethodGet, "/stats", h.Stats)
	}

	logger.Info("HTTP routes registered")
}
