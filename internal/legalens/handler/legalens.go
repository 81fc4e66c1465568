// Package handler provides HTTP handlers for the legalens service.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/legalens/internal/legalens/biz"
	"github.com/kart-io/legalens/internal/legalens/metrics"
	"github.com/kart-io/legalens/internal/model"
	apierrors "github.com/kart-io/legalens/pkg/errors"
	"github.com/kart-io/legalens/pkg/infra/middleware"
	"github.com/kart-io/legalens/pkg/response"
)

// MetricsNamespace Prometheus 指标前缀。
const MetricsNamespace = "legalens"

// LegalHandler handles legalens HTTP requests.
// 成功时直接返回业务对象，失败时返回统一的错误信封。
type LegalHandler struct {
	service biz.Service
	metrics *metrics.AnalysisMetrics
}

// NewLegalHandler creates a new LegalHandler.
func NewLegalHandler(service biz.Service, m *metrics.AnalysisMetrics) *LegalHandler {
	if m == nil {
		m = metrics.Get()
	}
	return &LegalHandler{service: service, metrics: m}
}

// fail 将错误转换为错误码并写出信封。
func fail(c *gin.Context, err error) {
	e := apierrors.FromError(err)
	resp := response.Err(e).WithRequestID(middleware.GetRequestID(c)).Stamp()
	if resp.HTTPStatus() >= http.StatusInternalServerError {
		logger.Errorw("request failed",
			"path", c.FullPath(),
			"code", e.Code,
			"error", err.Error(),
			"request_id", resp.RequestID,
		)
	}
	c.AbortWithStatusJSON(resp.HTTPStatus(), resp)
}

// Analyze 分析合同文本。
func (h *LegalHandler) Analyze(c *gin.Context) {
	var req model.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apierrors.ErrInvalidDocument.WithCause(err))
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Chat 回答关于文档的追问。
func (h *LegalHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apierrors.ErrInvalidChatRequest.WithCause(err))
		return
	}

	answer, err := h.service.Chat(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ChatResponse{Answer: answer})
}

// CompareLoan 比较贷款利率与市场利率。
func (h *LegalHandler) CompareLoan(c *gin.Context) {
	var req model.LoanComparisonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apierrors.ErrInvalidLoanRequest.WithCause(err))
		return
	}

	resp, err := h.service.CompareLoan(c.Request.Context(), req.Summary)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// IndexClauses 写入参考条款。
func (h *LegalHandler) IndexClauses(c *gin.Context) {
	var req model.KnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apierrors.ErrInvalidKnowledge.WithCause(err))
		return
	}

	n, err := h.service.IndexClauses(c.Request.Context(), req.Clauses)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, model.KnowledgeResponse{Inserted: n})
}

// Stats returns knowledge base and pipeline statistics.
func (h *LegalHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.GetStats(c.Request.Context()))
}

// Metrics 以 Prometheus 文本格式导出指标。
func (h *LegalHandler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(h.metrics.Export(MetricsNamespace)))
}

// Healthz 存活检查。
func (h *LegalHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
