// Package metrics 提供文档分析服务的业务指标收集。
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Stage 流水线阶段名称。
type Stage string

const (
	StageClassify  Stage = "classify"
	StageEntities  Stage = "entities"
	StageSummary   Stage = "summary"
	StageFlowchart Stage = "flowchart"
	StageSalary    Stage = "salary"
	StageDates     Stage = "dates"
)

var stages = []Stage{StageClassify, StageEntities, StageSummary, StageFlowchart, StageSalary, StageDates}

// AnalysisMetrics 分析服务业务指标。
type AnalysisMetrics struct {
	// 分析请求
	analysesTotal       atomic.Uint64
	analysesUnsupported atomic.Uint64
	analysesErrors      atomic.Uint64
	cacheHits           atomic.Uint64
	cacheMisses         atomic.Uint64

	// 条款
	chunksTotal    atomic.Uint64
	chunksAnalyzed atomic.Uint64
	chunksFailed   atomic.Uint64

	// 阶段降级次数
	fallbacks map[Stage]*atomic.Uint64

	// 外部调用
	llmCallsTotal   atomic.Uint64
	llmCallsErrors  atomic.Uint64
	retrievalTotal  atomic.Uint64
	retrievalErrors atomic.Uint64
	searchTotal     atomic.Uint64
	searchErrors    atomic.Uint64

	// 对话与贷款比较
	chatTotal      atomic.Uint64
	chatErrors     atomic.Uint64
	loanToolCalls  atomic.Uint64
	loanDirect     atomic.Uint64
	loanNoRate     atomic.Uint64
	clausesIndexed atomic.Uint64
	indexErrors    atomic.Uint64

	// 熔断器
	circuitBreakerOpens atomic.Uint64
	circuitBreakerState atomic.Int32

	durationMu        sync.Mutex
	llmDuration       float64
	retrievalDuration float64
	analysisDuration  float64
	startTime         time.Time
}

var (
	globalMetrics *AnalysisMetrics
	metricsOnce   sync.Once
)

// New 创建独立的指标实例。
func New() *AnalysisMetrics {
	m := &AnalysisMetrics{
		fallbacks: make(map[Stage]*atomic.Uint64, len(stages)),
		startTime: time.Now(),
	}
	for _, s := range stages {
		m.fallbacks[s] = new(atomic.Uint64)
	}
	return m
}

// Get 获取全局指标实例。
func Get() *AnalysisMetrics {
	metricsOnce.Do(func() {
		globalMetrics = New()
	})
	return globalMetrics
}

// RecordAnalysis 记录一次分析请求。
func (m *AnalysisMetrics) RecordAnalysis(duration time.Duration, cacheHit bool, err error) {
	m.analysesTotal.Add(1)
	if err != nil {
		m.analysesErrors.Add(1)
		return
	}
	if cacheHit {
		m.cacheHits.Add(1)
		return
	}
	m.cacheMisses.Add(1)

	m.durationMu.Lock()
	m.analysisDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordUnsupported 记录无法分类的文档。
func (m *AnalysisMetrics) RecordUnsupported() {
	m.analysesUnsupported.Add(1)
}

// RecordChunks 记录条款处理结果。
func (m *AnalysisMetrics) RecordChunks(total, analyzed int) {
	m.chunksTotal.Add(uint64(total))
	m.chunksAnalyzed.Add(uint64(analyzed))
	if total > analyzed {
		m.chunksFailed.Add(uint64(total - analyzed))
	}
}

// RecordFallback 记录阶段降级。
func (m *AnalysisMetrics) RecordFallback(stage Stage) {
	if c, ok := m.fallbacks[stage]; ok {
		c.Add(1)
	}
}

// RecordLLMCall 记录一次模型调用。
func (m *AnalysisMetrics) RecordLLMCall(duration time.Duration, err error) {
	m.llmCallsTotal.Add(1)
	if err != nil {
		m.llmCallsErrors.Add(1)
		return
	}
	m.durationMu.Lock()
	m.llmDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordRetrieval 记录一次知识库检索。
func (m *AnalysisMetrics) RecordRetrieval(duration time.Duration, err error) {
	m.retrievalTotal.Add(1)
	if err != nil {
		m.retrievalErrors.Add(1)
		return
	}
	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordSearch 记录一次网络搜索。
func (m *AnalysisMetrics) RecordSearch(err error) {
	m.searchTotal.Add(1)
	if err != nil {
		m.searchErrors.Add(1)
	}
}

// RecordChat 记录一次对话。
func (m *AnalysisMetrics) RecordChat(err error) {
	m.chatTotal.Add(1)
	if err != nil {
		m.chatErrors.Add(1)
	}
}

// RecordLoanComparison 记录贷款比较的结束路径。
func (m *AnalysisMetrics) RecordLoanComparison(toolUsed bool) {
	if toolUsed {
		m.loanToolCalls.Add(1)
		return
	}
	m.loanDirect.Add(1)
}

// RecordRateNotFound 记录未提取到利率。
func (m *AnalysisMetrics) RecordRateNotFound() {
	m.loanNoRate.Add(1)
}

// RecordIndexing 记录知识库写入。
func (m *AnalysisMetrics) RecordIndexing(clauses int, err error) {
	if err != nil {
		m.indexErrors.Add(1)
		return
	}
	m.clausesIndexed.Add(uint64(clauses))
}

// RecordCircuitBreakerState 记录熔断器状态 (0=closed, 1=open, 2=half-open)。
func (m *AnalysisMetrics) RecordCircuitBreakerState(state int32) {
	if state == 1 {
		m.circuitBreakerOpens.Add(1)
	}
	m.circuitBreakerState.Store(state)
}

func rate(hits, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func avg(sum float64, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Stats 返回当前统计信息（用于 API）。
func (m *AnalysisMetrics) Stats() map[string]any {
	m.durationMu.Lock()
	llmDuration := m.llmDuration
	retrievalDuration := m.retrievalDuration
	analysisDuration := m.analysisDuration
	m.durationMu.Unlock()

	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()
	llmTotal, llmErrors := m.llmCallsTotal.Load(), m.llmCallsErrors.Load()
	retrievalTotal, retrievalErrors := m.retrievalTotal.Load(), m.retrievalErrors.Load()

	fallbacks := make(map[string]uint64, len(stages))
	for _, s := range stages {
		fallbacks[string(s)] = m.fallbacks[s].Load()
	}

	cbState := "closed"
	switch m.circuitBreakerState.Load() {
	case 1:
		cbState = "open"
	case 2:
		cbState = "half-open"
	}

	return map[string]any{
		"analyses": map[string]any{
			"total":             m.analysesTotal.Load(),
			"unsupported":       m.analysesUnsupported.Load(),
			"errors":            m.analysesErrors.Load(),
			"cache_hits":        hits,
			"cache_misses":      misses,
			"cache_hit_rate":    rate(hits, hits+misses),
			"avg_duration_secs": avg(analysisDuration, misses),
		},
		"chunks": map[string]any{
			"total":    m.chunksTotal.Load(),
			"analyzed": m.chunksAnalyzed.Load(),
			"failed":   m.chunksFailed.Load(),
		},
		"fallbacks": fallbacks,
		"llm": map[string]any{
			"calls_total":       llmTotal,
			"errors":            llmErrors,
			"avg_duration_secs": avg(llmDuration, llmTotal-llmErrors),
		},
		"retrieval": map[string]any{
			"total":             retrievalTotal,
			"errors":            retrievalErrors,
			"avg_duration_secs": avg(retrievalDuration, retrievalTotal-retrievalErrors),
		},
		"search": map[string]any{
			"total":  m.searchTotal.Load(),
			"errors": m.searchErrors.Load(),
		},
		"chat": map[string]any{
			"total":  m.chatTotal.Load(),
			"errors": m.chatErrors.Load(),
		},
		"loan_comparison": map[string]any{
			"tool_calls":     m.loanToolCalls.Load(),
			"direct_answers": m.loanDirect.Load(),
			"rate_not_found": m.loanNoRate.Load(),
		},
		"knowledge": map[string]any{
			"clauses_indexed": m.clausesIndexed.Load(),
			"errors":          m.indexErrors.Load(),
		},
		"circuit_breaker": map[string]any{
			"state": cbState,
			"opens": m.circuitBreakerOpens.Load(),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

func writeMetric(sb *strings.Builder, name, help, typ string, value any) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", name, typ)
	switch v := value.(type) {
	case float64:
		fmt.Fprintf(sb, "%s %.6f\n\n", name, v)
	default:
		fmt.Fprintf(sb, "%s %v\n\n", name, v)
	}
}

// Export 导出 Prometheus 文本格式指标。
func (m *AnalysisMetrics) Export(namespace string) string {
	var sb strings.Builder
	p := namespace

	writeMetric(&sb, p+"_analyses_total", "Total number of analysis requests.", "counter", m.analysesTotal.Load())
	writeMetric(&sb, p+"_analyses_unsupported_total", "Documents with an unsupported category.", "counter", m.analysesUnsupported.Load())
	writeMetric(&sb, p+"_analyses_errors_total", "Analysis requests that failed.", "counter", m.analysesErrors.Load())
	writeMetric(&sb, p+"_cache_hits_total", "Analyses served from cache.", "counter", m.cacheHits.Load())
	writeMetric(&sb, p+"_cache_misses_total", "Analyses computed.", "counter", m.cacheMisses.Load())
	writeMetric(&sb, p+"_chunks_total", "Clauses produced by the chunker.", "counter", m.chunksTotal.Load())
	writeMetric(&sb, p+"_chunks_failed_total", "Clauses dropped after a failure.", "counter", m.chunksFailed.Load())

	for _, s := range stages {
		name := fmt.Sprintf("%s_stage_fallbacks_total{stage=%q}", p, s)
		fmt.Fprintf(&sb, "%s %d\n", name, m.fallbacks[s].Load())
	}
	sb.WriteString("\n")

	m.durationMu.Lock()
	llmDuration := m.llmDuration
	retrievalDuration := m.retrievalDuration
	m.durationMu.Unlock()

	writeMetric(&sb, p+"_llm_calls_total", "Total number of model calls.", "counter", m.llmCallsTotal.Load())
	writeMetric(&sb, p+"_llm_calls_errors_total", "Model calls that failed.", "counter", m.llmCallsErrors.Load())
	writeMetric(&sb, p+"_llm_calls_duration_seconds_total", "Total model call duration.", "counter", llmDuration)
	writeMetric(&sb, p+"_retrieval_total", "Total knowledge base queries.", "counter", m.retrievalTotal.Load())
	writeMetric(&sb, p+"_retrieval_errors_total", "Knowledge base queries that failed.", "counter", m.retrievalErrors.Load())
	writeMetric(&sb, p+"_retrieval_duration_seconds_total", "Total retrieval duration.", "counter", retrievalDuration)
	writeMetric(&sb, p+"_search_total", "Total web searches.", "counter", m.searchTotal.Load())
	writeMetric(&sb, p+"_circuit_breaker_state", "Circuit breaker state (0=closed, 1=open, 2=half-open).", "gauge", m.circuitBreakerState.Load())
	writeMetric(&sb, p+"_uptime_seconds", "Service uptime in seconds.", "gauge", time.Since(m.startTime).Seconds())

	return sb.String()
}
