package biz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kart-io/logger"

	"github.com/kart-io/legalens/internal/legalens/metrics"
	"github.com/kart-io/legalens/internal/model"
	apierrors "github.com/kart-io/legalens/pkg/errors"
	"github.com/kart-io/legalens/pkg/infra/tracing"
)

// Submitter 接收条款分析任务，通常由 ants 协程池实现。
type Submitter interface {
	Submit(task func()) error
}

// ResultCache 缓存完整的分析结果，键随知识库代数变化。
type ResultCache interface {
	Generation(ctx context.Context) (int64, bool)
	GetAnalysis(ctx context.Context, gen int64, text string) (*model.AnalysisResult, bool)
	SetAnalysis(ctx context.Context, gen int64, text string, result *model.AnalysisResult)
}

// Pipeline 编排文档分析各阶段。
//
// Classify → {Summary ∥ Entities ∥ Dates} → {Flowchart ∥ Salary} → Chunk → 并行 {Retrieve → Analyze} → Aggregate。
// 每个阶段独立降级，单个条款失败只会让该条款从结果中消失。
type Pipeline struct {
	classifier   *Classifier
	chunker      *Chunker
	retrieval    *RetrievalContextBuilder
	analyzer     *ClauseAnalyzer
	summary      *SummaryStage
	derived      *DerivedStage
	pool         Submitter
	cache        ResultCache
	metrics      *metrics.AnalysisMetrics
	extractDates bool
}

// Analyze 对文档执行完整分析。
func (p *Pipeline) Analyze(ctx context.Context, text string) (result *model.AnalysisResult, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "legalens.analyze", tracing.Int("document.runes", utf8.RuneCountInString(text)))
	defer func() { tracing.End(span, err) }()

	var (
		gen       int64
		cacheable bool
	)
	if p.cache != nil {
		gen, cacheable = p.cache.Generation(ctx)
	}
	if cacheable {
		if cached, ok := p.cache.GetAnalysis(ctx, gen, text); ok {
			p.metrics.RecordAnalysis(time.Since(start), true, nil)
			span.SetAttributes(tracing.Bool("cache.hit", true))
			return cached, nil
		}
	}

	result, complete, err := p.run(ctx, text)
	p.metrics.RecordAnalysis(time.Since(start), false, err)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		tracing.String("document.category", string(result.Category)),
		tracing.Int("clauses", len(result.DetailedAnalysis)),
		tracing.Bool("complete", complete),
	)

	if complete && cacheable {
		p.cache.SetAnalysis(ctx, gen, text, result)
	}
	logger.Infow("document analysis complete",
		"category", result.Category,
		"clauses", len(result.DetailedAnalysis),
		"complete", complete,
		"duration", time.Since(start).String(),
	)
	return result, nil
}

// run 返回结果以及是否所有阶段都成功。
// 分类之前超时返回 ErrAnalysisTimeout；分类之后超时按降级处理，未完成的条款被丢弃。
func (p *Pipeline) run(ctx context.Context, text string) (*model.AnalysisResult, bool, error) {
	category := p.classifier.Classify(ctx, text)
	if err := deadlineErr(ctx); err != nil {
		return nil, false, err
	}
	if !category.Known() {
		p.metrics.RecordUnsupported()
		return nil, false, apierrors.ErrUnsupportedContract
	}
	logger.Infow("detected contract type", "category", category)

	complete := true
	fallback := func(stage metrics.Stage, err error) {
		complete = false
		p.metrics.RecordFallback(stage)
		logger.Warnw("stage failed, using fallback", "stage", stage, "error", err.Error())
	}

	// 第一波：实体、摘要、日期互不依赖。
	var (
		wg          sync.WaitGroup
		entitiesRes Result[string]
		summaryRes  Result[string]
		datesRes    = Ok[[]model.KeyDate](nil)
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		entitiesRes = p.summary.Entities(ctx, text)
	}()
	go func() {
		defer wg.Done()
		summaryRes = p.summary.Summary(ctx, category, text)
	}()
	if p.extractDates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			datesRes = p.derived.KeyDates(ctx, text)
		}()
	}
	wg.Wait()

	result := &model.AnalysisResult{
		Category: category,
		KeyEntities: entitiesRes.OrElseFunc(func(err error) string {
			fallback(metrics.StageEntities, err)
			return EntitiesFallback
		}),
		Summary: summaryRes.OrElseFunc(func(err error) string {
			fallback(metrics.StageSummary, err)
			return SummaryFallback
		}),
		KeyDates: datesRes.OrElseFunc(func(err error) []model.KeyDate {
			fallback(metrics.StageDates, err)
			return nil
		}),
	}

	// 第二波：流程图依赖摘要，薪资仅用于劳动合同。
	flowchartRes := Fail[string](errors.New("summary unavailable"))
	salaryRes := Fail[model.SalaryAnalysis](errors.New("not an employment contract"))
	if summaryRes.IsOk() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			flowchartRes = p.derived.Flowchart(ctx, summaryRes.Value)
		}()
	}
	if category == model.CategoryEmployment {
		wg.Add(1)
		go func() {
			defer wg.Done()
			salaryRes = p.derived.Salary(ctx, text)
		}()
	}
	wg.Wait()

	result.Flowchart = flowchartRes.OrElseFunc(func(err error) string {
		fallback(metrics.StageFlowchart, err)
		return FlowchartFallback
	})
	if category == model.CategoryEmployment {
		salary := salaryRes.OrElseFunc(func(err error) model.SalaryAnalysis {
			fallback(metrics.StageSalary, err)
			return model.SalaryAnalysis{Error: SalaryFailedMessage}
		})
		result.SalaryAnalysis = &salary
	}

	chunks := p.chunker.Split(text)
	result.DetailedAnalysis = p.analyzeChunks(ctx, category, chunks)
	p.metrics.RecordChunks(len(chunks), len(result.DetailedAnalysis))
	if len(result.DetailedAnalysis) < len(chunks) {
		complete = false
	}
	if err := ctx.Err(); err != nil {
		complete = false
		logger.Warnw("analysis deadline reached, returning partial result",
			"clauses", len(result.DetailedAnalysis),
			"chunks", len(chunks),
			"error", err.Error(),
		)
	}
	return result, complete, nil
}

// analyzeChunks 将条款分发到协程池，每个结果写入自己的槽位以保持原文顺序。
func (p *Pipeline) analyzeChunks(ctx context.Context, category model.Category, chunks []string) []model.ClauseAnalysis {
	slots := make([]*model.ClauseAnalysis, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			slots[i] = p.analyzeChunk(ctx, category, i, chunk)
		}
		if p.pool == nil {
			task()
			continue
		}
		if err := p.pool.Submit(task); err != nil {
			logger.Warnw("pool rejected clause task, running inline", "chunk", i+1, "error", err.Error())
			task()
		}
	}
	wg.Wait()

	out := make([]model.ClauseAnalysis, 0, len(chunks))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// analyzeChunk 检索并分析单个条款，任何失败返回 nil。
func (p *Pipeline) analyzeChunk(ctx context.Context, category model.Category, idx int, chunk string) (ca *model.ClauseAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("clause analysis panic", "chunk", idx+1, "error", fmt.Sprint(r))
			ca = nil
		}
	}()

	expertContext, err := p.retrieval.Build(ctx, category, chunk)
	if err != nil {
		logger.Warnw("clause retrieval failed, dropping clause", "chunk", idx+1, "error", err.Error())
		return nil
	}
	judgment, err := p.analyzer.Analyze(ctx, category, chunk, expertContext)
	if err != nil {
		logger.Warnw("clause analysis failed, dropping clause", "chunk", idx+1, "error", err.Error())
		return nil
	}
	return &model.ClauseAnalysis{OriginalClause: chunk, Analysis: judgment}
}

// deadlineErr 请求截止时间已过时返回超时错误，请求被取消时返回分析失败。
func deadlineErr(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return apierrors.ErrAnalysisTimeout
	default:
		return apierrors.ErrAnalysisFailed.WithCause(err)
	}
}
