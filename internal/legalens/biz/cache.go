package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/legalens/internal/model"
	"github.com/kart-io/legalens/pkg/utils/json"
)

// AnalysisCacheConfig 分析缓存配置。
type AnalysisCacheConfig struct {
	// TTL 缓存过期时间。
	TTL time.Duration
	// KeyPrefix 缓存键前缀。
	KeyPrefix string
}

// AnalysisCache 基于 Redis 缓存分类标签和完整分析结果。
// 分析结果的键包含知识库代数，知识库写入后代数递增，旧结果不再命中。
// 任何 Redis 错误只记录日志，不影响请求。
type AnalysisCache struct {
	redis  goredis.UniversalClient
	config *AnalysisCacheConfig
}

var (
	_ CategoryCache = (*AnalysisCache)(nil)
	_ ResultCache   = (*AnalysisCache)(nil)
)

// NewAnalysisCache 创建分析缓存实例。
func NewAnalysisCache(redis goredis.UniversalClient, config *AnalysisCacheConfig) *AnalysisCache {
	if config == nil {
		config = &AnalysisCacheConfig{TTL: 24 * time.Hour, KeyPrefix: "legalens:"}
	}
	return &AnalysisCache{redis: redis, config: config}
}

// documentHash 返回文档内容的 SHA256 十六进制摘要。
func documentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (c *AnalysisCache) categoryKey(text string) string {
	return c.config.KeyPrefix + "category:" + documentHash(text)
}

func (c *AnalysisCache) analysisKey(gen int64, text string) string {
	return c.config.KeyPrefix + "analysis:" + strconv.FormatInt(gen, 10) + ":" + documentHash(text)
}

func (c *AnalysisCache) generationKey() string {
	return c.config.KeyPrefix + "kb:generation"
}

func (c *AnalysisCache) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			logger.Warnw("failed to get from cache", "error", err.Error(), "key", key)
		}
		return nil, false
	}
	return data, true
}

func (c *AnalysisCache) set(ctx context.Context, key string, value any) {
	if err := c.redis.Set(ctx, key, value, c.config.TTL).Err(); err != nil {
		logger.Warnw("failed to set cache", "error", err.Error(), "key", key)
	}
}

// GetCategory 读取缓存的分类。
func (c *AnalysisCache) GetCategory(ctx context.Context, text string) (model.Category, bool) {
	data, ok := c.get(ctx, c.categoryKey(text))
	if !ok {
		return model.CategoryUnknown, false
	}
	category := model.ParseCategory(string(data))
	return category, category.Known()
}

// SetCategory 写入分类。
func (c *AnalysisCache) SetCategory(ctx context.Context, text string, category model.Category) {
	c.set(ctx, c.categoryKey(text), string(category))
}

// Generation 返回当前知识库代数，Redis 不可用时 ok 为 false。
func (c *AnalysisCache) Generation(ctx context.Context) (int64, bool) {
	gen, err := c.redis.Get(ctx, c.generationKey()).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, true
		}
		logger.Warnw("failed to read knowledge generation", "error", err.Error())
		return 0, false
	}
	return gen, true
}

// GetAnalysis 读取缓存的分析结果，损坏的条目会被删除。
func (c *AnalysisCache) GetAnalysis(ctx context.Context, gen int64, text string) (*model.AnalysisResult, bool) {
	key := c.analysisKey(gen, text)
	data, ok := c.get(ctx, key)
	if !ok {
		return nil, false
	}

	var result model.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warnw("failed to unmarshal cached analysis", "error", err.Error(), "key", key)
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	logger.Debugw("analysis cache hit", "key", key)
	return &result, true
}

// SetAnalysis 写入分析结果，gen 为分析开始时读取的代数。
func (c *AnalysisCache) SetAnalysis(ctx context.Context, gen int64, text string, result *model.AnalysisResult) {
	data, err := json.Marshal(result)
	if err != nil {
		logger.Warnw("failed to marshal analysis for caching", "error", err.Error())
		return
	}
	c.set(ctx, c.analysisKey(gen, text), data)
}

// InvalidateAnalyses 递增知识库代数并删除已缓存的分析结果，分类缓存保留。
func (c *AnalysisCache) InvalidateAnalyses(ctx context.Context) (int, error) {
	if err := c.redis.Incr(ctx, c.generationKey()).Err(); err != nil {
		return 0, err
	}
	deleted := 0
	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"analysis:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete cache key", "error", err.Error(), "key", iter.Val())
			continue
		}
		deleted++
	}
	return deleted, iter.Err()
}

// Stats 返回缓存键数量等信息。
func (c *AnalysisCache) Stats(ctx context.Context) (map[string]any, error) {
	gen, _ := c.Generation(ctx)
	count := 0
	iter := c.redis.Scan(ctx, 0, c.config.KeyPrefix+"analysis:*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return map[string]any{
		"enabled":        true,
		"cached_results": count,
		"ttl":            c.config.TTL.String(),
		"key_prefix":     c.config.KeyPrefix,
		"generation":     gen,
	}, nil
}
