package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName 服务内所有 span 使用的 tracer 名称。
const TracerName = "github.com/kart-io/legalens"

// StartSpan 以全局 tracer 开启 span。
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// End 结束 span，err 非空时记录错误并标记失败。
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceIDFromContext 返回当前 trace ID，没有有效 span 时返回空串。
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// String 创建字符串属性。
func String(key, value string) attribute.KeyValue { return attribute.String(key, value) }

// Int 创建整数属性。
func Int(key string, value int) attribute.KeyValue { return attribute.Int(key, value) }

// Bool 创建布尔属性。
func Bool(key string, value bool) attribute.KeyValue { return attribute.Bool(key, value) }
