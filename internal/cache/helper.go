package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// StartCacheSpan opens a span for a cache lookup. It is nil when the request carries no Sentry hub.
func StartCacheSpan(ctx context.Context, entity, operation string, params map[string]interface{}) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}

	name := "cache." + entity + "." + operation
	span := sentry.StartSpan(ctx, name)
	span.Description = name
	span.Op = "cache"
	span.SetData("entity", entity)
	for k, v := range params {
		span.SetData(k, v)
	}
	return span
}

// FinishSpan finishes span unless it is nil
func FinishSpan(span *sentry.Span) {
	if span != nil {
		span.Finish()
	}
}

// SetSpanHit records whether the lookup was served from the cache
func SetSpanHit(span *sentry.Span, hit bool) {
	if span != nil {
		span.SetData("cache.hit", hit)
	}
}
