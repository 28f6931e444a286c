package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chirp/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	GlobalFeedGenerationKey = "feed:global:gen"
	GlobalFeedKeyPrefix     = "feed:global:v%d:l%d"
)

// DefaultFeedTTL bounds how long a cached first page can be served.
const DefaultFeedTTL = 30 * time.Second

// GlobalFeedKey names the cached first page of the global feed for a
// generation and page size.
func GlobalFeedKey(generation int64, limit int) string {
	return fmt.Sprintf(GlobalFeedKeyPrefix, generation, limit)
}

// GlobalFeedGeneration returns the current global feed generation. The
// second result is false when caching is unavailable.
func GlobalFeedGeneration(ctx context.Context) (int64, bool) {
	if client == nil {
		return 0, false
	}
	gen, err := client.Get(ctx, GlobalFeedGenerationKey).Int64()
	if err == nil {
		return gen, true
	}
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	observability.Logger.WarnContext(ctx, "feed generation read failed", slog.String("error", err.Error()))
	return 0, false
}

// InvalidateGlobalFeed bumps the feed generation so readers stop using
// pages cached before the write.
func InvalidateGlobalFeed(ctx context.Context) {
	if client == nil {
		return
	}
	if err := client.Incr(ctx, GlobalFeedGenerationKey).Err(); err != nil {
		observability.Logger.WarnContext(ctx, "feed invalidation failed", slog.String("error", err.Error()))
	}
}
