package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// BatchInvalidate invalidates multiple patterns in batch
func BatchInvalidate(ctx context.Context, helper *CacheHelper, patterns []string) error {
	var lastErr error
	for _, pattern := range patterns {
		if err := helper.InvalidatePattern(ctx, pattern); err != nil {
			lastErr = err
			slog.ErrorContext(ctx, "Failed to invalidate pattern in batch",
				"error", err,
				"pattern", pattern)
		}
	}
	return lastErr
}

// InvalidateQuestionCache drops one question row plus every derived list
// and pool for its chapter.
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID, chapterID string) {
	SafeDelete(ctx, cm.Question, fmt.Sprintf("id:%s", questionID))
	SafeInvalidatePattern(ctx, cm.Question, fmt.Sprintf("chapter:%s:*", chapterID))
	SafeInvalidatePattern(ctx, cm.Pool, fmt.Sprintf("chapter:%s:*", chapterID))
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("chapter:%s:*", chapterID))
}

// InvalidateProgressCache drops cached progress aggregates after a
// submission folds new results in.
func InvalidateProgressCache(ctx context.Context, cm *CacheManager, studentID, chapterID string) {
	SafeDelete(ctx, cm.Stats,
		fmt.Sprintf("progress:%s:%s", studentID, chapterID),
		fmt.Sprintf("recent:%s", studentID))
	SafeInvalidatePattern(ctx, cm.Stats, "topmarks:*")
}
