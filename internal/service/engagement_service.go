package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"chirp/internal/cache"
	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// maxToggleAttempts bounds how often a flip is re-evaluated after losing a
// race with a concurrent toggle by the same user.
const maxToggleAttempts = 5

// LikeResult is the membership after a toggle and the confirmed like count.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

type EngagementService struct {
	postRepo repository.PostRepository
	likeRepo repository.LikeRepository
}

func NewEngagementService(postRepo repository.PostRepository, likeRepo repository.LikeRepository) *EngagementService {
	return &EngagementService{postRepo: postRepo, likeRepo: likeRepo}
}

// ToggleLike flips userID's membership in the post's like set. Each branch is
// a conditional write on the membership row, so concurrent toggles never
// double-add or double-remove.
func (s *EngagementService) ToggleLike(ctx context.Context, postID, userID string) (result LikeResult, err error) {
	ctx, finish := observability.StartOperation(ctx, "engagement", "toggle_like",
		attribute.String("post_id", postID), attribute.String("user_id", userID))
	defer finish(&err)

	if strings.TrimSpace(userID) == "" {
		return LikeResult{}, models.NewValidationError("User is required")
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return LikeResult{}, err
	}

	decided := false
	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		removed, err := s.likeRepo.Remove(ctx, postID, userID)
		if err != nil {
			return LikeResult{}, err
		}
		if removed {
			result.Liked, decided = false, true
			break
		}

		added, err := s.likeRepo.Add(ctx, postID, userID)
		if err != nil {
			return LikeResult{}, err
		}
		if added {
			result.Liked, decided = true, true
			break
		}
		observability.LikeToggleRetries.Inc()
	}
	if !decided {
		return LikeResult{}, models.NewUpstreamUnavailableError(errors.New("like toggle contention"))
	}

	if result.Liked {
		// A delete may have removed the post between the check and the insert.
		if err := s.requirePost(ctx, postID); err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				if _, rmErr := s.likeRepo.Remove(ctx, postID, userID); rmErr != nil {
					observability.Logger.WarnContext(ctx, "orphan like left behind",
						slog.String("post_id", postID), slog.String("error", rmErr.Error()))
				}
			}
			return LikeResult{}, err
		}
	}

	count, err := s.likeRepo.Count(ctx, postID)
	if err != nil {
		return LikeResult{}, err
	}
	result.LikeCount = count

	cache.InvalidateGlobalFeed(ctx)
	return result, nil
}

// Likers returns the post's like set.
func (s *EngagementService) Likers(ctx context.Context, postID string) (users []string, err error) {
	ctx, finish := observability.StartOperation(ctx, "engagement", "likers", attribute.String("post_id", postID))
	defer finish(&err)

	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	return s.likeRepo.ListUsers(ctx, postID)
}

func (s *EngagementService) requirePost(ctx context.Context, postID string) error {
	if strings.TrimSpace(postID) == "" {
		return models.NewNotFoundError("Post", postID)
	}
	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}
