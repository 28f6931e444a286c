package service

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"chirp/internal/cache"
	"chirp/internal/config"
	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const DefaultFeedLimit = 50

// FeedQuery selects one page. Cursor is the NextCursor of the previous page.
type FeedQuery struct {
	Limit  int
	Cursor string
}

type FeedPage struct {
	Posts []*models.Post `json:"posts"`
	// NextCursor is empty when the page was not full.
	NextCursor string `json:"next_cursor,omitempty"`
}

// FeedService assembles read-only post pages, newest first.
type FeedService struct {
	postRepo repository.PostRepository
	maxLimit int
	cacheTTL time.Duration
}

func NewFeedService(postRepo repository.PostRepository, cfg *config.Config) *FeedService {
	s := &FeedService{
		postRepo: postRepo,
		maxLimit: DefaultFeedLimit,
		cacheTTL: cache.DefaultFeedTTL,
	}
	if cfg != nil {
		if cfg.FeedMaxLimit > 0 && cfg.FeedMaxLimit < DefaultFeedLimit {
			s.maxLimit = cfg.FeedMaxLimit
		}
		if cfg.FeedCacheTTLSeconds > 0 {
			s.cacheTTL = time.Duration(cfg.FeedCacheTTLSeconds) * time.Second
		}
	}
	return s
}

// GlobalFeed returns posts from every author ordered by created_at DESC, id ASC.
// The first page is served through the feed cache.
func (s *FeedService) GlobalFeed(ctx context.Context, q FeedQuery) (page *FeedPage, err error) {
	ctx, finish := observability.StartOperation(ctx, "feed", "global")
	defer finish(&err)

	filter, err := s.filter("", q)
	if err != nil {
		return nil, err
	}

	if filter.After == nil {
		if gen, ok := cache.GlobalFeedGeneration(ctx); ok {
			var cached FeedPage
			// The page is filled from the primary so a lagging replica cannot
			// pin stale posts under the new generation.
			primary := filter
			primary.Primary = true
			_, err := cache.Aside(ctx, cache.GlobalFeedKey(gen, filter.Limit), &cached, s.cacheTTL, func(ctx context.Context) error {
				fetched, err := s.fetch(ctx, primary)
				if err != nil {
					return err
				}
				cached = *fetched
				return nil
			})
			if err != nil {
				return nil, err
			}
			return &cached, nil
		}
	}
	return s.fetch(ctx, filter)
}

// ProfileFeed returns one author's posts in feed order.
func (s *FeedService) ProfileFeed(ctx context.Context, userID string, q FeedQuery) (page *FeedPage, err error) {
	ctx, finish := observability.StartOperation(ctx, "feed", "profile", attribute.String("user_id", userID))
	defer finish(&err)

	if strings.TrimSpace(userID) == "" {
		return nil, models.NewValidationError("User is required")
	}
	filter, err := s.filter(userID, q)
	if err != nil {
		return nil, err
	}
	return s.fetch(ctx, filter)
}

func (s *FeedService) filter(authorID string, q FeedQuery) (repository.PostFilter, error) {
	filter := repository.PostFilter{AuthorID: authorID, Limit: s.normalizeLimit(q.Limit)}
	if q.Cursor != "" {
		after, err := DecodeCursor(q.Cursor)
		if err != nil {
			return filter, err
		}
		filter.After = after
	}
	return filter, nil
}

func (s *FeedService) normalizeLimit(limit int) int {
	if limit <= 0 || limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

func (s *FeedService) fetch(ctx context.Context, filter repository.PostFilter) (*FeedPage, error) {
	posts, err := s.postRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	page := &FeedPage{Posts: posts}
	if len(posts) == filter.Limit {
		last := posts[len(posts)-1]
		page.NextCursor = EncodeCursor(repository.PostCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

// EncodeCursor renders a keyset position as an opaque token.
func EncodeCursor(c repository.PostCursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UTC().UnixNano(), 10) + ":" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor.
func DecodeCursor(token string) (*repository.PostCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, models.NewValidationError("Invalid cursor")
	}
	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return nil, models.NewValidationError("Invalid cursor")
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, models.NewValidationError("Invalid cursor")
	}
	return &repository.PostCursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}
