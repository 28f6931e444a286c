package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"chirp/internal/config"
	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const DefaultGraphPageSize = 10000

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// FollowStats are the profile counters.
type FollowStats struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

type GraphService struct {
	followRepo repository.FollowRepository
	claimRepo  repository.UsernameClaimRepository
	userRepo   repository.UserRepository
	pageSize   int
}

func NewGraphService(
	followRepo repository.FollowRepository,
	claimRepo repository.UsernameClaimRepository,
	userRepo repository.UserRepository,
	cfg *config.Config,
) *GraphService {
	pageSize := DefaultGraphPageSize
	if cfg != nil && cfg.GraphPageSize > 0 {
		pageSize = cfg.GraphPageSize
	}
	return &GraphService{
		followRepo: followRepo,
		claimRepo:  claimRepo,
		userRepo:   userRepo,
		pageSize:   pageSize,
	}
}

// Follow creates the edge followerID -> followingID. Following twice is a no-op.
func (s *GraphService) Follow(ctx context.Context, followerID, followingID string) (err error) {
	ctx, finish := observability.StartOperation(ctx, "graph", "follow",
		attribute.String("follower_id", followerID), attribute.String("following_id", followingID))
	defer finish(&err)

	if err := validateEdge(followerID, followingID); err != nil {
		return err
	}
	if followerID == followingID {
		return models.NewValidationError("Cannot follow yourself")
	}
	_, err = s.followRepo.Create(ctx, followerID, followingID)
	return err
}

// Unfollow removes the edge if present.
func (s *GraphService) Unfollow(ctx context.Context, followerID, followingID string) (err error) {
	ctx, finish := observability.StartOperation(ctx, "graph", "unfollow",
		attribute.String("follower_id", followerID), attribute.String("following_id", followingID))
	defer finish(&err)

	if err := validateEdge(followerID, followingID); err != nil {
		return err
	}
	_, err = s.followRepo.Delete(ctx, followerID, followingID)
	return err
}

func validateEdge(followerID, followingID string) error {
	if strings.TrimSpace(followerID) == "" || strings.TrimSpace(followingID) == "" {
		return models.NewValidationError("Follower and following user are required")
	}
	return nil
}

// GetFollowers returns up to one page of follower ids, oldest edge first.
func (s *GraphService) GetFollowers(ctx context.Context, userID string) (ids []string, err error) {
	ctx, finish := observability.StartOperation(ctx, "graph", "get_followers", attribute.String("user_id", userID))
	defer finish(&err)

	if strings.TrimSpace(userID) == "" {
		return nil, models.NewValidationError("User is required")
	}
	return s.followRepo.ListFollowers(ctx, userID, s.pageSize)
}

// GetFollowing returns up to one page of followed ids, oldest edge first.
func (s *GraphService) GetFollowing(ctx context.Context, userID string) (ids []string, err error) {
	ctx, finish := observability.StartOperation(ctx, "graph", "get_following", attribute.String("user_id", userID))
	defer finish(&err)

	if strings.TrimSpace(userID) == "" {
		return nil, models.NewValidationError("User is required")
	}
	return s.followRepo.ListFollowing(ctx, userID, s.pageSize)
}

func (s *GraphService) IsFollowing(ctx context.Context, followerID, followingID string) (following bool, err error) {
	ctx, finish := observability.StartOperation(ctx, "graph", "is_following")
	defer finish(&err)

	if err := validateEdge(followerID, followingID); err != nil {
		return false, err
	}
	return s.followRepo.Exists(ctx, followerID, followingID)
}

func (s *GraphService) Stats(ctx context.Context, userID string) (stats FollowStats, err error) {
	ctx, finish := observability.StartOperation(ctx, "graph", "stats", attribute.String("user_id", userID))
	defer finish(&err)

	if strings.TrimSpace(userID) == "" {
		return FollowStats{}, models.NewValidationError("User is required")
	}
	if stats.Followers, err = s.followRepo.CountFollowers(ctx, userID); err != nil {
		return FollowStats{}, err
	}
	if stats.Following, err = s.followRepo.CountFollowing(ctx, userID); err != nil {
		return FollowStats{}, err
	}
	return stats, nil
}

// ClaimUsername reserves name for userID. The claim is a single insert
// guarded by the name primary key and the user_id unique index; the losing
// side of a race reads the index to tell which constraint it hit. Returns the
// stored (lowercased) name.
func (s *GraphService) ClaimUsername(ctx context.Context, userID, name string) (claimed string, err error) {
	ctx, finish := observability.StartOperation(ctx, "graph", "claim_username", attribute.String("user_id", userID))
	defer finish(&err)

	if strings.TrimSpace(userID) == "" {
		return "", models.NewValidationError("User is required")
	}
	if !usernamePattern.MatchString(name) {
		return "", models.NewValidationError("Username must be 3-20 characters: letters, numbers and underscores")
	}
	normalized := strings.ToLower(name)

	ok, err := s.claimRepo.Claim(ctx, normalized, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		existing, err := s.claimRepo.GetByUser(ctx, userID)
		if err != nil {
			return "", err
		}
		if existing != nil {
			return "", models.NewConflictError(models.ConflictAlreadySet, "Username already set")
		}
		return "", models.NewConflictError(models.ConflictUsernameTaken, "Username is taken")
	}

	// The claim is authoritative; the copy on the profile is for display.
	if err := s.userRepo.SetUsername(ctx, userID, normalized); err != nil {
		observability.Logger.WarnContext(ctx, "username not copied to profile",
			slog.String("user_id", userID), slog.String("error", err.Error()))
	}
	return normalized, nil
}
