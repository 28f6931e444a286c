package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"chirp/internal/config"
	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	MaxDisplayNameLength = 50
	MaxBioLength         = 500
)

// Principal is the signed-in identity as issued by the identity provider.
type Principal struct {
	ID          string
	DisplayName string
	PhotoURL    string
}

// UpdateProfileInput carries the fields to change; nil fields are left as is.
// Photo, when set, is uploaded and replaces PhotoURL.
type UpdateProfileInput struct {
	UserID      string
	DisplayName *string
	Bio         *string
	PhotoURL    *string
	Photo       *models.ImageUpload
}

type UserService struct {
	userRepo  repository.UserRepository
	claimRepo repository.UsernameClaimRepository
	images    *imageUploader
}

func NewUserService(
	userRepo repository.UserRepository,
	claimRepo repository.UsernameClaimRepository,
	images ImageHost,
	cfg *config.Config,
) *UserService {
	return &UserService{
		userRepo:  userRepo,
		claimRepo: claimRepo,
		images:    newImageUploader(images, cfg),
	}
}

// EnsureUser creates the profile on first sign-in. Existing profiles are not modified.
func (s *UserService) EnsureUser(ctx context.Context, p Principal) (user *models.User, err error) {
	ctx, finish := observability.StartOperation(ctx, "user", "ensure_user", attribute.String("user_id", p.ID))
	defer finish(&err)

	if strings.TrimSpace(p.ID) == "" {
		return nil, models.NewValidationError("User ID is required")
	}
	displayName := truncateRunes(strings.TrimSpace(p.DisplayName), MaxDisplayNameLength)
	if _, err := s.userRepo.Create(ctx, &models.User{
		ID:          p.ID,
		DisplayName: displayName,
		PhotoURL:    strings.TrimSpace(p.PhotoURL),
	}); err != nil {
		return nil, err
	}
	return s.getUser(ctx, p.ID)
}

// GetUser returns the profile with its username taken from the claim index.
func (s *UserService) GetUser(ctx context.Context, id string) (user *models.User, err error) {
	ctx, finish := observability.StartOperation(ctx, "user", "get_user", attribute.String("user_id", id))
	defer finish(&err)

	return s.getUser(ctx, id)
}

func (s *UserService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	claim, err := s.claimRepo.GetByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim != nil {
		user.Username = claim.Name
	}
	return user, nil
}

// UpdateProfile validates every field and uploads the photo before writing
// anything, so a failed upload leaves the profile unchanged.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (user *models.User, err error) {
	ctx, finish := observability.StartOperation(ctx, "user", "update_profile", attribute.String("user_id", in.UserID))
	defer finish(&err)

	if strings.TrimSpace(in.UserID) == "" {
		return nil, models.NewValidationError("User ID is required")
	}

	fields := map[string]interface{}{}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return nil, models.NewValidationError("Display name cannot be empty")
		}
		if utf8.RuneCountInString(name) > MaxDisplayNameLength {
			return nil, models.NewValidationError(fmt.Sprintf("Display name too long (max %d characters)", MaxDisplayNameLength))
		}
		fields["display_name"] = name
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if utf8.RuneCountInString(bio) > MaxBioLength {
			return nil, models.NewValidationError(fmt.Sprintf("Bio too long (max %d characters)", MaxBioLength))
		}
		fields["bio"] = bio
	}
	if in.PhotoURL != nil {
		fields["photo_url"] = strings.TrimSpace(*in.PhotoURL)
	}

	if in.Photo != nil {
		// Existence check first so an unknown user does not cost an upload.
		if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
			return nil, err
		}
		url, err := s.images.upload(ctx, *in.Photo)
		if err != nil {
			return nil, err
		}
		fields["photo_url"] = url
	}

	if err := s.userRepo.UpdateProfile(ctx, in.UserID, fields); err != nil {
		return nil, err
	}
	return s.getUser(ctx, in.UserID)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
