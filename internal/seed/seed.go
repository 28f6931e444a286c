// Package seed provides database seeding utilities for development and testing.
// All data goes through the services so seeded rows obey the same
// invariants as live traffic.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/retry"
	"chirp/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	LikesPerPost    int
	FollowsPerUser  int
	// RandSeed makes a run reproducible; zero picks a random seed.
	RandSeed int64
}

// DefaultOptions is a small but well-connected data set.
var DefaultOptions = Options{
	NumUsers:        20,
	NumPosts:        60,
	CommentsPerPost: 3,
	LikesPerPost:    5,
	FollowsPerUser:  4,
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Likes    int
	Follows  int
}

// Services are the operations the seeder drives.
type Services struct {
	Content    *service.ContentService
	Engagement *service.EngagementService
	Graph      *service.GraphService
	Users      *service.UserService
}

// Seeder populates the database through the services.
type Seeder struct {
	db     *gorm.DB
	svc    Services
	policy retry.Policy
}

var nonUsernameChars = regexp.MustCompile(`[^a-z0-9_]+`)

// NewSeeder creates a Seeder. db is only used by ClearAll.
func NewSeeder(db *gorm.DB, svc Services, policy retry.Policy) *Seeder {
	return &Seeder{db: db, svc: svc, policy: policy}
}

// ClearAll deletes every row of the schema-managed tables.
func (s *Seeder) ClearAll(ctx context.Context) error {
	observability.Logger.InfoContext(ctx, "Clearing existing data")
	// Children first; there are no foreign keys but this keeps partial
	// clears free of orphans.
	for _, model := range []interface{}{
		&models.Comment{},
		&models.Like{},
		&models.Post{},
		&models.FollowEdge{},
		&models.UsernameClaim{},
		&models.User{},
	} {
		if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run creates users, follow edges, posts, comments and likes.
func (s *Seeder) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	faker := gofakeit.New(opts.RandSeed)

	observability.Logger.InfoContext(ctx, "Starting database seeding",
		slog.Int("users", opts.NumUsers), slog.Int("posts", opts.NumPosts))

	users, err := s.createUsers(ctx, faker, opts.NumUsers)
	if err != nil {
		return sum, fmt.Errorf("failed to create users: %w", err)
	}
	sum.Users = len(users)
	if len(users) == 0 {
		return sum, nil
	}

	if sum.Follows, err = s.createFollows(ctx, faker, users, opts.FollowsPerUser); err != nil {
		return sum, fmt.Errorf("failed to create follows: %w", err)
	}

	posts, err := s.createPosts(ctx, faker, users, opts.NumPosts)
	if err != nil {
		return sum, fmt.Errorf("failed to create posts: %w", err)
	}
	sum.Posts = len(posts)

	for _, post := range posts {
		for i := 0; i < opts.CommentsPerPost; i++ {
			author := users[faker.Number(0, len(users)-1)]
			in := service.AddCommentInput{
				PostID:    post.ID,
				AuthorID:  author.ID,
				Content:   faker.Sentence(8),
				CommentID: faker.UUID(),
			}
			// The fixed CommentID makes a retried attempt land on the same row.
			if err := retry.Do(ctx, s.policy, "seed.add_comment", func(ctx context.Context) error {
				_, err := s.svc.Content.AddComment(ctx, in)
				return err
			}); err != nil {
				return sum, fmt.Errorf("failed to add comment: %w", err)
			}
			sum.Comments++
		}

		likes := opts.LikesPerPost
		if likes > len(users) {
			likes = len(users)
		}
		for _, idx := range shuffled(faker, len(users))[:likes] {
			// Toggles are not idempotent, so they are never retried.
			res, err := s.svc.Engagement.ToggleLike(ctx, post.ID, users[idx].ID)
			if err != nil {
				return sum, fmt.Errorf("failed to like post: %w", err)
			}
			if res.Liked {
				sum.Likes++
			}
		}
	}

	observability.Logger.InfoContext(ctx, "Database seeding completed",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("likes", sum.Likes),
		slog.Int("follows", sum.Follows),
	)
	return sum, nil
}

func (s *Seeder) createUsers(ctx context.Context, faker *gofakeit.Faker, n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		p := service.Principal{
			ID:          faker.UUID(),
			DisplayName: faker.Name(),
			PhotoURL:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", faker.UUID()),
		}
		user, err := retry.Value(ctx, s.policy, "seed.ensure_user", func(ctx context.Context) (*models.User, error) {
			return s.svc.Users.EnsureUser(ctx, p)
		})
		if err != nil {
			return nil, err
		}

		bio := faker.Sentence(10)
		if _, err := s.svc.Users.UpdateProfile(ctx, service.UpdateProfileInput{UserID: user.ID, Bio: &bio}); err != nil {
			return nil, err
		}
		name, err := s.claimUsername(ctx, faker, user.ID)
		if err != nil {
			return nil, err
		}
		user.Username = name
		users = append(users, user)
	}
	return users, nil
}

// claimUsername derives a handle from a fake username and retries with a
// numeric suffix while the name is taken.
func (s *Seeder) claimUsername(ctx context.Context, faker *gofakeit.Faker, userID string) (string, error) {
	base := nonUsernameChars.ReplaceAllString(strings.ToLower(faker.Username()), "")
	if len(base) > 14 {
		base = base[:14]
	}
	for len(base) < 3 {
		base += "_"
	}
	name := base
	for attempt := 0; attempt < 10; attempt++ {
		claimed, err := s.svc.Graph.ClaimUsername(ctx, userID, name)
		switch {
		case err == nil:
			return claimed, nil
		case models.IsConflict(err, models.ConflictUsernameTaken):
			name = fmt.Sprintf("%s_%d", base, faker.Number(100, 99999))
		default:
			return "", err
		}
	}
	return "", fmt.Errorf("no free username for %s", userID)
}

func (s *Seeder) createFollows(ctx context.Context, faker *gofakeit.Faker, users []*models.User, perUser int) (int, error) {
	if perUser > len(users)-1 {
		perUser = len(users) - 1
	}
	created := 0
	for i, follower := range users {
		picked := 0
		for _, idx := range shuffled(faker, len(users)) {
			if picked == perUser {
				break
			}
			if idx == i {
				continue
			}
			followingID := users[idx].ID
			if err := retry.Do(ctx, s.policy, "seed.follow", func(ctx context.Context) error {
				return s.svc.Graph.Follow(ctx, follower.ID, followingID)
			}); err != nil {
				return created, err
			}
			picked++
			created++
		}
	}
	return created, nil
}

func (s *Seeder) createPosts(ctx context.Context, faker *gofakeit.Faker, users []*models.User, n int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		in := service.CreatePostInput{
			AuthorID: users[faker.Number(0, len(users)-1)].ID,
			Content:  faker.Paragraph(1, 3, 5, "\n"),
		}
		if faker.Number(0, 2) == 0 {
			in.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", faker.UUID())
		}
		// CreatePost is not idempotent; a retry could duplicate the post.
		post, err := s.svc.Content.CreatePost(observability.WithUserID(ctx, in.AuthorID), in)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// shuffled returns 0..n-1 in random order.
func shuffled(faker *gofakeit.Faker, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	faker.ShuffleInts(out)
	return out
}
