// Command main runs the database seeder for chirp.
package main

import (
	"context"
	"flag"
	"log"

	"chirp/internal/bootstrap"
	"chirp/internal/config"
	"chirp/internal/observability"
	"chirp/internal/retry"
	"chirp/internal/seed"

	"github.com/google/uuid"
)

func main() {
	opts := seed.DefaultOptions
	flag.IntVar(&opts.NumUsers, "users", opts.NumUsers, "Number of users to create")
	flag.IntVar(&opts.NumPosts, "posts", opts.NumPosts, "Number of posts to create")
	flag.IntVar(&opts.CommentsPerPost, "comments", opts.CommentsPerPost, "Comments per post")
	flag.IntVar(&opts.LikesPerPost, "likes", opts.LikesPerPost, "Likes per post")
	flag.IntVar(&opts.FollowsPerUser, "follows", opts.FollowsPerUser, "Accounts each user follows")
	flag.Int64Var(&opts.RandSeed, "seed", 0, "Random seed (0 = random)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Printf("Target: %d users, %d posts, clean=%v\n", opts.NumUsers, opts.NumPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{ServiceName: "chirp-seed"})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	ctx := observability.WithRequestID(context.Background(), "seed-"+uuid.NewString())
	defer func() { _ = rt.Close(ctx) }()

	s := seed.NewSeeder(rt.DB, seed.Services{
		Content:    rt.Services.Content,
		Engagement: rt.Services.Engagement,
		Graph:      rt.Services.Graph,
		Users:      rt.Services.Users,
	}, retry.PolicyFromConfig(cfg))

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Done: %d users, %d posts, %d comments, %d likes, %d follows",
		sum.Users, sum.Posts, sum.Comments, sum.Likes, sum.Follows)
}
