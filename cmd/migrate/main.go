// Command migrate runs schema operations for chirp.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"chirp/internal/bootstrap"
	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/models"
	"chirp/internal/observability"

	"github.com/google/uuid"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status|reconcile>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Schema changes only happen on request.
	cfg.DBAutoMigrate = false

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{ServiceName: "chirp-migrate"})
	if err != nil {
		return err
	}
	ctx := observability.WithRequestID(context.Background(), "migrate-"+uuid.NewString())
	defer func() { _ = rt.Close(ctx) }()

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(rt.DB); err != nil {
			return err
		}
		log.Println("automigrations applied")
	case "status":
		for _, model := range database.PersistentModels() {
			name := fmt.Sprintf("%T", model)
			if t, ok := model.(interface{ TableName() string }); ok {
				name = t.TableName()
			}
			log.Printf("%-16s present=%t", name, rt.DB.Migrator().HasTable(model))
		}
	case "reconcile":
		var ids []string
		if err := rt.DB.WithContext(ctx).Model(&models.Post{}).Order("id").Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("list posts: %w", err)
		}
		reconciled, err := reconcileComments(ctx, rt.Services.Content, ids)
		if err != nil {
			return err
		}
		log.Printf("comment counts reconciled for %d posts", reconciled)
	default:
		return usage()
	}

	return nil
}

type commentReconciler interface {
	ReconcileCommentCount(ctx context.Context, postID string) (int, error)
}

// reconcileComments recounts each post in ids. Posts deleted since the ids
// were listed are skipped.
func reconcileComments(ctx context.Context, content commentReconciler, ids []string) (int, error) {
	reconciled := 0
	for _, id := range ids {
		if _, err := content.ReconcileCommentCount(ctx, id); err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				log.Printf("post %s deleted during reconcile, skipping", id)
				continue
			}
			return reconciled, fmt.Errorf("reconcile post %s: %w", id, err)
		}
		reconciled++
	}
	return reconciled, nil
}
