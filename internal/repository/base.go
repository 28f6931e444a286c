// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"chirp/internal/database"
	"chirp/internal/models"
	"chirp/internal/observability"

	"gorm.io/gorm"
)

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.GetReadDB(); db != nil {
		return db
	}
	return primary
}

// dbError classifies err and logs anything other than a missing row.
func dbError(ctx context.Context, log *observability.RepoLogger, err error, operation, resource string, id interface{}) error {
	wrapped := wrapDBError(err, resource, id)
	if wrapped != nil && !models.IsCode(wrapped, models.CodeNotFound) {
		log.LogError(ctx, err, operation)
	}
	return wrapped
}
