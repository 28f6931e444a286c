package database

import "chirp/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UsernameClaim{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.FollowEdge{},
	}
}
