package models

import (
	"log"

	"gorm.io/gorm"
)

// Migrate 自动迁移
func Migrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&User{},
		&Message{},
		&Group{},
		&GroupMessage{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
}
