// Package testdb opens throwaway SQLite databases for package tests.
package testdb

import (
	"path/filepath"
	"testing"

	"puceats-api/config"
	"puceats-api/logging"
	"puceats-api/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// New returns a migrated database stored under t.TempDir.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := config.OpenDB(config.DBConfig{Driver: "sqlite", DSN: dsn}, logging.Discard())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts a user with a cheap password hash and returns its principal.
func CreateUser(t testing.TB, db *gorm.DB, username string, role models.UserRole) models.Principal {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return models.PrincipalOf(&u)
}
