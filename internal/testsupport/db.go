// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/vitia/backend/internal/auth"
	"github.com/emilythestrangee/vitia/backend/internal/database"
	"github.com/emilythestrangee/vitia/backend/internal/models"
)

// OpenDB returns a migrated in-memory sqlite database that lives for the
// duration of the test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open(":memory:"), logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with the given email and password "password".
func CreateUser(t testing.TB, db *gorm.DB, email string) models.User {
	t.Helper()

	hash, err := auth.HashPassword("password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{Email: email, Name: email, PasswordHash: hash}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func CreateVariety(t testing.TB, db *gorm.DB, name string) models.Variety {
	t.Helper()

	variety := models.Variety{Name: name, Description: name + " grape"}
	if err := db.Create(&variety).Error; err != nil {
		t.Fatalf("create variety %s: %v", name, err)
	}
	return variety
}

func CreatePost(t testing.TB, db *gorm.DB, userID int, title string) models.Post {
	t.Helper()

	post := models.Post{UserID: userID, Title: title, Text: title + " body"}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("create post %s: %v", title, err)
	}
	return post
}

func CreateComment(t testing.TB, db *gorm.DB, postID, userID int, parentID *int, text string) models.Comment {
	t.Helper()

	comment := models.Comment{PostID: postID, UserID: userID, ParentID: parentID, Text: text}
	if err := db.Create(&comment).Error; err != nil {
		t.Fatalf("create comment %q: %v", text, err)
	}
	return comment
}
