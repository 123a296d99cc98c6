package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"atrium/internal/models"
)

var dbSeq atomic.Int64

// OpenDB поднимает in-memory sqlite с полной схемой приложения.
// Именованная shared-база: пул соединений видит одну и ту же БД.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true, // как в internal/db
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Department{},
		&models.Role{},
		&models.MagicToken{},
		&models.RevokedToken{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.TaskAttachment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
