package db

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Gin_postgres_redis_book_catalog/models"
)

func tempRepo(t *testing.T) *Repo {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "catalog.db") + "?_foreign_keys=on"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(context.Background(), gdb, slog.New(slog.NewTextHandler(io.Discard, nil))))
	return NewRepo(gdb)
}

func mkUser(t *testing.T, r *Repo, email string, roles ...string) *models.User {
	t.Helper()
	ctx := context.Background()
	u := &models.User{ID: uuid.NewString(), Email: email, Username: email}
	require.NoError(t, r.CreateUser(ctx, u))
	for _, name := range roles {
		var role models.Role
		require.NoError(t, r.DB.Where("name = ?", name).First(&role).Error)
		require.NoError(t, r.DB.Model(u).Association("Roles").Append(&role))
	}
	out, err := r.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	return out
}

func mkBook(t *testing.T, r *Repo, title, isbn string) *models.Book {
	t.Helper()
	b := &models.Book{Title: title, Author: "Author of " + title, ISBN: isbn, Genre: "Software", IsAvailable: true}
	require.NoError(t, r.DB.Create(b).Error)
	return b
}

func ptr[T any](v T) *T { return &v }
