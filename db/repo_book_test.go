package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Gin_postgres_redis_book_catalog/models"
)

func Test_CreateBook(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()
	admin := mkUser(t, r, "admin@example.com", models.RoleAdministrators)
	alice := mkUser(t, r, "alice@example.com", models.RoleMembers)
	in := BookInput{
		Title:     ptr("Clean Architecture"),
		Author:    ptr("Robert Martin"),
		ISBN:      ptr("9780134494166"),
		PageCount: ptr(432),
	}

	_, err := r.CreateBook(ctx, alice, in)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = r.CreateBook(ctx, nil, in)
	assert.ErrorIs(t, err, ErrUnauthorized)

	b, err := r.CreateBook(ctx, admin, in)
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.True(t, b.IsAvailable)

	_, err = r.CreateBook(ctx, admin, in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "isbn", verr.Field)

	audit, err := r.ListAudit(ctx, models.AuditBookCreated, 0)
	require.NoError(t, err)
	assert.Len(t, audit, 1)
}

func Test_CreateBook_Validation(t *testing.T) {
	r := tempRepo(t)
	admin := mkUser(t, r, "admin@example.com", models.RoleAdministrators)

	tests := []struct {
		name  string
		in    BookInput
		field string
	}{
		{"missing title", BookInput{Author: ptr("a"), ISBN: ptr("1")}, "title"},
		{"blank author", BookInput{Title: ptr("t"), Author: ptr("  "), ISBN: ptr("1")}, "author"},
		{"isbn too long", BookInput{Title: ptr("t"), Author: ptr("a"), ISBN: ptr("12345678901234")}, "isbn"},
		{"non-positive pages", BookInput{Title: ptr("t"), Author: ptr("a"), ISBN: ptr("1"), PageCount: ptr(0)}, "page_count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CreateBook(context.Background(), admin, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func Test_UpdateBook_PartialKeepsAvailability(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()
	admin := mkUser(t, r, "admin@example.com", models.RoleAdministrators)
	alice := mkUser(t, r, "alice@example.com", models.RoleMembers)
	book := mkBook(t, r, "Clean Architecture", "9780134494166")
	_, err := r.Checkout(ctx, alice, book.ID)
	require.NoError(t, err)

	updated, err := r.UpdateBook(ctx, admin, book.ID, BookInput{Genre: ptr("Architecture")}, true)

	require.NoError(t, err)
	assert.Equal(t, "Architecture", updated.Genre)
	assert.Equal(t, "Clean Architecture", updated.Title)
	stored, err := r.FindBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAvailable)
	assert.Equal(t, "Architecture", stored.Genre)
}

func Test_UpdateBook_FullRequiresAllFields(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()
	admin := mkUser(t, r, "admin@example.com", models.RoleAdministrators)
	book := mkBook(t, r, "Clean Architecture", "9780134494166")

	_, err := r.UpdateBook(ctx, admin, book.ID, BookInput{Title: ptr("Only title")}, false)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = r.UpdateBook(ctx, admin, 4242, BookInput{Title: ptr("x")}, true)
	assert.ErrorIs(t, err, ErrNotFound)
}
