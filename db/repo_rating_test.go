package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Gin_postgres_redis_book_catalog/models"
)

func Test_CreateRating(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()
	alice := mkUser(t, r, "alice@example.com", models.RoleMembers)
	book := mkBook(t, r, "Clean Architecture", "9780134494166")

	br, err := r.CreateRating(ctx, alice, RatingInput{BookID: book.ID, Rating: ptr(5), Comment: ptr("Great book")})

	require.NoError(t, err)
	assert.Equal(t, 5, br.Rating)
	assert.Equal(t, "Great book", br.Comment)
	require.NotNil(t, br.User)
	assert.Equal(t, "alice@example.com", br.User.Email)
	require.NotNil(t, br.Book)
	assert.Equal(t, "Clean Architecture", br.Book.Title)
}

func Test_CreateRating_Validation(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()
	alice := mkUser(t, r, "alice@example.com", models.RoleMembers)
	book := mkBook(t, r, "Clean Architecture", "9780134494166")

	tests := []struct {
		name  string
		in    RatingInput
		field string
	}{
		{"too low", RatingInput{BookID: book.ID, Rating: ptr(0)}, "rating"},
		{"too high", RatingInput{BookID: book.ID, Rating: ptr(6)}, "rating"},
		{"missing rating", RatingInput{BookID: book.ID}, "rating"},
		{"missing book", RatingInput{Rating: ptr(3)}, "book_id"},
		{"unknown book", RatingInput{BookID: 4242, Rating: ptr(3)}, "book_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CreateRating(ctx, alice, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := r.CreateRating(ctx, nil, RatingInput{BookID: book.ID, Rating: ptr(3)})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func Test_CreateRating_Duplicate_ThenDeleteAllowsAgain(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()
	alice := mkUser(t, r, "alice@example.com", models.RoleMembers)
	book := mkBook(t, r, "Clean Architecture", "9780134494166")
	first, err := r.CreateRating(ctx, alice, RatingInput{BookID: book.ID, Rating: ptr(4)})
	require.NoError(t, err)

	_, err = r.CreateRating(ctx, alice, RatingInput{BookID: book.ID, Rating: ptr(2)})
	assert.ErrorIs(t, err, ErrDuplicateRating)

	require.NoError(t, r.DeleteRating(ctx, alice, first.ID))

	_, err = r.CreateRating(ctx, alice, RatingInput{BookID: book.ID, Rating: ptr(2)})
	assert.NoError(t, err)
}

func Test_UpdateDeleteRating_OwnerOrAdmin(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()
	alice := mkUser(t, r, "alice@example.com", models.RoleMembers)
	bob := mkUser(t, r, "bob@example.com", models.RoleMembers)
	admin := mkUser(t, r, "admin@example.com", models.RoleAdministrators)
	book := mkBook(t, r, "Clean Architecture", "9780134494166")
	br, err := r.CreateRating(ctx, alice, RatingInput{BookID: book.ID, Rating: ptr(4)})
	require.NoError(t, err)

	_, err = r.UpdateRating(ctx, bob, br.ID, RatingInput{Rating: ptr(1)})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, r.DeleteRating(ctx, bob, br.ID), ErrForbidden)
	assert.ErrorIs(t, r.DeleteRating(ctx, nil, br.ID), ErrUnauthorized)

	updated, err := r.UpdateRating(ctx, alice, br.ID, RatingInput{Comment: ptr("changed my mind")})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Rating)
	assert.Equal(t, "changed my mind", updated.Comment)

	_, err = r.UpdateRating(ctx, alice, br.ID, RatingInput{Rating: ptr(9)})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	updated, err = r.UpdateRating(ctx, admin, br.ID, RatingInput{Rating: ptr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Rating)

	require.NoError(t, r.DeleteRating(ctx, admin, br.ID))
	_, err = r.FindRating(ctx, br.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_ListRatings_AndStats(t *testing.T) {
	r := tempRepo(t)
	ctx := context.Background()
	alice := mkUser(t, r, "alice@example.com", models.RoleMembers)
	bob := mkUser(t, r, "bob@example.com", models.RoleMembers)
	a := mkBook(t, r, "Clean Architecture", "9780134494166")
	b := mkBook(t, r, "Dune", "9780441013593")
	_, err := r.CreateRating(ctx, alice, RatingInput{BookID: a.ID, Rating: ptr(5)})
	require.NoError(t, err)
	_, err = r.CreateRating(ctx, bob, RatingInput{BookID: a.ID, Rating: ptr(2)})
	require.NoError(t, err)
	_, err = r.CreateRating(ctx, alice, RatingInput{BookID: b.ID, Rating: ptr(3)})
	require.NoError(t, err)

	forA, err := r.ListRatings(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, forA, 2)

	all, err := r.ListRatings(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := r.ListRatingsByUser(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	stats, err := r.RatingStats(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Count)
	require.NotNil(t, stats.Average)
	assert.InDelta(t, 3.5, *stats.Average, 1e-9)

	empty := mkBook(t, r, "Code Complete", "9780735619678")
	stats, err = r.RatingStats(ctx, empty.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.Count)
	assert.Nil(t, stats.Average)
}
