package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenailandsales/land-api/internal/models"
)

func newUserMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "phone", "last_login", "created_at", "updated_at"}).
		AddRow("u1", "buyer@example.com", "hash", "Buyer", "907-555-0104", nil, now, now)
	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1 LIMIT 1`).
		WithArgs("buyer@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM users WHERE email = \$1 LIMIT 1`).
		WithArgs("taken@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM users WHERE email = \$1 LIMIT 1`).
		WithArgs("free@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}))

	taken, err := repo.ExistsByEmail(context.Background(), "taken@example.com")
	require.NoError(t, err)
	assert.True(t, taken)

	free, err := repo.ExistsByEmail(context.Background(), "free@example.com")
	require.NoError(t, err)
	assert.False(t, free)
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newUserMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "seller@example.com", PasswordHash: "hash", FullName: "Seller"}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
