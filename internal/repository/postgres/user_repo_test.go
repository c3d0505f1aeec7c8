package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
)

func TestUserRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	u := &model.User{
		Email:    "an@example.com",
		PwdHash:  []byte("h"),
		SaltAuth: []byte("s"),
	}

	mock.ExpectExec(`INSERT INTO users \(email, pwd_hash, salt_auth, display_name, photo_url\) VALUES \(\$1, \$2, \$3, \$4, \$5\)`).
		WithArgs(u.Email, u.PwdHash, u.SaltAuth, "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, u))

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(u.Email, u.PwdHash, u.SaltAuth, "", "").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, u), errs.ErrAlreadyExists)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	email := "an@example.com"

	mock.ExpectQuery(`SELECT email, pwd_hash, salt_auth, display_name, photo_url, created_at FROM users WHERE email=\$1`).
		WithArgs(email).
		WillReturnRows(pgxmock.NewRows([]string{"email", "pwd_hash", "salt_auth", "display_name", "photo_url", "created_at"}).
			AddRow(email, []byte("h"), []byte("s"), "An", "", time.Now()))
	u, err := r.GetByEmail(ctx, email)
	require.NoError(t, err)
	require.Equal(t, "An", u.DisplayName)

	mock.ExpectQuery(`SELECT email, pwd_hash, salt_auth, display_name, photo_url, created_at FROM users WHERE email=\$1`).
		WithArgs(email).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByEmail(ctx, email)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserRepo_Updates_And_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewUserRepo(db)
	ctx := context.Background()
	email := "an@example.com"

	mock.ExpectExec(`UPDATE users SET pwd_hash=\$2, salt_auth=\$3 WHERE email=\$1`).
		WithArgs(email, []byte("h2"), []byte("s2")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.SetPassword(ctx, email, []byte("h2"), []byte("s2")))

	mock.ExpectExec(`UPDATE users SET display_name=\$2, photo_url=\$3 WHERE email=\$1`).
		WithArgs(email, "An", "https://img/a").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, r.UpdateDisplay(ctx, email, "An", "https://img/a"), errs.ErrNotFound)

	mock.ExpectExec(`DELETE FROM users WHERE email=\$1`).
		WithArgs(email).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, email))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetTokenRepo_PutTake(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewResetTokenRepo(db)
	ctx := context.Background()
	now := time.Now()
	pr := model.PasswordReset{Email: "an@example.com", TokenHash: []byte("th"), ExpiresAt: now.Add(time.Hour)}

	mock.ExpectExec(`INSERT INTO password_resets \(email, token_hash, expires_at\)`).
		WithArgs(pr.Email, pr.TokenHash, pr.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Put(ctx, pr))

	mock.ExpectQuery(`DELETE FROM password_resets WHERE token_hash=\$1 AND expires_at > \$2 RETURNING email, token_hash, expires_at`).
		WithArgs(pr.TokenHash, now).
		WillReturnRows(pgxmock.NewRows([]string{"email", "token_hash", "expires_at"}).
			AddRow(pr.Email, pr.TokenHash, pr.ExpiresAt))
	got, err := r.Take(ctx, pr.TokenHash, now)
	require.NoError(t, err)
	require.Equal(t, pr.Email, got.Email)

	mock.ExpectQuery(`DELETE FROM password_resets`).
		WithArgs(pr.TokenHash, now).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Take(ctx, pr.TokenHash, now)
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
