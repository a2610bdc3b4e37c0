package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/signup-activation/internal/model"
)

// SignupRepo persists signup rows.  All writes that guard an invariant are a
// single statement so that MySQL, not the application, arbitrates races.
type SignupRepo struct{ DB *sql.DB }

func NewSignupRepo(db *sql.DB) *SignupRepo { return &SignupRepo{DB: db} }

const signupColumns = `id, email, first_name, last_name, company_name, company_size, phone,
	migration_type, token_hash, source_address, created_at, expires_at, used_at`

const signupInsertColumns = `id, email, first_name, last_name, company_name, company_size, phone,
	migration_type, token_hash, source_address, created_at, expires_at`

// Create inserts a pending signup and returns its id.  The insert only
// happens if no unused, unexpired row exists for the email; the existence
// check and the insert are one INSERT ... SELECT statement.
func (r *SignupRepo) Create(ctx context.Context, attrs model.SignupAttributes, tokenHash, sourceAddress string, now time.Time) (string, error) {
	id := uuid.NewString()
	createdAt := now.UTC()
	expiresAt := createdAt.Add(model.SignupTTL)

	var phone sql.NullString
	if attrs.Phone != nil {
		phone = sql.NullString{String: *attrs.Phone, Valid: true}
	}

	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO signups (`+signupInsertColumns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ? FROM DUAL
		 WHERE NOT EXISTS (
		   SELECT 1 FROM signups WHERE email = ? AND used_at IS NULL AND expires_at > ?
		 )`,
		id, attrs.Email, attrs.FirstName, attrs.LastName, attrs.CompanyName, attrs.CompanySize, phone,
		attrs.MigrationType, tokenHash, sourceAddress, createdAt, expiresAt,
		attrs.Email, createdAt)
	if err != nil {
		if isDuplicateEntry(err) {
			return "", ErrDuplicateToken
		}
		return "", fmt.Errorf("insert signup: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("insert signup: %w", err)
	}
	if n == 0 {
		return "", ErrDuplicatePending
	}
	return id, nil
}

// FindByTokenHash looks up a signup by the hash of its token.  A missing row
// is reported as found=false with a nil error.
func (r *SignupRepo) FindByTokenHash(ctx context.Context, tokenHash string) (model.Signup, bool, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+signupColumns+" FROM signups WHERE token_hash = ? LIMIT 1", tokenHash)
	s, err := scanSignup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Signup{}, false, nil
	}
	if err != nil {
		return model.Signup{}, false, fmt.Errorf("find signup: %w", err)
	}
	return s, true, nil
}

// MarkUsed sets used_at if and only if it is still NULL.  It reports whether
// this call performed the transition; false means another activation won.
func (r *SignupRepo) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE signups SET used_at = ? WHERE id = ? AND used_at IS NULL", at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("mark signup used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark signup used: %w", err)
	}
	return n == 1, nil
}

// ListByEmail returns every signup for an email, newest first.
func (r *SignupRepo) ListByEmail(ctx context.Context, email string) ([]model.Signup, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+signupColumns+" FROM signups WHERE email = ? ORDER BY created_at DESC LIMIT 50", email)
	if err != nil {
		return nil, fmt.Errorf("list signups: %w", err)
	}
	defer rows.Close()
	var out []model.Signup
	for rows.Next() {
		s, err := scanSignup(rows)
		if err != nil {
			return nil, fmt.Errorf("list signups: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list signups: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignup(row rowScanner) (model.Signup, error) {
	var (
		s     model.Signup
		phone sql.NullString
		used  sql.NullTime
	)
	err := row.Scan(&s.ID, &s.Email, &s.FirstName, &s.LastName, &s.CompanyName, &s.CompanySize, &phone,
		&s.MigrationType, &s.TokenHash, &s.SourceAddress, &s.CreatedAt, &s.ExpiresAt, &used)
	if err != nil {
		return model.Signup{}, err
	}
	if phone.Valid {
		p := phone.String
		s.Phone = &p
	}
	if used.Valid {
		t := used.Time
		s.UsedAt = &t
	}
	return s, nil
}
