package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/repository"
)

// UpsertSignupRequest keeps at most one request per email; a new submission replaces the old one.
func (s *Store) UpsertSignupRequest(ctx context.Context, request domain.SignupRequest) error {
	stmt, args, err := s.builder.Insert("signup_requests").
		Columns("id", "email", "plan", "venue_name", "credential_hash", "created_at", "expires_at").
		Values(
			request.ID,
			domain.NormalizeEmail(request.Email),
			request.Plan,
			request.VenueName,
			request.CredentialHash,
			request.CreatedAt,
			request.ExpiresAt,
		).
		Suffix(`ON CONFLICT (email) DO UPDATE SET
			id = EXCLUDED.id,
			plan = EXCLUDED.plan,
			venue_name = EXCLUDED.venue_name,
			credential_hash = EXCLUDED.credential_hash,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert signup request sql: %w", err)
	}

	if _, err := s.exec.Exec(ctx, stmt, args...); err != nil {
		return mapWriteError("upsert signup request", err)
	}
	return nil
}

// FindSignupRequestByID returns an unexpired request or repository.ErrNotFound.
func (s *Store) FindSignupRequestByID(ctx context.Context, id string) (*domain.SignupRequest, error) {
	stmt, args, err := s.builder.
		Select("id", "email", "plan", "venue_name", "credential_hash", "created_at", "expires_at").
		From("signup_requests").
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Gt{"expires_at": s.now()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select signup request sql: %w", err)
	}

	var request domain.SignupRequest
	if err := s.exec.QueryRow(ctx, stmt, args...).Scan(
		&request.ID,
		&request.Email,
		&request.Plan,
		&request.VenueName,
		&request.CredentialHash,
		&request.CreatedAt,
		&request.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan signup request: %w", err)
	}
	return &request, nil
}

// DeleteSignupRequest removes a request; deleting a missing row is not an error.
func (s *Store) DeleteSignupRequest(ctx context.Context, id string) error {
	stmt, args, err := s.builder.Delete("signup_requests").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete signup request sql: %w", err)
	}
	if _, err := s.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete signup request: %w", err)
	}
	return nil
}
