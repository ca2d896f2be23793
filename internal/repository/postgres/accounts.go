package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/repository"
)

var accountColumns = []string{
	"id",
	"email",
	"credential_hash",
	"role",
	"status",
	"tenant_id",
	"plan",
	"venue_name",
	"billing_customer_id",
	"billing_subscription_id",
	"created_at",
	"activated_at",
}

// FindAccountByEmail looks up an account by normalized email.
func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.findAccount(ctx, squirrel.Eq{"email": domain.NormalizeEmail(email)})
}

// FindAccountByID looks up an account by primary key.
func (s *Store) FindAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	return s.findAccount(ctx, squirrel.Eq{"id": id})
}

func (s *Store) findAccount(ctx context.Context, where squirrel.Sqlizer) (*domain.Account, error) {
	stmt, args, err := s.builder.
		Select(accountColumns...).
		From("accounts").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	var (
		account        domain.Account
		role, status   string
		tenantID       sql.NullString
		customerID     sql.NullString
		subscriptionID sql.NullString
		activatedAt    *time.Time
	)
	if err := s.exec.QueryRow(ctx, stmt, args...).Scan(
		&account.ID,
		&account.Email,
		&account.CredentialHash,
		&role,
		&status,
		&tenantID,
		&account.Plan,
		&account.VenueName,
		&customerID,
		&subscriptionID,
		&account.CreatedAt,
		&activatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.Role = domain.Role(role)
	account.Status = domain.AccountStatus(status)
	account.TenantID = nullableString(tenantID)
	account.BillingCustomerID = nullableString(customerID)
	account.BillingSubscriptionID = nullableString(subscriptionID)
	account.ActivatedAt = activatedAt
	return &account, nil
}

// InsertAccount persists a new account. A duplicate email yields repository.ErrConflict.
func (s *Store) InsertAccount(ctx context.Context, account domain.Account) error {
	stmt, args, err := s.builder.Insert("accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			domain.NormalizeEmail(account.Email),
			account.CredentialHash,
			string(account.Role),
			string(account.Status),
			account.TenantID,
			account.Plan,
			account.VenueName,
			account.BillingCustomerID,
			account.BillingSubscriptionID,
			account.CreatedAt,
			account.ActivatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := s.exec.Exec(ctx, stmt, args...); err != nil {
		return mapWriteError("insert account", err)
	}
	return nil
}

// RefreshPendingAccount rewrites the signup-time fields of a still-pending account.
func (s *Store) RefreshPendingAccount(ctx context.Context, account domain.Account) error {
	stmt, args, err := s.builder.Update("accounts").
		Set("credential_hash", account.CredentialHash).
		Set("plan", account.Plan).
		Set("venue_name", account.VenueName).
		Where(squirrel.Eq{"id": account.ID, "status": string(domain.AccountStatusPending)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build refresh account sql: %w", err)
	}

	tag, err := s.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("refresh account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ActivateAccount performs the single pending-to-active transition.
// It reports false when the account is missing or already active.
func (s *Store) ActivateAccount(ctx context.Context, params domain.ActivationParams) (bool, error) {
	stmt, args, err := s.builder.Update("accounts").
		Set("status", string(domain.AccountStatusActive)).
		Set("tenant_id", squirrel.Expr("COALESCE(tenant_id, ?)", params.TenantID)).
		Set("billing_customer_id", squirrel.Expr("COALESCE(?, billing_customer_id)", params.BillingCustomerID)).
		Set("billing_subscription_id", squirrel.Expr("COALESCE(?, billing_subscription_id)", params.BillingSubscriptionID)).
		Set("activated_at", params.ActivatedAt).
		Where(squirrel.Eq{"id": params.AccountID}).
		Where(squirrel.NotEq{"status": string(domain.AccountStatusActive)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build activate account sql: %w", err)
	}

	tag, err := s.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("activate account: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	val := v.String
	return &val
}
