package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/repository"
)

// InsertTenant persists a freshly provisioned tenant.
func (s *Store) InsertTenant(ctx context.Context, tenant domain.Tenant) error {
	menu, err := json.Marshal(tenant.Menu)
	if err != nil {
		return fmt.Errorf("encode tenant menu: %w", err)
	}
	menuConfig, err := json.Marshal(tenant.MenuConfig)
	if err != nil {
		return fmt.Errorf("encode tenant menu config: %w", err)
	}

	stmt, args, err := s.builder.Insert("tenants").
		Columns("id", "name", "languages", "default_language", "menu", "menu_config", "created_at").
		Values(
			tenant.ID,
			tenant.Name,
			tenant.Languages,
			tenant.DefaultLanguage,
			menu,
			menuConfig,
			tenant.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert tenant sql: %w", err)
	}

	if _, err := s.exec.Exec(ctx, stmt, args...); err != nil {
		return mapWriteError("insert tenant", err)
	}
	return nil
}

// FindTenantByID loads a tenant with its decoded menu and configuration.
func (s *Store) FindTenantByID(ctx context.Context, id string) (*domain.Tenant, error) {
	stmt, args, err := s.builder.
		Select("id", "name", "languages", "default_language", "menu", "menu_config", "created_at").
		From("tenants").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select tenant sql: %w", err)
	}

	var (
		tenant     domain.Tenant
		menu       []byte
		menuConfig []byte
	)
	if err := s.exec.QueryRow(ctx, stmt, args...).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Languages,
		&tenant.DefaultLanguage,
		&menu,
		&menuConfig,
		&tenant.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}

	if err := json.Unmarshal(menu, &tenant.Menu); err != nil {
		return nil, fmt.Errorf("decode tenant menu: %w", err)
	}
	if err := json.Unmarshal(menuConfig, &tenant.MenuConfig); err != nil {
		return nil, fmt.Errorf("decode tenant menu config: %w", err)
	}
	return &tenant, nil
}

// InsertPublicToken persists the sharing token for a tenant's public menu.
func (s *Store) InsertPublicToken(ctx context.Context, token domain.PublicToken) error {
	stmt, args, err := s.builder.Insert("public_tokens").
		Columns("token", "tenant_id", "tenant_name", "active", "created_at").
		Values(token.Token, token.TenantID, token.TenantName, token.Active, token.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert public token sql: %w", err)
	}

	if _, err := s.exec.Exec(ctx, stmt, args...); err != nil {
		return mapWriteError("insert public token", err)
	}
	return nil
}

// FindPublicTokenByTenant returns the newest active token of a tenant.
func (s *Store) FindPublicTokenByTenant(ctx context.Context, tenantID string) (*domain.PublicToken, error) {
	stmt, args, err := s.builder.
		Select("token", "tenant_id", "tenant_name", "active", "created_at").
		From("public_tokens").
		Where(squirrel.Eq{"tenant_id": tenantID, "active": true}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select public token sql: %w", err)
	}

	var token domain.PublicToken
	if err := s.exec.QueryRow(ctx, stmt, args...).Scan(
		&token.Token,
		&token.TenantID,
		&token.TenantName,
		&token.Active,
		&token.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan public token: %w", err)
	}
	return &token, nil
}
