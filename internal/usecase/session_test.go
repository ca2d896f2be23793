package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/infra/security"
)

func newTestSessionManager(t *testing.T, store *memStore) *SessionManager {
	t.Helper()
	signer, err := security.NewSessionSigner(testSessionSecret, "menu-accounts", nil)
	if err != nil {
		t.Fatalf("NewSessionSigner returned error: %v", err)
	}
	manager, err := NewSessionManager(signer, store, 0)
	if err != nil {
		t.Fatalf("NewSessionManager returned error: %v", err)
	}
	return manager
}

func TestSessionManager_IssueAndParse(t *testing.T) {
	manager := newTestSessionManager(t, newMemStore())
	tenantID := "6b2d3c1e-0000-4000-8000-000000000001"

	issued, err := manager.Issue(domain.Account{
		ID:       "acc-1",
		Role:     domain.RoleOwner,
		Status:   domain.AccountStatusActive,
		TenantID: &tenantID,
	})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if manager.TTL() != 24*time.Hour {
		t.Fatalf("expected default ttl of 24h, got %v", manager.TTL())
	}

	descriptor := manager.Parse(issued.Value)
	if descriptor == nil {
		t.Fatal("expected descriptor for freshly issued session")
	}
	if descriptor.AccountID != "acc-1" || descriptor.Role != domain.RoleOwner || !descriptor.IsActive() {
		t.Fatalf("unexpected descriptor: %+v", descriptor)
	}
	if descriptor.TenantID == nil || *descriptor.TenantID != tenantID {
		t.Fatalf("expected tenant %s, got %v", tenantID, descriptor.TenantID)
	}
}

func TestSessionManager_ParseRejectsUntrustedValues(t *testing.T) {
	manager := newTestSessionManager(t, newMemStore())
	issued, err := manager.Issue(domain.Account{ID: "acc-1", Role: domain.RoleOwner, Status: domain.AccountStatusPending})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	for name, value := range map[string]string{
		"empty":     "",
		"garbage":   "not-a-jwt",
		"truncated": issued.Value[:len(issued.Value)-4],
		"tampered":  issued.Value + "x",
	} {
		if manager.Parse(value) != nil {
			t.Fatalf("%s: expected nil descriptor", name)
		}
	}
}

func TestSessionManager_RefreshReflectsCurrentAccount(t *testing.T) {
	store := newMemStore()
	store.accounts["acc-1"] = domain.Account{
		ID:     "acc-1",
		Email:  "a@b.com",
		Role:   domain.RoleOwner,
		Status: domain.AccountStatusPending,
	}
	manager := newTestSessionManager(t, store)

	issued, err := manager.Issue(store.accounts["acc-1"])
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	tenantID := "tenant-1"
	account := store.accounts["acc-1"]
	account.Status = domain.AccountStatusActive
	account.TenantID = &tenantID
	store.accounts["acc-1"] = account

	refreshed, err := manager.Refresh(context.Background(), manager.Parse(issued.Value))
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if !refreshed.Descriptor.IsActive() || refreshed.Descriptor.TenantID == nil {
		t.Fatalf("expected refreshed descriptor to be active with tenant, got %+v", refreshed.Descriptor)
	}

	if _, err := manager.Refresh(context.Background(), nil); err == nil {
		t.Fatal("expected refresh without descriptor to fail")
	}

	delete(store.accounts, "acc-1")
	_, err = manager.Refresh(context.Background(), &refreshed.Descriptor)
	expectCode(t, err, domain.CodeUnauthorized)
}
