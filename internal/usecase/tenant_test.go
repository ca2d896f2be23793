package usecase

import (
	"context"
	"testing"

	"github.com/arklim/menu-accounts/internal/core/domain"
)

func TestTenantService_PublicMenuLink(t *testing.T) {
	store := newMemStore()
	tenantID := "6b2d3c1e-0000-4000-8000-000000000001"
	store.tokens["a1b2c3d4e5f60708"] = domain.PublicToken{
		Token:      "a1b2c3d4e5f60708",
		TenantID:   tenantID,
		TenantName: "Bistro",
		Active:     true,
	}

	service, err := NewTenantService(store, testBaseURL+"/")
	if err != nil {
		t.Fatalf("NewTenantService returned error: %v", err)
	}

	link, err := service.PublicMenuLink(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("PublicMenuLink returned error: %v", err)
	}
	if link.Token != "a1b2c3d4e5f60708" || link.MenuURL != testBaseURL+"/menu/a1b2c3d4e5f60708" {
		t.Fatalf("unexpected link: %+v", link)
	}

	_, err = service.PublicMenuLink(context.Background(), "6b2d3c1e-0000-4000-8000-000000000002")
	expectCode(t, err, domain.CodeNotFound)

	_, err = service.PublicMenuLink(context.Background(), "not-a-uuid")
	expectCode(t, err, domain.CodeNotFound)

	_, err = service.PublicMenuLink(context.Background(), " ")
	expectCode(t, err, domain.CodeMissingFields)
}
