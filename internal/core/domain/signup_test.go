package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/infra/security"
)

var testPlans = []string{"silver", "gold"}

func TestParseSignupDetailsAccepts(t *testing.T) {
	details, err := domain.ParseSignupDetails(domain.SignupInput{
		Email:      "  A@B.com ",
		Credential: "Aa123456",
		VenueName:  " Bistro ",
		Plan:       "silver",
	}, security.DefaultCredentialValidator(), testPlans)
	if err != nil {
		t.Fatalf("expected details to be accepted, got %v", err)
	}
	if details.Email != "a@b.com" {
		t.Fatalf("expected normalized email, got %q", details.Email)
	}
	if details.VenueName != "Bistro" {
		t.Fatalf("expected trimmed venue, got %q", details.VenueName)
	}
}

func TestParseSignupDetailsRejections(t *testing.T) {
	base := domain.SignupInput{Email: "a@b.com", Credential: "Aa123456", VenueName: "Bistro", Plan: "silver"}

	cases := []struct {
		name   string
		mutate func(in *domain.SignupInput)
		code   domain.Code
	}{
		{"missing email", func(in *domain.SignupInput) { in.Email = "" }, domain.CodeMissingFields},
		{"missing credential", func(in *domain.SignupInput) { in.Credential = "" }, domain.CodeMissingFields},
		{"missing venue", func(in *domain.SignupInput) { in.VenueName = "" }, domain.CodeMissingFields},
		{"missing plan", func(in *domain.SignupInput) { in.Plan = "" }, domain.CodeMissingFields},
		{"malformed email", func(in *domain.SignupInput) { in.Email = "not-an-email" }, domain.CodeInvalidEmail},
		{"blank email", func(in *domain.SignupInput) { in.Email = "   " }, domain.CodeInvalidEmail},
		{"blank venue", func(in *domain.SignupInput) { in.VenueName = "   " }, domain.CodeInvalidVenue},
		{"weak credential", func(in *domain.SignupInput) { in.Credential = "weak" }, domain.CodeWeakCredential},
		{"no uppercase", func(in *domain.SignupInput) { in.Credential = "aa123456" }, domain.CodeWeakCredential},
		{"no digit", func(in *domain.SignupInput) { in.Credential = "Aabcdefg" }, domain.CodeWeakCredential},
		{"unknown plan", func(in *domain.SignupInput) { in.Plan = "platinum" }, domain.CodeInvalidPlan},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			_, err := domain.ParseSignupDetails(in, security.DefaultCredentialValidator(), testPlans)
			if err == nil {
				t.Fatalf("expected %s, got nil", tc.code)
			}
			if code := domain.CodeOf(err); code != tc.code {
				t.Fatalf("expected %s, got %s (%v)", tc.code, code, err)
			}
		})
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := domain.NewError(domain.CodeInvalidToken, errors.New("expired"))
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected errors.Is to match by code")
	}
	if errors.Is(err, domain.ErrIncorrectCode) {
		t.Fatalf("expected different codes not to match")
	}
	if domain.CodeOf(errors.New("boom")) != domain.CodeInternal {
		t.Fatalf("expected uncoded error to map to %s", domain.CodeInternal)
	}
}

func TestExistingAccountNoticeReportedAsCodeSent(t *testing.T) {
	if got := domain.SignupStateExistingAccountNotice.Reported(); got != domain.SignupStateCodeSent {
		t.Fatalf("expected CODE_SENT, got %s", got)
	}
	if got := domain.SignupStateCodeVerified.Reported(); got != domain.SignupStateCodeVerified {
		t.Fatalf("expected state to pass through, got %s", got)
	}
}

func TestParseAccountInput(t *testing.T) {
	policy := security.DefaultCredentialValidator()

	parsed, err := domain.ParseAccountInput(domain.AccountInput{
		Email:      " Owner@B.com",
		Credential: "Aa123456",
		TenantID:   " tenant-1 ",
	}, policy)
	if err != nil {
		t.Fatalf("expected input to be accepted, got %v", err)
	}
	if parsed.Email != "owner@b.com" || parsed.TenantID != "tenant-1" {
		t.Fatalf("expected normalized input, got %+v", parsed)
	}

	cases := []struct {
		name string
		in   domain.AccountInput
		code domain.Code
	}{
		{"missing tenant", domain.AccountInput{Email: "a@b.com", Credential: "Aa123456"}, domain.CodeMissingFields},
		{"bad email", domain.AccountInput{Email: "not-an-email", Credential: "Aa123456", TenantID: "t"}, domain.CodeInvalidEmail},
		{"weak credential", domain.AccountInput{Email: "a@b.com", Credential: "aaaaaaaa", TenantID: "t"}, domain.CodeWeakCredential},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := domain.ParseAccountInput(tc.in, policy)
			if code := domain.CodeOf(err); code != tc.code {
				t.Fatalf("expected %s, got %s (%v)", tc.code, code, err)
			}
		})
	}
}

func TestTenantWithLanguages(t *testing.T) {
	base := domain.NewTenant("tenant-1", "Bistro", time.Now())

	tenant := base.WithLanguages([]string{" EN", "tr", "en", ""}, "de")
	if tenant.DefaultLanguage != "de" {
		t.Fatalf("expected default language de, got %s", tenant.DefaultLanguage)
	}
	if got := strings.Join(tenant.Languages, ","); got != "de,en,tr" {
		t.Fatalf("unexpected languages: %s", got)
	}

	onlyDefault := base.WithLanguages(nil, "tr")
	if got := strings.Join(onlyDefault.Languages, ","); got != "tr,en,de" || onlyDefault.DefaultLanguage != "tr" {
		t.Fatalf("unexpected languages for default only: %s (%s)", got, onlyDefault.DefaultLanguage)
	}

	unchanged := base.WithLanguages([]string{" "}, "")
	if got := strings.Join(unchanged.Languages, ","); got != "en,de" || unchanged.DefaultLanguage != "en" {
		t.Fatalf("expected defaults to survive, got %s (%s)", got, unchanged.DefaultLanguage)
	}
}
