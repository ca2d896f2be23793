package usecase

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/security"
	"github.com/arklim/menu-accounts/internal/repository"
)

const (
	testSignupSecret  = "signup-secret-for-tests"
	testSessionSecret = "session-secret-for-tests"
	testBaseURL       = "http://localhost:3000"
)

// memStore is an in-memory CredentialStore. Transactions are serialized and
// roll back by restoring a snapshot.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	accounts map[string]domain.Account
	requests map[string]domain.SignupRequest
	tenants  map[string]domain.Tenant
	tokens   map[string]domain.PublicToken

	writes  int
	findErr error
	now     func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]domain.Account{},
		requests: map[string]domain.SignupRequest{},
		tenants:  map[string]domain.Tenant{},
		tokens:   map[string]domain.PublicToken{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *memStore) FindAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, account := range s.accounts {
		if account.Email == domain.NormalizeEmail(email) {
			copied := account
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) FindAccountByID(_ context.Context, id string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	account, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &account, nil
}

func (s *memStore) InsertAccount(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Email == account.Email {
			return repository.ErrConflict
		}
	}
	s.writes++
	s.accounts[account.ID] = account
	return nil
}

func (s *memStore) RefreshPendingAccount(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.accounts[account.ID]
	if !ok || existing.Status != domain.AccountStatusPending {
		return repository.ErrNotFound
	}
	existing.CredentialHash = account.CredentialHash
	existing.Plan = account.Plan
	existing.VenueName = account.VenueName
	s.writes++
	s.accounts[account.ID] = existing
	return nil
}

func (s *memStore) ActivateAccount(_ context.Context, params domain.ActivationParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[params.AccountID]
	if !ok || account.Status == domain.AccountStatusActive {
		return false, nil
	}
	account.Status = domain.AccountStatusActive
	if account.TenantID == nil {
		tenantID := params.TenantID
		account.TenantID = &tenantID
	}
	if params.BillingCustomerID != nil {
		account.BillingCustomerID = params.BillingCustomerID
	}
	if params.BillingSubscriptionID != nil {
		account.BillingSubscriptionID = params.BillingSubscriptionID
	}
	activatedAt := params.ActivatedAt
	account.ActivatedAt = &activatedAt
	s.writes++
	s.accounts[account.ID] = account
	return true, nil
}

func (s *memStore) UpsertSignupRequest(_ context.Context, request domain.SignupRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.requests[request.Email] = request
	return nil
}

func (s *memStore) FindSignupRequestByID(_ context.Context, id string) (*domain.SignupRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, request := range s.requests {
		if request.ID == id && !request.IsExpired(s.now()) {
			copied := request
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) DeleteSignupRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, request := range s.requests {
		if request.ID == id {
			s.writes++
			delete(s.requests, email)
		}
	}
	return nil
}

func (s *memStore) InsertTenant(_ context.Context, tenant domain.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.tenants[tenant.ID] = tenant
	return nil
}

func (s *memStore) FindTenantByID(_ context.Context, id string) (*domain.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tenant, ok := s.tenants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tenant, nil
}

func (s *memStore) InsertPublicToken(_ context.Context, token domain.PublicToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tokens[token.Token]; exists {
		return repository.ErrConflict
	}
	s.writes++
	s.tokens[token.Token] = token
	return nil
}

func (s *memStore) FindPublicTokenByTenant(_ context.Context, tenantID string) (*domain.PublicToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range s.tokens {
		if token.TenantID == tenantID && token.Active {
			copied := token
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store port.CredentialStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	accounts := cloneMap(s.accounts)
	requests := cloneMap(s.requests)
	tenants := cloneMap(s.tenants)
	tokens := cloneMap(s.tokens)
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.accounts, s.requests, s.tenants, s.tokens = accounts, requests, tenants, tokens
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) accountByEmail(t *testing.T, email string) domain.Account {
	t.Helper()
	account, err := s.FindAccountByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("expected account for %s: %v", email, err)
	}
	return *account
}

func (s *memStore) counts() (accounts, requests, tenants, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts), len(s.requests), len(s.tenants), len(s.tokens)
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var (
	codePattern = regexp.MustCompile(`verification code is (\d{6})`)
	linkPattern = regexp.MustCompile(`token=(\S+)`)
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []port.Email
	err  error
}

func (m *fakeMailer) Send(_ context.Context, email port.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *fakeMailer) last(t *testing.T) port.Email {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("expected an email to be sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	match := codePattern.FindStringSubmatch(m.last(t).Text)
	if match == nil {
		t.Fatal("expected verification code in email body")
	}
	return match[1]
}

func (m *fakeMailer) lastLinkToken(t *testing.T) string {
	t.Helper()
	match := linkPattern.FindStringSubmatch(m.last(t).Text)
	if match == nil {
		t.Fatal("expected verification link in email body")
	}
	token, err := url.QueryUnescape(match[1])
	if err != nil {
		t.Fatalf("unescape link token: %v", err)
	}
	return token
}

type fakePayments struct {
	mu       sync.Mutex
	requests []port.CheckoutRequest
	url      string
	err      error
	event    port.PaymentEvent
	parseErr error
}

func (p *fakePayments) CreateCheckoutSession(_ context.Context, req port.CheckoutRequest) (port.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return port.CheckoutSession{}, p.err
	}
	return port.CheckoutSession{ID: "cs_test_1", URL: p.url}, nil
}

func (p *fakePayments) ParseWebhook(_ []byte, signature string) (port.PaymentEvent, error) {
	if p.parseErr != nil {
		return port.PaymentEvent{}, p.parseErr
	}
	if signature != "valid" {
		return port.PaymentEvent{}, port.ErrInvalidSignature
	}
	return p.event, nil
}

type fakeEvents struct {
	mu        sync.Mutex
	created   []domain.AccountCreatedEvent
	activated []domain.AccountActivatedEvent
}

func (e *fakeEvents) PublishAccountCreated(_ context.Context, event domain.AccountCreatedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = append(e.created, event)
	return nil
}

func (e *fakeEvents) PublishAccountActivated(_ context.Context, event domain.AccountActivatedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activated = append(e.activated, event)
	return nil
}

type failingLimitStore struct {
	err error
}

func (f failingLimitStore) TrimWindow(context.Context, string, time.Duration, time.Time) error {
	return f.err
}

func (f failingLimitStore) CountAttempts(context.Context, string, time.Duration, time.Time) (int, error) {
	return 0, f.err
}

func (f failingLimitStore) RecordAttempt(context.Context, string, time.Time, time.Duration) error {
	return f.err
}

func (f failingLimitStore) OldestAttempt(context.Context, string, time.Duration, time.Time) (time.Time, bool, error) {
	return time.Time{}, false, f.err
}

// slowLimitStore blocks until the context expires.
type slowLimitStore struct {
	failingLimitStore
}

func (slowLimitStore) TrimWindow(ctx context.Context, _ string, _ time.Duration, _ time.Time) error {
	<-ctx.Done()
	return ctx.Err()
}

func newTestHasher(t *testing.T) *security.Argon2Hasher {
	t.Helper()
	hasher, err := security.NewArgon2Hasher(port.Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}
	return hasher
}

// countingHasher records how often a credential was hashed.
type countingHasher struct {
	port.CredentialHasher

	mu     sync.Mutex
	hashes int
}

func (h *countingHasher) Hash(credential string) (string, error) {
	h.mu.Lock()
	h.hashes++
	h.mu.Unlock()
	return h.CredentialHasher.Hash(credential)
}

func (h *countingHasher) hashCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hashes
}

type signupFixture struct {
	service  *SignupService
	store    *memStore
	mailer   *fakeMailer
	payments *fakePayments
	events   *fakeEvents
	codec    *security.SignedTokenCodec
	hasher   *security.Argon2Hasher
	counting *countingHasher
}

func newSignupFixture(t *testing.T) *signupFixture {
	t.Helper()

	store := newMemStore()
	mailer := &fakeMailer{}
	payments := &fakePayments{url: "https://checkout.stripe.test/session"}
	events := &fakeEvents{}
	hasher := newTestHasher(t)
	counting := &countingHasher{CredentialHasher: hasher}

	codec, err := security.NewSignedTokenCodec(testSignupSecret)
	if err != nil {
		t.Fatalf("NewSignedTokenCodec returned error: %v", err)
	}

	service, err := NewSignupService(SignupSettings{
		BaseURL:     testBaseURL + "/",
		Prices:      map[string]string{"silver": "price_silver", "gold": "price_gold"},
		TokenTTL:    security.DefaultSignupTokenTTL,
		RequestTTL:  15 * time.Minute,
		SuccessPath: "/signup/success",
		CancelPath:  "/signup/cancel",
		VerifyCode:  domain.RateLimitPolicy{Name: PolicyVerifyCode, Limit: 5, Window: 15 * time.Minute},
	}, SignupDependencies{
		Store:    store,
		Hasher:   counting,
		Policy:   security.DefaultCredentialValidator(),
		Codec:    codec,
		Digester: security.NewCodeDigester(testSignupSecret),
		Mailer:   mailer,
		Payments: payments,
		Events:   events,
	})
	if err != nil {
		t.Fatalf("NewSignupService returned error: %v", err)
	}

	return &signupFixture{
		service:  service,
		store:    store,
		mailer:   mailer,
		payments: payments,
		events:   events,
		codec:    codec,
		hasher:   hasher,
		counting: counting,
	}
}

func expectCode(t *testing.T, err error, code domain.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := domain.CodeOf(err); got != code {
		t.Fatalf("expected %s error, got %s (%v)", code, got, err)
	}
}

var errStoreDown = errors.New("store down")

func mustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}
