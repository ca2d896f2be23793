package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/logger"
	"github.com/arklim/menu-accounts/internal/infra/mail"
	"github.com/arklim/menu-accounts/internal/infra/security"
	"github.com/arklim/menu-accounts/internal/infra/telemetry"
	"github.com/arklim/menu-accounts/internal/repository"
)

const (
	verificationCodeLength = 6
	requestIDBytes         = 16
	publicTokenBytes       = 8
	defaultRequestTTL      = 15 * time.Minute
)

var errActivationLost = errors.New("activation already applied")

// SignupSettings configures the signup flow.
type SignupSettings struct {
	BaseURL string
	// Prices maps each plan identifier to the provider price id.
	Prices      map[string]string
	TokenTTL    time.Duration
	RequestTTL  time.Duration
	SuccessPath string
	CancelPath  string
	VerifyCode  domain.RateLimitPolicy
}

// SignupDependencies groups the collaborators of SignupService.
type SignupDependencies struct {
	Store    port.CredentialStore
	Hasher   port.CredentialHasher
	Policy   domain.CredentialPolicy
	Codec    port.TokenCodec
	Digester port.CodeDigester
	Mailer   port.EmailSender
	Payments port.PaymentProvider
	Events   port.EventPublisher
	Limiter  *RateLimiter
	Metrics  *telemetry.Metrics
	Logger   *zap.Logger
}

// SubmitResult is returned for every accepted signup submission.
type SubmitResult struct {
	State     domain.SignupState
	Token     string
	ExpiresAt time.Time
}

// VerifyResult describes the account after a successful verification.
type VerifyResult struct {
	State domain.SignupState
	Email string
	Plan  string
}

// CheckoutResult carries the provider redirect for a pending account.
type CheckoutResult struct {
	State domain.SignupState
	URL   string
}

// ActivationResult reports what a payment completion did.
type ActivationResult struct {
	Outcome  string
	State    domain.SignupState
	TenantID string
}

// Activation outcomes.
const (
	ActivationActivated     = "activated"
	ActivationAlreadyActive = "already_active"
	ActivationNoAccount     = "no_account"
	ActivationIgnored       = "ignored"
)

// SignupService carries a prospective owner from email claim to an active tenant.
type SignupService struct {
	settings SignupSettings
	plans    []string
	deps     SignupDependencies
	logger   *zap.Logger
	now      func() time.Time
}

// NewSignupService constructs a SignupService instance.
func NewSignupService(settings SignupSettings, deps SignupDependencies) (*SignupService, error) {
	switch {
	case deps.Store == nil:
		return nil, fmt.Errorf("credential store is required")
	case deps.Hasher == nil:
		return nil, fmt.Errorf("credential hasher is required")
	case deps.Codec == nil:
		return nil, fmt.Errorf("token codec is required")
	case deps.Digester == nil:
		return nil, fmt.Errorf("code digester is required")
	case deps.Mailer == nil:
		return nil, fmt.Errorf("email sender is required")
	case deps.Payments == nil:
		return nil, fmt.Errorf("payment provider is required")
	}
	if len(settings.Prices) == 0 {
		return nil, fmt.Errorf("at least one plan price is required")
	}
	if deps.Policy == nil {
		deps.Policy = security.DefaultCredentialValidator()
	}
	if settings.TokenTTL <= 0 {
		settings.TokenTTL = security.DefaultSignupTokenTTL
	}
	if settings.RequestTTL <= 0 {
		settings.RequestTTL = defaultRequestTTL
	}
	settings.BaseURL = strings.TrimRight(settings.BaseURL, "/")

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	plans := make([]string, 0, len(settings.Prices))
	for plan := range settings.Prices {
		plans = append(plans, plan)
	}

	return &SignupService{
		settings: settings,
		plans:    plans,
		deps:     deps,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// SubmitDetails validates the signup form, stores a signup request and emails a
// code plus a confirmation link. An address that already belongs to an active
// account receives a log-in notice instead, and the caller sees the same response.
func (s *SignupService) SubmitDetails(ctx context.Context, in domain.SignupInput) (SubmitResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "signup.SubmitDetails")
	defer span.End()

	details, err := domain.ParseSignupDetails(in, s.deps.Policy, s.plans)
	if err != nil {
		s.deps.Metrics.SignupOutcome(strings.ToLower(string(domain.CodeOf(err))))
		return SubmitResult{}, err
	}

	// Hashed before branching so both answers cost the same.
	hash, err := s.deps.Hasher.Hash(details.Credential)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("hash credential: %w", err)
	}

	existing, err := s.deps.Store.FindAccountByEmail(ctx, details.Email)
	switch {
	case err == nil && existing.IsActive():
		return s.noticeExistingAccount(ctx, details.Email)
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup account")
		return SubmitResult{}, fmt.Errorf("lookup account: %w", err)
	}

	requestID, err := security.GenerateHexToken(requestIDBytes)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("generate request id: %w", err)
	}

	now := s.now()
	request := domain.SignupRequest{
		ID:             requestID,
		Email:          details.Email,
		Plan:           details.Plan,
		VenueName:      details.VenueName,
		CredentialHash: hash,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.settings.RequestTTL),
	}
	if err := s.deps.Store.UpsertSignupRequest(ctx, request); err != nil {
		return SubmitResult{}, fmt.Errorf("store signup request: %w", err)
	}

	code, err := security.GenerateNumericCode(verificationCodeLength)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("generate code: %w", err)
	}

	codeToken, err := s.deps.Codec.Issue(domain.VerificationClaims{
		RequestID:  requestID,
		Email:      details.Email,
		Purpose:    domain.VerificationPurposeCode,
		CodeDigest: s.deps.Digester.Digest(requestID, code),
	}, s.settings.TokenTTL)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("issue code token: %w", err)
	}
	linkToken, err := s.deps.Codec.Issue(domain.VerificationClaims{
		RequestID: requestID,
		Email:     details.Email,
		Purpose:   domain.VerificationPurposeLink,
	}, s.settings.TokenTTL)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("issue link token: %w", err)
	}

	email, err := mail.VerificationEmail(details.Email, mail.VerificationData{
		Code:      code,
		VerifyURL: s.settings.BaseURL + "/signup/verify?token=" + url.QueryEscape(linkToken),
		ValidFor:  s.settings.TokenTTL.String(),
	})
	if err != nil {
		return SubmitResult{}, err
	}
	if err := s.deps.Mailer.Send(ctx, email); err != nil {
		s.deps.Metrics.SignupOutcome("email_send_failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "send verification email")
		return SubmitResult{}, domain.NewError(domain.CodeEmailSendFailed, err)
	}

	s.deps.Metrics.SignupOutcome("code_sent")
	s.logger.Info("signup code sent",
		zap.String("request_id", logger.RequestIDFromContext(ctx)),
		zap.String("email", logger.MaskEmail(details.Email)),
		zap.String("plan", details.Plan),
	)

	return SubmitResult{
		State:     domain.SignupStateCodeSent.Reported(),
		Token:     codeToken,
		ExpiresAt: now.Add(s.settings.TokenTTL),
	}, nil
}

// noticeExistingAccount emails a log-in notice and answers with a decoy code
// token whose digest no code can match.
func (s *SignupService) noticeExistingAccount(ctx context.Context, email string) (SubmitResult, error) {
	requestID, err := security.GenerateHexToken(requestIDBytes)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("generate request id: %w", err)
	}
	decoyDigest, err := security.GenerateHexToken(32)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("generate decoy digest: %w", err)
	}
	token, err := s.deps.Codec.Issue(domain.VerificationClaims{
		RequestID:  requestID,
		Email:      email,
		Purpose:    domain.VerificationPurposeCode,
		CodeDigest: decoyDigest,
	}, s.settings.TokenTTL)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("issue decoy token: %w", err)
	}

	notice, err := mail.LoginNoticeEmail(email, mail.LoginNoticeData{LoginURL: s.settings.BaseURL + "/login"})
	if err != nil {
		return SubmitResult{}, err
	}
	if err := s.deps.Mailer.Send(ctx, notice); err != nil {
		s.deps.Metrics.SignupOutcome("email_send_failed")
		return SubmitResult{}, domain.NewError(domain.CodeEmailSendFailed, err)
	}

	s.deps.Metrics.SignupOutcome("existing_account")
	return SubmitResult{
		State:     domain.SignupStateExistingAccountNotice.Reported(),
		Token:     token,
		ExpiresAt: s.now().Add(s.settings.TokenTTL),
	}, nil
}

// VerifyCode confirms the emailed code against a code token and promotes the
// signup request to a pending account.
func (s *SignupService) VerifyCode(ctx context.Context, token, code string) (VerifyResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "signup.VerifyCode")
	defer span.End()

	token = strings.TrimSpace(token)
	code = strings.TrimSpace(code)
	if token == "" || code == "" {
		return VerifyResult{}, domain.ErrMissingFields
	}

	claims, err := s.verifyToken(token, domain.VerificationPurposeCode)
	if err != nil {
		s.deps.Metrics.VerificationOutcome("code", "invalid_token")
		return VerifyResult{}, err
	}

	if err := s.deps.Limiter.Enforce(ctx, claims.RequestID, s.settings.VerifyCode); err != nil {
		s.deps.Metrics.VerificationOutcome("code", "rate_limited")
		return VerifyResult{}, err
	}

	if !s.deps.Digester.Matches(claims.RequestID, code, claims.CodeDigest) {
		s.deps.Metrics.VerificationOutcome("code", "incorrect_code")
		return VerifyResult{}, domain.ErrIncorrectCode
	}

	return s.promote(ctx, claims, "code")
}

// VerifyLink confirms a link token and promotes the signup request.
func (s *SignupService) VerifyLink(ctx context.Context, token string) (VerifyResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "signup.VerifyLink")
	defer span.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return VerifyResult{}, domain.ErrMissingFields
	}

	claims, err := s.verifyToken(token, domain.VerificationPurposeLink)
	if err != nil {
		s.deps.Metrics.VerificationOutcome("link", "invalid_token")
		return VerifyResult{}, err
	}
	return s.promote(ctx, claims, "link")
}

func (s *SignupService) verifyToken(token string, purpose domain.VerificationPurpose) (domain.VerificationClaims, error) {
	claims, err := s.deps.Codec.Verify(token)
	if err != nil {
		return domain.VerificationClaims{}, domain.NewError(domain.CodeInvalidToken, err)
	}
	if claims.Purpose != purpose || claims.RequestID == "" || claims.Email == "" {
		return domain.VerificationClaims{}, domain.ErrInvalidToken
	}
	return claims, nil
}

// promote turns the signup request into a pending account. Repeating a
// verification after the request was consumed reports the account's state.
func (s *SignupService) promote(ctx context.Context, claims domain.VerificationClaims, method string) (VerifyResult, error) {
	email := domain.NormalizeEmail(claims.Email)

	request, err := s.deps.Store.FindSignupRequestByID(ctx, claims.RequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.verifiedAccount(ctx, email, method)
		}
		return VerifyResult{}, fmt.Errorf("lookup signup request: %w", err)
	}
	if domain.NormalizeEmail(request.Email) != email {
		s.deps.Metrics.VerificationOutcome(method, "invalid_token")
		return VerifyResult{}, domain.ErrInvalidToken
	}
	if request.IsExpired(s.now()) {
		s.deps.Metrics.VerificationOutcome(method, "expired")
		return VerifyResult{}, domain.ErrInvalidToken
	}

	var created *domain.Account
	err = s.deps.Store.WithinTx(ctx, func(ctx context.Context, store port.CredentialStore) error {
		existing, err := store.FindAccountByEmail(ctx, email)
		switch {
		case err == nil && existing.IsActive():
			return domain.ErrEmailExists
		case err == nil:
			existing.CredentialHash = request.CredentialHash
			existing.Plan = request.Plan
			existing.VenueName = request.VenueName
			if err := store.RefreshPendingAccount(ctx, *existing); err != nil {
				return fmt.Errorf("refresh pending account: %w", err)
			}
		case errors.Is(err, repository.ErrNotFound):
			account := domain.Account{
				ID:             uuid.NewString(),
				Email:          email,
				CredentialHash: request.CredentialHash,
				Role:           domain.RoleOwner,
				Status:         domain.AccountStatusPending,
				Plan:           request.Plan,
				VenueName:      request.VenueName,
				CreatedAt:      s.now(),
			}
			if err := store.InsertAccount(ctx, account); err != nil {
				return fmt.Errorf("insert account: %w", err)
			}
			created = &account
		default:
			return fmt.Errorf("lookup account: %w", err)
		}

		if err := store.DeleteSignupRequest(ctx, request.ID); err != nil {
			return fmt.Errorf("delete signup request: %w", err)
		}
		return nil
	})
	switch {
	case errors.Is(err, domain.ErrEmailExists):
		s.deps.Metrics.VerificationOutcome(method, "email_exists")
		return VerifyResult{}, err
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrNotFound):
		// a concurrent verification of the same request won the insert
		return s.verifiedAccount(ctx, email, method)
	case err != nil:
		return VerifyResult{}, err
	}

	if created != nil {
		s.publishCreated(ctx, *created)
	}

	s.deps.Metrics.VerificationOutcome(method, "verified")
	s.logger.Info("signup verified",
		zap.String("request_id", logger.RequestIDFromContext(ctx)),
		zap.String("email", logger.MaskEmail(email)),
		zap.String("method", method),
	)
	return VerifyResult{State: domain.SignupStateCodeVerified, Email: email, Plan: request.Plan}, nil
}

// verifiedAccount answers a verification whose request is already gone.
func (s *SignupService) verifiedAccount(ctx context.Context, email, method string) (VerifyResult, error) {
	account, err := s.deps.Store.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.deps.Metrics.VerificationOutcome(method, "invalid_token")
			return VerifyResult{}, domain.ErrInvalidToken
		}
		return VerifyResult{}, fmt.Errorf("lookup account: %w", err)
	}

	state := domain.SignupStateCodeVerified
	if account.IsActive() {
		state = domain.SignupStateAlreadyActive
	}
	s.deps.Metrics.VerificationOutcome(method, "repeated")
	return VerifyResult{State: state, Email: account.Email, Plan: account.Plan}, nil
}

// StartCheckout opens a subscription checkout for a verified, not yet active account.
func (s *SignupService) StartCheckout(ctx context.Context, email, plan string) (CheckoutResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "signup.StartCheckout")
	defer span.End()

	email = domain.NormalizeEmail(email)
	plan = strings.TrimSpace(plan)
	if email == "" || plan == "" {
		return CheckoutResult{}, domain.ErrMissingFields
	}
	if err := domain.ValidatePlan(plan, s.plans); err != nil {
		s.deps.Metrics.CheckoutOutcome("invalid", "invalid_plan")
		return CheckoutResult{}, err
	}
	span.SetAttributes(attribute.String("signup.plan", plan))

	account, err := s.deps.Store.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.deps.Metrics.CheckoutOutcome(plan, "email_not_verified")
			return CheckoutResult{}, domain.ErrEmailNotVerified
		}
		return CheckoutResult{}, fmt.Errorf("lookup account: %w", err)
	}
	if account.IsActive() {
		s.deps.Metrics.CheckoutOutcome(plan, "already_active")
		return CheckoutResult{State: domain.SignupStateAlreadyActive}, nil
	}

	session, err := s.deps.Payments.CreateCheckoutSession(ctx, port.CheckoutRequest{
		PriceID:     s.settings.Prices[plan],
		Email:       account.Email,
		ReferenceID: account.ID,
		Plan:        plan,
		SuccessURL:  s.settings.BaseURL + s.settings.SuccessPath,
		CancelURL:   s.settings.BaseURL + s.settings.CancelPath,
	})
	if err == nil && session.URL == "" {
		err = errors.New("provider returned an empty checkout url")
	}
	if err != nil {
		s.deps.Metrics.CheckoutOutcome(plan, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "create checkout session")
		s.logger.Error("checkout session creation failed",
			zap.String("request_id", logger.RequestIDFromContext(ctx)),
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
		return CheckoutResult{}, domain.NewError(domain.CodeCheckoutCreateFailed, err)
	}

	s.deps.Metrics.CheckoutOutcome(plan, "pending")
	return CheckoutResult{State: domain.SignupStateCheckoutPending, URL: session.URL}, nil
}

// HandleWebhook verifies a provider delivery and activates the paying account.
func (s *SignupService) HandleWebhook(ctx context.Context, payload []byte, signature string) (ActivationResult, error) {
	if strings.TrimSpace(signature) == "" {
		return ActivationResult{}, domain.ErrMissingSignature
	}
	event, err := s.deps.Payments.ParseWebhook(payload, signature)
	if err != nil {
		s.deps.Metrics.ActivationOutcome("invalid_signature")
		s.logger.Warn("webhook signature rejected",
			zap.String("request_id", logger.RequestIDFromContext(ctx)),
			zap.String("signature", logger.MaskToken(signature)),
			zap.Error(err),
		)
		return ActivationResult{}, domain.NewError(domain.CodeInvalidSignature, err)
	}
	if event.Type != port.PaymentEventCheckoutCompleted {
		s.deps.Metrics.ActivationOutcome(ActivationIgnored)
		return ActivationResult{Outcome: ActivationIgnored}, nil
	}
	return s.Activate(ctx, event)
}

// Activate provisions the tenant and marks the account active. Duplicate and
// concurrent deliveries of the same completion change nothing.
func (s *SignupService) Activate(ctx context.Context, event port.PaymentEvent) (ActivationResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "signup.Activate")
	defer span.End()
	span.SetAttributes(attribute.String("payment.event_id", event.ID))

	account, err := s.findPayingAccount(ctx, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup account")
		return ActivationResult{}, err
	}
	if account == nil {
		s.deps.Metrics.ActivationOutcome(ActivationNoAccount)
		s.logger.Warn("payment completed for unknown account",
			zap.String("event_id", event.ID),
			zap.String("email", logger.MaskEmail(event.Email)),
		)
		return ActivationResult{Outcome: ActivationNoAccount}, nil
	}
	if account.IsActive() {
		s.deps.Metrics.ActivationOutcome(ActivationAlreadyActive)
		return ActivationResult{Outcome: ActivationAlreadyActive, State: domain.SignupStateAlreadyActive, TenantID: derefString(account.TenantID)}, nil
	}

	now := s.now()
	params := domain.ActivationParams{
		AccountID:             account.ID,
		BillingCustomerID:     optionalString(event.CustomerID),
		BillingSubscriptionID: optionalString(event.SubscriptionID),
		ActivatedAt:           now,
	}

	err = s.deps.Store.WithinTx(ctx, func(ctx context.Context, store port.CredentialStore) error {
		if account.TenantID != nil {
			params.TenantID = *account.TenantID
		} else {
			tenant := domain.NewTenant(uuid.NewString(), account.VenueName, now)
			if _, err := provisionTenant(ctx, store, tenant); err != nil {
				return err
			}
			params.TenantID = tenant.ID
		}

		changed, err := store.ActivateAccount(ctx, params)
		if err != nil {
			return fmt.Errorf("activate account: %w", err)
		}
		if !changed {
			return errActivationLost
		}
		return nil
	})
	if errors.Is(err, errActivationLost) {
		s.deps.Metrics.ActivationOutcome(ActivationAlreadyActive)
		return ActivationResult{Outcome: ActivationAlreadyActive, State: domain.SignupStateAlreadyActive}, nil
	}
	if err != nil {
		s.deps.Metrics.ActivationOutcome("failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "activate account")
		return ActivationResult{}, err
	}

	plan := account.Plan
	if event.Plan != "" {
		plan = event.Plan
	}
	if s.deps.Events != nil {
		if err := s.deps.Events.PublishAccountActivated(ctx, domain.AccountActivatedEvent{
			EventID:               uuid.NewString(),
			AccountID:             account.ID,
			TenantID:              params.TenantID,
			Plan:                  plan,
			BillingCustomerID:     params.BillingCustomerID,
			BillingSubscriptionID: params.BillingSubscriptionID,
			ActivatedAt:           now,
		}); err != nil {
			s.logger.Warn("failed to publish account activated event",
				zap.String("account_id", account.ID),
				zap.Error(err),
			)
		}
	}

	s.deps.Metrics.ActivationOutcome(ActivationActivated)
	s.logger.Info("account activated",
		zap.String("account_id", account.ID),
		zap.String("tenant_id", params.TenantID),
		zap.String("plan", plan),
	)
	span.SetAttributes(attribute.String("tenant.id", params.TenantID))
	return ActivationResult{Outcome: ActivationActivated, State: domain.SignupStateActive, TenantID: params.TenantID}, nil
}

// findPayingAccount resolves the reference id first and falls back to the customer email.
func (s *SignupService) findPayingAccount(ctx context.Context, event port.PaymentEvent) (*domain.Account, error) {
	if _, err := uuid.Parse(event.ReferenceID); err == nil {
		account, err := s.deps.Store.FindAccountByID(ctx, event.ReferenceID)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup account by id: %w", err)
		}
	}

	email := domain.NormalizeEmail(event.Email)
	if email == "" {
		return nil, nil
	}
	account, err := s.deps.Store.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup account by email: %w", err)
	}
	return account, nil
}

func (s *SignupService) publishCreated(ctx context.Context, account domain.Account) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.PublishAccountCreated(ctx, domain.AccountCreatedEvent{
		EventID:   uuid.NewString(),
		AccountID: account.ID,
		Email:     account.Email,
		Plan:      account.Plan,
		CreatedAt: account.CreatedAt,
	}); err != nil {
		s.logger.Warn("failed to publish account created event",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
