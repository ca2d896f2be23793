package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the metric namespace shared by every collector of the service.
const Namespace = "menu_accounts"

// Metrics holds the business counters of the accounts service. A nil *Metrics is a no-op.
type Metrics struct {
	signups           *prometheus.CounterVec
	verifications     *prometheus.CounterVec
	checkouts         *prometheus.CounterVec
	activations       *prometheus.CounterVec
	logins            *prometheus.CounterVec
	rateLimitRejects  *prometheus.CounterVec
	rateLimitFailOpen *prometheus.CounterVec
	provisioning      *prometheus.CounterVec
}

// NewMetrics registers the counters with reg, reusing collectors that are already registered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var (
		m   Metrics
		err error
	)
	if m.signups, err = counterVec(reg, "signup_requests_total", "Signup submissions partitioned by outcome.", "outcome"); err != nil {
		return nil, err
	}
	if m.verifications, err = counterVec(reg, "signup_verifications_total", "Verification attempts partitioned by method and outcome.", "method", "outcome"); err != nil {
		return nil, err
	}
	if m.checkouts, err = counterVec(reg, "checkout_sessions_total", "Checkout session creations partitioned by plan and outcome.", "plan", "outcome"); err != nil {
		return nil, err
	}
	if m.activations, err = counterVec(reg, "account_activations_total", "Payment activations partitioned by outcome.", "outcome"); err != nil {
		return nil, err
	}
	if m.logins, err = counterVec(reg, "logins_total", "Login attempts partitioned by outcome.", "outcome"); err != nil {
		return nil, err
	}
	if m.rateLimitRejects, err = counterVec(reg, "rate_limit_rejections_total", "Requests rejected by a rate-limit policy.", "policy"); err != nil {
		return nil, err
	}
	if m.rateLimitFailOpen, err = counterVec(reg, "rate_limit_fail_open_total", "Rate-limit checks admitted because the store was unavailable.", "policy"); err != nil {
		return nil, err
	}
	if m.provisioning, err = counterVec(reg, "admin_provisioning_total", "Operator provisioning requests partitioned by resource and outcome.", "resource", "outcome"); err != nil {
		return nil, err
	}
	return &m, nil
}

// SignupOutcome counts one signup submission.
func (m *Metrics) SignupOutcome(outcome string) {
	if m == nil {
		return
	}
	inc(m.signups, outcome)
}

// VerificationOutcome counts one code or link verification.
func (m *Metrics) VerificationOutcome(method, outcome string) {
	if m == nil {
		return
	}
	inc(m.verifications, method, outcome)
}

// CheckoutOutcome counts one checkout session attempt.
func (m *Metrics) CheckoutOutcome(plan, outcome string) {
	if m == nil {
		return
	}
	inc(m.checkouts, plan, outcome)
}

// ActivationOutcome counts one payment webhook delivery.
func (m *Metrics) ActivationOutcome(outcome string) {
	if m == nil {
		return
	}
	inc(m.activations, outcome)
}

// LoginOutcome counts one login attempt.
func (m *Metrics) LoginOutcome(outcome string) {
	if m == nil {
		return
	}
	inc(m.logins, outcome)
}

// RateLimited counts a request rejected by policy.
func (m *Metrics) RateLimited(policy string) {
	if m == nil {
		return
	}
	inc(m.rateLimitRejects, policy)
}

// RateLimitFailOpen counts a check admitted because the store did not answer.
func (m *Metrics) RateLimitFailOpen(policy string) {
	if m == nil {
		return
	}
	inc(m.rateLimitFailOpen, policy)
}

// ProvisionOutcome counts one operator-created tenant or account.
func (m *Metrics) ProvisionOutcome(resource, outcome string) {
	if m == nil {
		return
	}
	inc(m.provisioning, resource, outcome)
}

func inc(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}

func counterVec(reg prometheus.Registerer, name, help string, labels ...string) (*prometheus.CounterVec, error) {
	return Register(reg, name, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
	}, labels))
}

// Register adds collector to reg. When an equal collector is already
// registered, that one is returned so constructors can run more than once.
func Register[C prometheus.Collector](reg prometheus.Registerer, name string, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return collector, fmt.Errorf("register %s: %w", name, err)
		}
		existing, ok := already.ExistingCollector.(C)
		if !ok {
			return collector, fmt.Errorf("existing %s collector has unexpected type %T", name, already.ExistingCollector)
		}
		return existing, nil
	}
	return collector, nil
}
