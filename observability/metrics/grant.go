package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// GrantMetrics bundles the prometheus collectors for the grant ledger.
type GrantMetrics struct {
	claimsAdmitted *prometheus.CounterVec
	claimsRejected *prometheus.CounterVec
	grantsCreated  prometheus.Counter
	tokensPaidOut  *prometheus.CounterVec
	vaultFunded    *prometheus.CounterVec
}

var (
	grantOnce     sync.Once
	grantRegistry *GrantMetrics
)

// Grant returns the process-wide grant metric bundle, registering the
// collectors on first use.
func Grant() *GrantMetrics {
	grantOnce.Do(func() {
		grantRegistry = &GrantMetrics{
			claimsAdmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "grant_claims_admitted_total",
				Help: "Count of admitted grant claims by token.",
			}, []string{"token"}),
			claimsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "grant_claims_rejected_total",
				Help: "Count of rejected grant claims by reason.",
			}, []string{"reason"}),
			grantsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "grant_grants_created_total",
				Help: "Count of grants created.",
			}),
			tokensPaidOut: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "grant_tokens_paid_out_total",
				Help: "Base units paid out to claimers by token.",
			}, []string{"token"}),
			vaultFunded: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "grant_vault_funded_total",
				Help: "Base units deposited into grant vaults by token.",
			}, []string{"token"}),
		}
		prometheus.MustRegister(
			grantRegistry.claimsAdmitted,
			grantRegistry.claimsRejected,
			grantRegistry.grantsCreated,
			grantRegistry.tokensPaidOut,
			grantRegistry.vaultFunded,
		)
	})
	return grantRegistry
}

// ObserveClaimAdmitted records an admitted claim and its payout.
func (m *GrantMetrics) ObserveClaimAdmitted(token string, amount uint64) {
	if m == nil {
		return
	}
	m.claimsAdmitted.WithLabelValues(token).Inc()
	m.tokensPaidOut.WithLabelValues(token).Add(float64(amount))
}

// ObserveClaimRejected records a rejected claim by reason.
func (m *GrantMetrics) ObserveClaimRejected(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.claimsRejected.WithLabelValues(reason).Inc()
}

// ObserveGrantCreated records a grant creation.
func (m *GrantMetrics) ObserveGrantCreated() {
	if m == nil {
		return
	}
	m.grantsCreated.Inc()
}

// ObserveVaultFunded records a deposit into a grant vault.
func (m *GrantMetrics) ObserveVaultFunded(token string, amount uint64) {
	if m == nil {
		return
	}
	m.vaultFunded.WithLabelValues(token).Add(float64(amount))
}
