package utils

import "github.com/prometheus/client_golang/prometheus"

var (
	// entitlementDenialCounter counts requests rejected by an entitlement
	// gate, labeled by the machine-readable error kind.
	entitlementDenialCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopfloor_entitlement_denials_total",
			Help: "Total number of requests rejected by an entitlement gate",
		},
		[]string{"kind"},
	)

	// trialDowngradeCounter counts lazy TRIAL to FREE downgrades.
	trialDowngradeCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopfloor_trial_downgrades_total",
			Help: "Total number of trial accounts downgraded to the free plan",
		},
	)

	// complianceFailOpenCounter counts compliance settings lookups that
	// failed and were allowed through.
	complianceFailOpenCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shopfloor_compliance_fail_open_total",
			Help: "Total number of requests allowed because compliance settings could not be resolved",
		},
	)
)

func init() {
	prometheus.MustRegister(
		entitlementDenialCounter,
		trialDowngradeCounter,
		complianceFailOpenCounter,
	)
}
