// Package metrics exposes prometheus counters for range fetching and the
// access manager retry loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "lazypdf"

const (
	NameRangeRequests     = "range_requests_total"
	NameRangeBytes        = "range_bytes_total"
	NameRangeFailures     = "range_failures_total"
	NameProgressiveBytes  = "progressive_bytes_total"
	NameDataFaults        = "data_faults_total"
	NameOperations        = "operations_total"
	NameRepeatedFaults    = "repeated_faults_total"
	NameTerminatedManager = "terminated_managers_total"
)

var RangeRequests = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      NameRangeRequests,
		Help:      "Range fetches issued to the transport",
		Namespace: Namespace,
	},
)

var RangeBytes = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      NameRangeBytes,
		Help:      "Bytes received through range fetches",
		Namespace: Namespace,
	},
)

var RangeFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      NameRangeFailures,
		Help:      "Range fetches that failed",
		Namespace: Namespace,
	},
)

var ProgressiveBytes = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      NameProgressiveBytes,
		Help:      "Bytes received through progressive delivery",
		Namespace: Namespace,
	},
)

var DataFaults = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      NameDataFaults,
		Help:      "Operations interrupted by non-resident data",
		Namespace: Namespace,
	},
)

// Operations counts finished manager operations by variant and outcome.
var Operations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      NameOperations,
		Help:      "Operations run through an access manager",
		Namespace: Namespace,
	},
	[]string{"variant", "outcome"},
)

var RepeatedFaults = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      NameRepeatedFaults,
		Help:      "Operations that faulted again on a range they already fetched",
		Namespace: Namespace,
	},
)

var TerminatedManagers = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      NameTerminatedManager,
		Help:      "Access managers terminated",
		Namespace: Namespace,
	},
)
