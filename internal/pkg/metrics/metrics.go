// Package metrics defines and registers the gateway's custom Prometheus
// metrics. It is the single source of truth for metric names, labels and
// help strings.
//
// Metrics register with the default registry at package init (promauto), so
// importing the package is enough; HTTP request metrics come from the
// echoprometheus middleware and share the same namespace.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric exported by the gateway.
const Namespace = "chatgate"

// ── Authentication ───────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok", "unknown_user", "wrong_password" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── Completion service ──────────────────────────────────────────────────────

// CompletionsTotal counts calls to the remote completion service.
// Label:
//   - result: "ok" or "error"
var CompletionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "completions_total",
		Help:      "Total number of remote completion calls, by result.",
	},
	[]string{"result"},
)

// CompletionDuration measures wall-clock time spent waiting on the remote service.
var CompletionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "completion_duration_seconds",
		Help:      "Duration of remote completion calls.",
		Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
	},
	[]string{"result"},
)

// ── Conversations ───────────────────────────────────────────────────────────

// ConversationsCreatedTotal counts newly created conversations.
var ConversationsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "conversations_created_total",
		Help:      "Total number of conversations created.",
	},
)

// MessagesAppendedTotal counts messages appended to conversations.
// Label:
//   - role: "user" or "assistant"
var MessagesAppendedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "messages_appended_total",
		Help:      "Total number of messages appended, by author role.",
	},
	[]string{"role"},
)

// IdempotentReplaysTotal counts message sends answered from the idempotency store.
var IdempotentReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "idempotent_replays_total",
		Help:      "Total number of message sends replayed from a previous identical request.",
	},
)

// ── Direct queries ──────────────────────────────────────────────────────────

// QueriesTotal counts direct queries.
// Labels:
//   - permission: the permission the prompt was classified as needing
//   - result: "ok", "forbidden" or "error"
var QueriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "queries_total",
		Help:      "Total number of direct queries, by required permission and result.",
	},
	[]string{"permission", "result"},
)
