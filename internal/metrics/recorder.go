// Package metrics records prometheus metrics for coordination activity. The
// recorder is fed from the event bus, so components stay unaware of it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/colonyops/comb/internal/core/eventbus"
	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/core/workitem"
)

// Recorder owns a private registry and the collectors registered on it.
type Recorder struct {
	reg *prometheus.Registry

	claimsLive        prometheus.Gauge
	claimConflicts    prometheus.Counter
	messagesTotal     prometheus.Counter
	workItemChanges   *prometheus.CounterVec
	workItemMoves     *prometheus.CounterVec
	todosActive       prometheus.Gauge
	hookRunsTotal     *prometheus.CounterVec
	hookDuration      *prometheus.HistogramVec
	hooksLoaded       prometheus.Gauge
	spawnRequests     prometheus.Counter
	notificationsSent *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		claimsLive: f.NewGauge(prometheus.GaugeOpts{
			Name: "comb_claims_live",
			Help: "Number of unexpired resource claims",
		}),
		claimConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "comb_claim_conflicts_total",
			Help: "Total number of rejected claim requests",
		}),
		messagesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "comb_messages_total",
			Help: "Total number of messages stored in the mailbox",
		}),
		workItemChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "comb_workitem_changes_total",
			Help: "Total number of work item mutations by kind",
		}, []string{"change"}),
		workItemMoves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "comb_workitem_transitions_total",
			Help: "Total number of work item status transitions",
		}, []string{"from", "to"}),
		todosActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "comb_todos_active",
			Help: "Number of tracked transient todos across all agents",
		}),
		hookRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "comb_hook_runs_total",
			Help: "Total number of hook executions by hook and status",
		}, []string{"hook", "status"}),
		hookDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "comb_hook_duration_seconds",
			Help:    "Duration of hook executions in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"hook"}),
		hooksLoaded: f.NewGauge(prometheus.GaugeOpts{
			Name: "comb_hooks_loaded",
			Help: "Number of enabled hooks currently loaded",
		}),
		spawnRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "comb_agent_spawn_requests_total",
			Help: "Total number of agent spawn requests emitted by hooks",
		}),
		notificationsSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "comb_notifications_total",
			Help: "Total number of user-facing notifications by level",
		}, []string{"level"}),
	}
}

// Registry exposes the recorder's registry to a host that serves or gathers it.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Subscribe wires the recorder to bus events.
func (r *Recorder) Subscribe(bus *eventbus.EventBus) {
	bus.SubscribeClaimsChanged(func(p eventbus.ClaimsChangedPayload) {
		r.ObserveClaims(len(p.Claims))
	})
	bus.SubscribeClaimsConflict(func(eventbus.ClaimsConflictPayload) {
		r.claimConflicts.Inc()
	})
	bus.SubscribeMessageReceived(func(eventbus.MessageReceivedPayload) {
		r.messagesTotal.Inc()
	})
	bus.SubscribeWorkItemChanged(func(p eventbus.WorkItemChangedPayload) {
		r.ObserveWorkItem(p.Change, p.From, p.Item.Status)
	})
	bus.SubscribeTodoAdded(func(eventbus.TodoAddedPayload) {
		r.todosActive.Inc()
	})
	bus.SubscribeTodoRemoved(func(eventbus.TodoRemovedPayload) {
		r.todosActive.Dec()
	})
	bus.SubscribeHookExecuted(func(p eventbus.HookExecutedPayload) {
		r.ObserveHook(p.Result)
	})
	bus.SubscribeHookFailed(func(p eventbus.HookFailedPayload) {
		r.ObserveHook(p.Result)
	})
	bus.SubscribeHooksReloaded(func(p eventbus.HooksReloadedPayload) {
		r.hooksLoaded.Set(float64(p.Count))
	})
	bus.SubscribeAgentSpawnRequested(func(eventbus.AgentSpawnRequestedPayload) {
		r.spawnRequests.Inc()
	})
	bus.SubscribeNotificationPublished(func(p eventbus.NotificationPublishedPayload) {
		r.notificationsSent.WithLabelValues(string(p.Level)).Inc()
	})
}

// ObserveClaims records the live claim count.
func (r *Recorder) ObserveClaims(live int) {
	r.claimsLive.Set(float64(live))
}

// ObserveWorkItem records a work item mutation.
func (r *Recorder) ObserveWorkItem(change workitem.ChangeKind, from, to workitem.Status) {
	r.workItemChanges.WithLabelValues(string(change)).Inc()
	if change == workitem.ChangeMoved {
		r.workItemMoves.WithLabelValues(string(from), string(to)).Inc()
	}
}

// ObserveHook records one hook execution.
func (r *Recorder) ObserveHook(res hooks.Result) {
	r.hookRunsTotal.WithLabelValues(res.Hook, string(res.Status)).Inc()
	r.hookDuration.WithLabelValues(res.Hook).Observe(durationSeconds(res.Duration))
}

func durationSeconds(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return d.Seconds()
}
