package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/worktable"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Document metrics
	DocumentFetchesTotal      metric.Int64Counter
	DocumentUpsertsTotal      metric.Int64Counter
	DocumentUpsertErrorsTotal metric.Int64Counter
	DocumentUpsertDuration    metric.Float64Histogram

	// Account metrics
	OrgSwitchesTotal   metric.Int64Counter
	LoginsTotal        metric.Int64Counter
	LoginFailuresTotal metric.Int64Counter

	// Client sync metrics
	AutosaveTotal        metric.Int64Counter
	AutosaveErrorsTotal  metric.Int64Counter
	SyncOrgSwitchesTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = newMetrics(otel.GetMeterProvider().Meter(meterName))
	})
	return metrics
}

// newMetrics creates and registers all metric instruments on meter
func newMetrics(meter metric.Meter) *Metrics {
	m := &Metrics{}

	// Document metrics
	m.DocumentFetchesTotal, _ = meter.Int64Counter(
		"worktable.documents.fetch.total",
		metric.WithDescription("Total number of table document fetches"),
		metric.WithUnit("{request}"),
	)

	m.DocumentUpsertsTotal, _ = meter.Int64Counter(
		"worktable.documents.upsert.total",
		metric.WithDescription("Total number of table document upserts"),
		metric.WithUnit("{request}"),
	)

	m.DocumentUpsertErrorsTotal, _ = meter.Int64Counter(
		"worktable.documents.upsert.errors.total",
		metric.WithDescription("Total number of failed table document upserts"),
		metric.WithUnit("{error}"),
	)

	m.DocumentUpsertDuration, _ = meter.Float64Histogram(
		"worktable.documents.upsert.duration",
		metric.WithDescription("Duration of table document upserts"),
		metric.WithUnit("ms"),
	)

	// Account metrics
	m.OrgSwitchesTotal, _ = meter.Int64Counter(
		"worktable.organizations.switch.total",
		metric.WithDescription("Total number of active organization switches"),
		metric.WithUnit("{switch}"),
	)

	m.LoginsTotal, _ = meter.Int64Counter(
		"worktable.sessions.login.total",
		metric.WithDescription("Total number of successful logins"),
		metric.WithUnit("{login}"),
	)

	m.LoginFailuresTotal, _ = meter.Int64Counter(
		"worktable.sessions.login.failures.total",
		metric.WithDescription("Total number of rejected logins"),
		metric.WithUnit("{login}"),
	)

	// Client sync metrics
	m.AutosaveTotal, _ = meter.Int64Counter(
		"worktable.autosave.total",
		metric.WithDescription("Total number of document saves sent by the client"),
		metric.WithUnit("{save}"),
	)

	m.AutosaveErrorsTotal, _ = meter.Int64Counter(
		"worktable.autosave.errors.total",
		metric.WithDescription("Total number of failed document saves sent by the client"),
		metric.WithUnit("{error}"),
	)

	m.SyncOrgSwitchesTotal, _ = meter.Int64Counter(
		"worktable.sync.organizations.switch.total",
		metric.WithDescription("Total number of organization switches completed by the client"),
		metric.WithUnit("{switch}"),
	)

	return m
}
