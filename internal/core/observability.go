package core

import (
	"context"
	"time"

	"mycoledger/pkg/domain"
)

// Logger is the minimal structured logger the service writes to.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies timestamps for audit entries.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

// Now returns the function's time, or the current UTC time when nil.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f()
}

// AuditStatus records whether an audited operation committed.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one mutating ledger operation.
type AuditEntry struct {
	ID        string            `json:"id"`
	Operation string            `json:"operation"`
	Entity    domain.EntityType `json:"entity"`
	Action    domain.Action     `json:"action"`
	EntityID  uint64            `json:"entity_id,omitempty"`
	Caller    domain.Principal  `json:"caller,omitempty"`
	Status    AuditStatus       `json:"status"`
	Error     string            `json:"error,omitempty"`
	Duration  time.Duration     `json:"duration"`
	Timestamp time.Time         `json:"timestamp"`
}

// AuditRecorder receives an entry for every mutating operation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes the outcome and latency of every operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens a span around every operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is closed with the operation's error, nil on success.
type TraceSpan interface {
	End(err error)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// Operation names reported to loggers, recorders and tracers.
const (
	OpEstablishNetwork          = "establish_network"
	OpEnhanceDensity            = "enhance_density"
	OpUpdateExchangeRate        = "update_exchange_rate"
	OpFundNetwork               = "fund_network"
	OpRegisterTree              = "register_tree"
	OpUpdateTreeHealth          = "update_tree_health"
	OpPerformInoculation        = "perform_inoculation"
	OpUpdateSuccessRate         = "update_success_rate"
	OpRecordCarbonMeasurement   = "record_carbon_measurement"
	OpCalculateHealthScore      = "calculate_health_score"
	OpCalculateCarbonEfficiency = "calculate_carbon_efficiency"
	OpImportSnapshot            = "import_snapshot"
)

type auditTarget struct {
	entity domain.EntityType
	action domain.Action
}

// auditedOperations lists the mutations that produce audit entries. Reads are
// measured and traced but not audited.
var auditedOperations = map[string]auditTarget{
	OpEstablishNetwork:        {domain.EntityNetwork, domain.ActionCreate},
	OpEnhanceDensity:          {domain.EntityNetwork, domain.ActionUpdate},
	OpUpdateExchangeRate:      {domain.EntityNetwork, domain.ActionUpdate},
	OpFundNetwork:             {domain.EntityNetwork, domain.ActionUpdate},
	OpRegisterTree:            {domain.EntityTree, domain.ActionCreate},
	OpUpdateTreeHealth:        {domain.EntityTree, domain.ActionUpdate},
	OpPerformInoculation:      {domain.EntityInoculation, domain.ActionCreate},
	OpUpdateSuccessRate:       {domain.EntityInoculation, domain.ActionUpdate},
	OpRecordCarbonMeasurement: {domain.EntityCarbonMeasurement, domain.ActionCreate},
}
