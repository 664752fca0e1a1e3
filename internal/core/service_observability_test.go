package core

import (
	"bytes"
	"context"
	"expvar"
	"strings"
	"testing"
	"time"

	"mycoledger/pkg/domain"
)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

func (c *captureLogger) has(call string) bool {
	for _, got := range c.calls {
		if got == call {
			return true
		}
	}
	return false
}

func TestServiceObservabilityCoversOperations(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	fixed := time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC)

	svc := NewInMemoryService(NewDefaultRulesEngine(),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
		WithClock(ClockFunc(func() time.Time { return fixed })),
	)

	network, _, err := svc.EstablishNetwork(ctx, mycologist1, pacificNorthwest())
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	if !audit.has(OpEstablishNetwork, AuditStatusSuccess, func(e AuditEntry) bool {
		return e.EntityID == network.ID && e.Caller == mycologist1 && e.Entity == domain.EntityNetwork &&
			e.Action == domain.ActionCreate && e.Timestamp.Equal(fixed) && e.ID != ""
	}) {
		t.Fatalf("expected audit entry for establish_network, got %+v", audit.entries)
	}

	tree, _, err := svc.RegisterTree(ctx, domain.TreeInput{NetworkID: network.ID, Species: "Alder"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := svc.UpdateTreeHealth(ctx, tree.ID, domain.TreeHealth{Status: domain.HealthStressed, NutrientUptakeRate: 30}); err != nil {
		t.Fatalf("tree health: %v", err)
	}
	inoc, _, err := svc.PerformInoculation(ctx, mycologist1, domain.InoculationInput{NetworkID: network.ID, SporeConcentration: 10, ApplicationArea: 2})
	if err != nil {
		t.Fatalf("inoculate: %v", err)
	}
	if _, _, err := svc.UpdateSuccessRate(ctx, mycologist1, inoc.ID, 50); err != nil {
		t.Fatalf("success rate: %v", err)
	}
	if _, _, err := svc.RecordCarbonMeasurement(ctx, domain.CarbonInput{NetworkID: network.ID, TotalCarbonStored: 3, SoilCarbon: 1, BiomassCarbon: 2}); err != nil {
		t.Fatalf("carbon: %v", err)
	}
	if _, _, err := svc.EnhanceDensity(ctx, network.ID, 10); err != nil {
		t.Fatalf("density: %v", err)
	}
	if _, _, err := svc.UpdateExchangeRate(ctx, network.ID, 10); err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if _, _, err := svc.FundNetwork(ctx, mycologist2, network.ID, 10); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if _, err := svc.CalculateHealthScore(ctx, network.ID); err != nil {
		t.Fatalf("score: %v", err)
	}
	if _, err := svc.CalculateCarbonEfficiency(ctx, network.ID); err != nil {
		t.Fatalf("efficiency: %v", err)
	}

	for op := range auditedOperations {
		if !audit.has(op, AuditStatusSuccess, nil) {
			t.Fatalf("expected audit success entry for %s", op)
		}
	}
	for _, op := range []string{OpCalculateHealthScore, OpCalculateCarbonEfficiency} {
		if audit.has(op, AuditStatusSuccess, nil) {
			t.Fatalf("read operation %s must not be audited", op)
		}
	}
	for _, op := range append(mapKeys(auditedOperations), OpCalculateHealthScore, OpCalculateCarbonEfficiency) {
		if !metrics.has(op, true) {
			t.Fatalf("expected metrics success entry for %s", op)
		}
		if !tracer.has(op, true) {
			t.Fatalf("expected finished span for %s", op)
		}
	}

	if _, _, err := svc.FundNetwork(ctx, mycologist1, 42, 10); err == nil {
		t.Fatalf("expected fund error for missing network")
	}
	if !audit.has(OpFundNetwork, AuditStatusError, func(e AuditEntry) bool { return e.EntityID == 42 && e.Error != "" }) {
		t.Fatalf("expected audit error entry for fund_network")
	}
	if !metrics.has(OpFundNetwork, false) || !tracer.has(OpFundNetwork, false) {
		t.Fatalf("expected failed fund_network metrics and span")
	}
}

func mapKeys(m map[string]auditTarget) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestServiceLogsOutcomesAndWarnings(t *testing.T) {
	ctx := context.Background()
	log := &captureLogger{}
	svc := NewInMemoryService(nil, WithLogger(log))
	n, _, err := svc.EstablishNetwork(ctx, mycologist1, pacificNorthwest())
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	if !log.has("d:ledger operation committed") {
		t.Fatalf("expected debug log on success, got %v", log.calls)
	}
	tree, _, _ := svc.RegisterTree(ctx, domain.TreeInput{NetworkID: n.ID, Species: "Alder"})
	_, res, err := svc.UpdateTreeHealth(ctx, tree.ID, domain.TreeHealth{Status: domain.HealthDead, MycorrhizalConnections: 4})
	if err != nil {
		t.Fatalf("dead tree update must commit with a warning: %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Rule != RuleDeadTreeConnections {
		t.Fatalf("expected dead tree warning, got %+v", res.Violations)
	}
	if !log.has("w:rule warning") {
		t.Fatalf("expected warning log, got %v", log.calls)
	}
	if _, _, err := svc.EnhanceDensity(ctx, n.ID, 500); err == nil {
		t.Fatalf("expected density error")
	}
	if !log.has("e:ledger operation failed") {
		t.Fatalf("expected error log on failure, got %v", log.calls)
	}
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	svc := NewInMemoryService(nil, WithLogger(nil), WithClock(nil), WithAuditRecorder(nil), WithMetricsRecorder(nil), WithTracer(nil), WithAuthorizer(nil))
	if _, ok := svc.logger.(noopLogger); !ok {
		t.Fatalf("expected noop logger, got %T", svc.logger)
	}
	if _, ok := svc.authorizer.(AllowAll); !ok {
		t.Fatalf("expected allow-all policy, got %T", svc.authorizer)
	}
	if svc.clock.Now().IsZero() {
		t.Fatalf("expected non-zero default clock")
	}
}

func TestClockFunc(t *testing.T) {
	if ClockFunc(nil).Now().IsZero() {
		t.Fatal("expected non-zero time from nil ClockFunc")
	}
	expected := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := ClockFunc(func() time.Time { return expected }).Now(); !got.Equal(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestNoopImplementations(t *testing.T) {
	var logger noopLogger
	logger.Debug("noop")
	logger.Info("noop")
	logger.Warn("noop")
	logger.Error("noop")
	noopAuditRecorder{}.Record(context.Background(), AuditEntry{})
	noopMetricsRecorder{}.Observe(context.Background(), "noop", true, 0)
	ctx, span := noopTracer{}.Start(context.Background(), "op")
	if ctx == nil {
		t.Fatalf("expected context from tracer")
	}
	span.End(nil)
}

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if recorder.Name() == "" {
		t.Fatalf("expected recorder to have export name")
	}
	recorder.Observe(context.Background(), OpFundNetwork, true, 10*time.Millisecond)
	recorder.Observe(context.Background(), OpFundNetwork, false, 5*time.Millisecond)
	recorder.Observe(context.Background(), "", true, time.Second)

	snapshot := recorder.Snapshot()
	if snapshot.DurationsMS[OpFundNetwork] != 15 {
		t.Fatalf("expected 15ms total, snapshot=%+v", snapshot)
	}
	if snapshot.Results[OpFundNetwork]["success"] != 1 || snapshot.Results[OpFundNetwork]["error"] != 1 {
		t.Fatalf("unexpected results snapshot=%+v", snapshot)
	}
	if len(snapshot.Results) != 1 {
		t.Fatalf("empty operation must be ignored: %+v", snapshot.Results)
	}
	v := expvar.Get(recorder.Name())
	if v == nil || !strings.Contains(v.String(), OpFundNetwork) {
		t.Fatalf("expected expvar export containing the operation")
	}
}

func TestJSONTraceTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc := NewInMemoryService(nil, WithTracer(tracer))
	if _, err := svc.CalculateHealthScore(context.Background(), 9); err == nil {
		t.Fatalf("expected not found")
	}
	entries := tracer.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected single span entry, got %d", len(entries))
	}
	if entries[0].Operation != OpCalculateHealthScore || entries[0].Status != "error" || entries[0].Kind != string(domain.KindNotFound) {
		t.Fatalf("unexpected span entry: %+v", entries[0])
	}
	if !strings.Contains(buf.String(), `"operation":"calculate_health_score"`) {
		t.Fatalf("expected JSON output to contain operation: %q", buf.String())
	}
}

func TestJSONAuditLog(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONAuditLog(&buf)
	svc := NewInMemoryService(nil, WithAuditRecorder(log))
	establish(t, svc)
	entries := log.Entries()
	if len(entries) != 1 || entries[0].Operation != OpEstablishNetwork {
		t.Fatalf("unexpected audit entries %+v", entries)
	}
	if !strings.Contains(buf.String(), `"caller":"`+string(mycologist1)+`"`) {
		t.Fatalf("expected caller in audit line: %s", buf.String())
	}
	NewJSONAuditLog(nil).Record(context.Background(), AuditEntry{})
}
