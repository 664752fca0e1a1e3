package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mycoledger/internal/infra/persistence/memory"
	"mycoledger/pkg/domain"
)

// Service exposes the ledger operations. Every mutation runs inside exactly
// one store transaction; a failure leaves the committed state untouched.
type Service struct {
	store      domain.PersistentStore
	logger     Logger
	clock      Clock
	audit      AuditRecorder
	metrics    MetricsRecorder
	tracer     Tracer
	authorizer Authorizer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used to stamp audit entries.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(r AuditRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.audit = r
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(r MetricsRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithTracer sets the span tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAuthorizer sets the policy consulted by FundNetwork and UpdateSuccessRate.
func WithAuthorizer(a Authorizer) Option {
	return func(s *Service) {
		if a != nil {
			s.authorizer = a
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:      store,
		logger:     noopLogger{},
		clock:      ClockFunc(nil),
		audit:      noopAuditRecorder{},
		metrics:    noopMetricsRecorder{},
		tracer:     noopTracer{},
		authorizer: AllowAll{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine selects the default rule set.
func NewInMemoryService(engine *domain.RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// run wraps an operation with tracing, metrics, logging and auditing. fn
// returns the id of the record it touched, zero when there is none.
func (s *Service) run(ctx context.Context, op string, caller domain.Principal, fn func(context.Context) (uint64, domain.Result, error)) error {
	ctx, span := s.tracer.Start(ctx, op)
	started := time.Now()
	id, res, err := fn(ctx)
	elapsed := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, elapsed)

	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "entity", v.Entity, "entity_id", v.EntityID, "message", v.Message)
		}
	}
	if err != nil {
		s.logger.Error("ledger operation failed", "operation", op, "entity_id", id, "duration", elapsed, "kind", domain.KindOf(err), "error", err)
	} else {
		s.logger.Debug("ledger operation committed", "operation", op, "entity_id", id, "duration", elapsed)
	}
	s.recordAudit(ctx, op, caller, id, elapsed, err)
	return err
}

func (s *Service) recordAudit(ctx context.Context, op string, caller domain.Principal, id uint64, elapsed time.Duration, err error) {
	target, ok := auditedOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		ID:        uuid.NewString(),
		Operation: op,
		Entity:    target.entity,
		Action:    target.action,
		EntityID:  id,
		Caller:    caller,
		Status:    AuditStatusSuccess,
		Duration:  elapsed,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

// EstablishNetwork registers a network under the next network id with zeroed
// aggregates. The caller becomes the network's steward.
func (s *Service) EstablishNetwork(ctx context.Context, caller domain.Principal, in domain.NetworkInput) (domain.Network, domain.Result, error) {
	var created domain.Network
	var res domain.Result
	err := s.run(ctx, OpEstablishNetwork, caller, func(ctx context.Context) (uint64, domain.Result, error) {
		if err := in.Validate(); err != nil {
			return 0, domain.Result{}, err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created, err = tx.CreateNetwork(domain.Network{
				Name:                in.Name,
				Location:            in.Location,
				ForestAreaHectares:  in.ForestAreaHectares,
				DominantTreeSpecies: in.DominantTreeSpecies,
				FungalCount:         in.InitialFungalCount,
				Steward:             caller,
			})
			return err
		})
		return created.ID, res, err
	})
	if err != nil {
		return domain.Network{}, res, err
	}
	return created, res, nil
}

// EnhanceDensity sets a network's density score, 0 to 100 inclusive.
func (s *Service) EnhanceDensity(ctx context.Context, networkID uint64, density int64) (domain.Network, domain.Result, error) {
	return s.updateNetwork(ctx, OpEnhanceDensity, networkID, func(n *domain.Network) error {
		if err := domain.Percentage("density_score", density); err != nil {
			return err
		}
		n.DensityScore = density
		return nil
	})
}

// UpdateExchangeRate sets a network's nutrient exchange rate.
func (s *Service) UpdateExchangeRate(ctx context.Context, networkID uint64, rate int64) (domain.Network, domain.Result, error) {
	return s.updateNetwork(ctx, OpUpdateExchangeRate, networkID, func(n *domain.Network) error {
		if err := domain.NonNegative("nutrient_exchange_rate", rate); err != nil {
			return err
		}
		n.NutrientExchangeRate = rate
		return nil
	})
}

func (s *Service) updateNetwork(ctx context.Context, op string, networkID uint64, mutator func(*domain.Network) error) (domain.Network, domain.Result, error) {
	var updated domain.Network
	var res domain.Result
	err := s.run(ctx, op, "", func(ctx context.Context) (uint64, domain.Result, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			updated, err = tx.UpdateNetwork(networkID, mutator)
			return err
		})
		return networkID, res, err
	})
	if err != nil {
		return domain.Network{}, res, err
	}
	return updated, res, nil
}

// FundNetwork adds a positive amount to a network's funding total.
func (s *Service) FundNetwork(ctx context.Context, caller domain.Principal, networkID uint64, amount int64) (domain.Network, domain.Result, error) {
	var updated domain.Network
	var res domain.Result
	err := s.run(ctx, OpFundNetwork, caller, func(ctx context.Context) (uint64, domain.Result, error) {
		if amount <= 0 {
			return networkID, domain.Result{}, domain.InvalidInput("amount", "funding amount must be positive")
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			network, ok := tx.FindNetwork(networkID)
			if !ok {
				return domain.NotFound(domain.EntityNetwork, networkID)
			}
			if err := s.authorizer.AuthorizeFunding(ctx, caller, network); err != nil {
				return err
			}
			updated, err = tx.UpdateNetwork(networkID, func(n *domain.Network) error {
				total, err := domain.AddFunding(n.TotalFunding, amount)
				if err != nil {
					return err
				}
				n.TotalFunding = total
				return nil
			})
			return err
		})
		return networkID, res, err
	})
	if err != nil {
		return domain.Network{}, res, err
	}
	return updated, res, nil
}

// RegisterTree adds a healthy tree to an existing network.
func (s *Service) RegisterTree(ctx context.Context, in domain.TreeInput) (domain.Tree, domain.Result, error) {
	var created domain.Tree
	var res domain.Result
	err := s.run(ctx, OpRegisterTree, "", func(ctx context.Context) (uint64, domain.Result, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created, err = tx.CreateTree(in.Tree())
			return err
		})
		return created.ID, res, err
	})
	if err != nil {
		return domain.Tree{}, res, err
	}
	return created, res, nil
}

// UpdateTreeHealth replaces a tree's vitality block.
func (s *Service) UpdateTreeHealth(ctx context.Context, treeID uint64, health domain.TreeHealth) (domain.Tree, domain.Result, error) {
	var updated domain.Tree
	var res domain.Result
	err := s.run(ctx, OpUpdateTreeHealth, "", func(ctx context.Context) (uint64, domain.Result, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			updated, err = tx.UpdateTree(treeID, func(t *domain.Tree) error {
				health.Apply(t)
				return nil
			})
			return err
		})
		return treeID, res, err
	})
	if err != nil {
		return domain.Tree{}, res, err
	}
	return updated, res, nil
}

// PerformInoculation records an inoculation event against an existing
// network. The caller is stored as the performer.
func (s *Service) PerformInoculation(ctx context.Context, caller domain.Principal, in domain.InoculationInput) (domain.Inoculation, domain.Result, error) {
	var created domain.Inoculation
	var res domain.Result
	err := s.run(ctx, OpPerformInoculation, caller, func(ctx context.Context) (uint64, domain.Result, error) {
		record := in.Inoculation()
		record.PerformedBy = caller
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created, err = tx.CreateInoculation(record)
			return err
		})
		return created.ID, res, err
	})
	if err != nil {
		return domain.Inoculation{}, res, err
	}
	return created, res, nil
}

// UpdateSuccessRate sets an inoculation's observed success rate, 0 to 100
// inclusive.
func (s *Service) UpdateSuccessRate(ctx context.Context, caller domain.Principal, inoculationID uint64, rate int64) (domain.Inoculation, domain.Result, error) {
	var updated domain.Inoculation
	var res domain.Result
	err := s.run(ctx, OpUpdateSuccessRate, caller, func(ctx context.Context) (uint64, domain.Result, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			inoculation, ok := tx.FindInoculation(inoculationID)
			if !ok {
				return domain.NotFound(domain.EntityInoculation, inoculationID)
			}
			network, _ := tx.FindNetwork(inoculation.NetworkID)
			if err := s.authorizer.AuthorizeSuccessRate(ctx, caller, network, inoculation); err != nil {
				return err
			}
			updated, err = tx.UpdateInoculation(inoculationID, func(i *domain.Inoculation) error {
				if err := domain.Percentage("success_rate", rate); err != nil {
					return err
				}
				i.SuccessRate = rate
				return nil
			})
			return err
		})
		return inoculationID, res, err
	})
	if err != nil {
		return domain.Inoculation{}, res, err
	}
	return updated, res, nil
}

// RecordCarbonMeasurement appends a measurement and, in the same transaction,
// sets the network's carbon capacity to the measured total.
func (s *Service) RecordCarbonMeasurement(ctx context.Context, in domain.CarbonInput) (domain.CarbonMeasurement, domain.Result, error) {
	var created domain.CarbonMeasurement
	var res domain.Result
	err := s.run(ctx, OpRecordCarbonMeasurement, "", func(ctx context.Context) (uint64, domain.Result, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created, err = tx.CreateCarbonMeasurement(in.Measurement())
			if err != nil {
				return err
			}
			_, err = tx.UpdateNetwork(created.NetworkID, func(n *domain.Network) error {
				n.CarbonCapacity = created.TotalCarbonStored
				return nil
			})
			return err
		})
		return created.ID, res, err
	})
	if err != nil {
		return domain.CarbonMeasurement{}, res, err
	}
	return created, res, nil
}

// CalculateHealthScore derives a 0 to 100 score from the network's trees.
func (s *Service) CalculateHealthScore(ctx context.Context, networkID uint64) (int64, error) {
	var score int64
	err := s.run(ctx, OpCalculateHealthScore, "", func(ctx context.Context) (uint64, domain.Result, error) {
		return networkID, domain.Result{}, s.store.View(ctx, func(view domain.TransactionView) error {
			if _, ok := view.FindNetwork(networkID); !ok {
				return domain.NotFound(domain.EntityNetwork, networkID)
			}
			score = domain.HealthScore(view.ListTrees(networkID))
			return nil
		})
	})
	return score, err
}

// CalculateCarbonEfficiency returns the network's carbon capacity per hectare.
func (s *Service) CalculateCarbonEfficiency(ctx context.Context, networkID uint64) (int64, error) {
	var efficiency int64
	err := s.run(ctx, OpCalculateCarbonEfficiency, "", func(ctx context.Context) (uint64, domain.Result, error) {
		return networkID, domain.Result{}, s.store.View(ctx, func(view domain.TransactionView) error {
			network, ok := view.FindNetwork(networkID)
			if !ok {
				return domain.NotFound(domain.EntityNetwork, networkID)
			}
			efficiency = domain.CarbonEfficiency(network)
			return nil
		})
	})
	return efficiency, err
}

// GetNetwork returns a committed network.
func (s *Service) GetNetwork(_ context.Context, id uint64) (domain.Network, error) {
	n, ok := s.store.GetNetwork(id)
	if !ok {
		return domain.Network{}, domain.NotFound(domain.EntityNetwork, id)
	}
	return n, nil
}

// GetTree returns a committed tree.
func (s *Service) GetTree(_ context.Context, id uint64) (domain.Tree, error) {
	t, ok := s.store.GetTree(id)
	if !ok {
		return domain.Tree{}, domain.NotFound(domain.EntityTree, id)
	}
	return t, nil
}

// GetInoculation returns a committed inoculation.
func (s *Service) GetInoculation(_ context.Context, id uint64) (domain.Inoculation, error) {
	i, ok := s.store.GetInoculation(id)
	if !ok {
		return domain.Inoculation{}, domain.NotFound(domain.EntityInoculation, id)
	}
	return i, nil
}

// GetCarbonMeasurement returns a committed carbon measurement.
func (s *Service) GetCarbonMeasurement(_ context.Context, id uint64) (domain.CarbonMeasurement, error) {
	m, ok := s.store.GetCarbonMeasurement(id)
	if !ok {
		return domain.CarbonMeasurement{}, domain.NotFound(domain.EntityCarbonMeasurement, id)
	}
	return m, nil
}

// ExportState returns a copy of the committed ledger, counters included.
func (s *Service) ExportState() domain.Snapshot {
	return s.store.ExportState()
}
