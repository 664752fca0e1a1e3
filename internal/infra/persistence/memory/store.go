// Package memory provides an in-memory implementation of the ledger
// persistence store used for tests, ephemeral environments, and as the
// transactional engine behind the durable backends.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mycoledger/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Network aliases domain.Network for in-memory persistence operations.
	Network = domain.Network
	// Tree aliases domain.Tree.
	Tree = domain.Tree
	// Inoculation aliases domain.Inoculation.
	Inoculation = domain.Inoculation
	// CarbonMeasurement aliases domain.CarbonMeasurement.
	CarbonMeasurement = domain.CarbonMeasurement
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// Snapshot aliases domain.Snapshot, the exported state layout.
	Snapshot = domain.Snapshot
)

type memoryState struct {
	networks     map[uint64]Network
	trees        map[uint64]Tree
	inoculations map[uint64]Inoculation
	measurements map[uint64]CarbonMeasurement
	seq          domain.Sequences
}

func (s memoryState) empty() bool {
	return len(s.networks) == 0 && len(s.trees) == 0 && len(s.inoculations) == 0 && len(s.measurements) == 0
}

func newMemoryState() memoryState {
	return memoryState{
		networks:     make(map[uint64]Network),
		trees:        make(map[uint64]Tree),
		inoculations: make(map[uint64]Inoculation),
		measurements: make(map[uint64]CarbonMeasurement),
	}
}

// Records hold no reference fields, so a shallow map copy is a deep clone.
func (s memoryState) clone() memoryState {
	cloned := memoryState{
		networks:     make(map[uint64]Network, len(s.networks)),
		trees:        make(map[uint64]Tree, len(s.trees)),
		inoculations: make(map[uint64]Inoculation, len(s.inoculations)),
		measurements: make(map[uint64]CarbonMeasurement, len(s.measurements)),
		seq:          s.seq,
	}
	for k, v := range s.networks {
		cloned.networks[k] = v
	}
	for k, v := range s.trees {
		cloned.trees[k] = v
	}
	for k, v := range s.inoculations {
		cloned.inoculations[k] = v
	}
	for k, v := range s.measurements {
		cloned.measurements[k] = v
	}
	return cloned
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{
		Networks:           cloned.networks,
		Trees:              cloned.trees,
		Inoculations:       cloned.inoculations,
		CarbonMeasurements: cloned.measurements,
		Sequences:          cloned.seq,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	copied := memoryState{
		networks:     s.Networks,
		trees:        s.Trees,
		inoculations: s.Inoculations,
		measurements: s.CarbonMeasurements,
		seq:          s.Sequences,
	}.clone()
	migrated := migrateSnapshot(Snapshot{
		Networks:           copied.networks,
		Trees:              copied.trees,
		Inoculations:       copied.inoculations,
		CarbonMeasurements: copied.measurements,
		Sequences:          copied.seq,
	})
	return memoryState{
		networks:     migrated.Networks,
		trees:        migrated.Trees,
		inoculations: migrated.Inoculations,
		measurements: migrated.CarbonMeasurements,
		seq:          migrated.Sequences,
	}
}

// migrateSnapshot normalizes snapshots loaded from older or hand-edited
// sources: nil maps become empty, record ids are taken from their map keys,
// children pointing at a missing network are dropped, and counters are raised
// so no future id can collide with an existing record.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Networks == nil {
		snapshot.Networks = map[uint64]Network{}
	}
	if snapshot.Trees == nil {
		snapshot.Trees = map[uint64]Tree{}
	}
	if snapshot.Inoculations == nil {
		snapshot.Inoculations = map[uint64]Inoculation{}
	}
	if snapshot.CarbonMeasurements == nil {
		snapshot.CarbonMeasurements = map[uint64]CarbonMeasurement{}
	}

	networkExists := func(id uint64) bool {
		_, ok := snapshot.Networks[id]
		return ok
	}

	for id, network := range snapshot.Networks {
		network.ID = id
		snapshot.Networks[id] = network
		snapshot.Sequences.Network = max(snapshot.Sequences.Network, id)
	}
	for id, tree := range snapshot.Trees {
		if !networkExists(tree.NetworkID) {
			delete(snapshot.Trees, id)
			continue
		}
		tree.ID = id
		if tree.HealthStatus == "" {
			tree.HealthStatus = domain.HealthHealthy
		}
		snapshot.Trees[id] = tree
		snapshot.Sequences.Tree = max(snapshot.Sequences.Tree, id)
	}
	for id, inoculation := range snapshot.Inoculations {
		if !networkExists(inoculation.NetworkID) {
			delete(snapshot.Inoculations, id)
			continue
		}
		inoculation.ID = id
		snapshot.Inoculations[id] = inoculation
		snapshot.Sequences.Inoculation = max(snapshot.Sequences.Inoculation, id)
	}
	for id, measurement := range snapshot.CarbonMeasurements {
		if !networkExists(measurement.NetworkID) {
			delete(snapshot.CarbonMeasurements, id)
			continue
		}
		measurement.ID = id
		snapshot.CarbonMeasurements[id] = measurement
		snapshot.Sequences.CarbonMeasurement = max(snapshot.Sequences.CarbonMeasurement, id)
	}
	return snapshot
}

// Store provides an in-memory transactional store for the ledger. A single
// writer lock serializes every transaction in submission order.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
	commit CommitHook
}

// CommitHook receives the candidate state of a transaction while the writer
// lock is held. An error aborts the commit and leaves the state unchanged.
type CommitHook func(ctx context.Context, candidate Snapshot) error

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// ExportState returns a deep copy of the committed state including counters.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the committed state with the provided snapshot. It
// skips validation and the commit hook; durable backends use it to hydrate
// from their own storage.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// ImportSnapshot validates snapshot and installs it, counters included, into
// a store holding no records. The emptiness check, the commit hook and the
// swap happen under one writer lock.
func (s *Store) ImportSnapshot(ctx context.Context, snapshot Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.empty() {
		return domain.InvalidInput("snapshot", "restore requires an empty ledger")
	}
	state := memoryStateFromSnapshot(snapshot)
	if err := s.persist(ctx, state); err != nil {
		return err
	}
	s.state = state
	return nil
}

// SetCommitHook installs fn to run before every commit and import.
func (s *Store) SetCommitHook(fn CommitHook) {
	s.mu.Lock()
	s.commit = fn
	s.mu.Unlock()
}

func (s *Store) persist(ctx context.Context, candidate memoryState) error {
	if s.commit == nil {
		return nil
	}
	if err := s.commit(ctx, snapshotFromMemoryState(candidate)); err != nil {
		return domain.Storage("persist ledger state", err)
	}
	return nil
}

// RulesEngine exposes the configured rules engine.
func (s *Store) RulesEngine() *RulesEngine {
	return s.engine
}

// NowFunc returns the clock used to stamp records.
func (s *Store) NowFunc() func() time.Time {
	return s.nowFn
}

// SetNowFunc overrides the clock used to stamp records.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.nowFn = fn
	s.mu.Unlock()
}

type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) FindNetwork(id uint64) (Network, bool) {
	n, ok := v.state.networks[id]
	return n, ok
}

func (v transactionView) FindTree(id uint64) (Tree, bool) {
	t, ok := v.state.trees[id]
	return t, ok
}

func (v transactionView) FindInoculation(id uint64) (Inoculation, bool) {
	i, ok := v.state.inoculations[id]
	return i, ok
}

func (v transactionView) FindCarbonMeasurement(id uint64) (CarbonMeasurement, bool) {
	m, ok := v.state.measurements[id]
	return m, ok
}

func (v transactionView) ListTrees(networkID uint64) []Tree {
	out := make([]Tree, 0)
	for _, t := range v.state.trees {
		if t.NetworkID == networkID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (v transactionView) ListCarbonMeasurements(networkID uint64) []CarbonMeasurement {
	out := make([]CarbonMeasurement, 0)
	for _, m := range v.state.measurements {
		if m.NetworkID == networkID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy, including id counters, is committed only when fn succeeds, no
// blocking rule violation is reported and the commit hook accepts it.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if err := s.persist(ctx, tx.state); err != nil {
		return Result{}, err
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) Now() time.Time {
	return tx.now
}

func (tx *transaction) FindNetwork(id uint64) (Network, bool) {
	n, ok := tx.state.networks[id]
	return n, ok
}

func (tx *transaction) FindTree(id uint64) (Tree, bool) {
	t, ok := tx.state.trees[id]
	return t, ok
}

func (tx *transaction) FindInoculation(id uint64) (Inoculation, bool) {
	i, ok := tx.state.inoculations[id]
	return i, ok
}

func (tx *transaction) requireNetwork(id uint64) error {
	if _, ok := tx.state.networks[id]; !ok {
		return domain.NotFound(domain.EntityNetwork, id)
	}
	return nil
}

// CreateNetwork validates and stores a network under the next network id.
func (tx *transaction) CreateNetwork(n Network) (Network, error) {
	if err := n.Validate(); err != nil {
		return Network{}, err
	}
	n.ID = tx.state.seq.Network + 1
	if _, exists := tx.state.networks[n.ID]; exists {
		return Network{}, fmt.Errorf("network %d already exists", n.ID)
	}
	n.CreatedAt = tx.now
	n.UpdatedAt = tx.now
	tx.state.networks[n.ID] = n
	tx.state.seq.Network = n.ID
	tx.recordChange(Change{Entity: domain.EntityNetwork, Action: domain.ActionCreate, After: n})
	return n, nil
}

// UpdateNetwork mutates a network; identity and creation time are preserved.
func (tx *transaction) UpdateNetwork(id uint64, mutator func(*Network) error) (Network, error) {
	current, ok := tx.state.networks[id]
	if !ok {
		return Network{}, domain.NotFound(domain.EntityNetwork, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Network{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.Steward = before.Steward
	if err := current.Validate(); err != nil {
		return Network{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.networks[id] = current
	tx.recordChange(Change{Entity: domain.EntityNetwork, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateTree stores a tree bound to an existing network.
func (tx *transaction) CreateTree(t Tree) (Tree, error) {
	if err := tx.requireNetwork(t.NetworkID); err != nil {
		return Tree{}, err
	}
	if t.HealthStatus == "" {
		t.HealthStatus = domain.HealthHealthy
	}
	if err := t.Validate(); err != nil {
		return Tree{}, err
	}
	t.ID = tx.state.seq.Tree + 1
	if _, exists := tx.state.trees[t.ID]; exists {
		return Tree{}, fmt.Errorf("tree %d already exists", t.ID)
	}
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.trees[t.ID] = t
	tx.state.seq.Tree = t.ID
	tx.recordChange(Change{Entity: domain.EntityTree, Action: domain.ActionCreate, After: t})
	return t, nil
}

// UpdateTree mutates a tree; its id and network binding are immutable.
func (tx *transaction) UpdateTree(id uint64, mutator func(*Tree) error) (Tree, error) {
	current, ok := tx.state.trees[id]
	if !ok {
		return Tree{}, domain.NotFound(domain.EntityTree, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Tree{}, err
	}
	current.ID = id
	current.NetworkID = before.NetworkID
	current.CreatedAt = before.CreatedAt
	if err := current.Validate(); err != nil {
		return Tree{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.trees[id] = current
	tx.recordChange(Change{Entity: domain.EntityTree, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateInoculation stores an inoculation event for an existing network.
func (tx *transaction) CreateInoculation(i Inoculation) (Inoculation, error) {
	if err := tx.requireNetwork(i.NetworkID); err != nil {
		return Inoculation{}, err
	}
	if err := i.Validate(); err != nil {
		return Inoculation{}, err
	}
	i.ID = tx.state.seq.Inoculation + 1
	if _, exists := tx.state.inoculations[i.ID]; exists {
		return Inoculation{}, fmt.Errorf("inoculation %d already exists", i.ID)
	}
	i.CreatedAt = tx.now
	i.UpdatedAt = tx.now
	tx.state.inoculations[i.ID] = i
	tx.state.seq.Inoculation = i.ID
	tx.recordChange(Change{Entity: domain.EntityInoculation, Action: domain.ActionCreate, After: i})
	return i, nil
}

// UpdateInoculation mutates an inoculation; its id and network binding are immutable.
func (tx *transaction) UpdateInoculation(id uint64, mutator func(*Inoculation) error) (Inoculation, error) {
	current, ok := tx.state.inoculations[id]
	if !ok {
		return Inoculation{}, domain.NotFound(domain.EntityInoculation, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Inoculation{}, err
	}
	current.ID = id
	current.NetworkID = before.NetworkID
	current.PerformedBy = before.PerformedBy
	current.CreatedAt = before.CreatedAt
	if err := current.Validate(); err != nil {
		return Inoculation{}, err
	}
	current.UpdatedAt = tx.now
	tx.state.inoculations[id] = current
	tx.recordChange(Change{Entity: domain.EntityInoculation, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateCarbonMeasurement appends a measurement for an existing network.
// Measurements are immutable once recorded.
func (tx *transaction) CreateCarbonMeasurement(m CarbonMeasurement) (CarbonMeasurement, error) {
	if err := tx.requireNetwork(m.NetworkID); err != nil {
		return CarbonMeasurement{}, err
	}
	if err := m.Validate(); err != nil {
		return CarbonMeasurement{}, err
	}
	m.ID = tx.state.seq.CarbonMeasurement + 1
	if _, exists := tx.state.measurements[m.ID]; exists {
		return CarbonMeasurement{}, fmt.Errorf("carbon measurement %d already exists", m.ID)
	}
	m.RecordedAt = tx.now
	tx.state.measurements[m.ID] = m
	tx.state.seq.CarbonMeasurement = m.ID
	tx.recordChange(Change{Entity: domain.EntityCarbonMeasurement, Action: domain.ActionCreate, After: m})
	return m, nil
}

// Read helpers ---------------------------------------------------------------

// GetNetwork retrieves a network by id from committed state.
func (s *Store) GetNetwork(id uint64) (Network, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.state.networks[id]
	return n, ok
}

// GetTree retrieves a tree by id from committed state.
func (s *Store) GetTree(id uint64) (Tree, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.trees[id]
	return t, ok
}

// GetInoculation retrieves an inoculation by id from committed state.
func (s *Store) GetInoculation(id uint64) (Inoculation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.state.inoculations[id]
	return i, ok
}

// GetCarbonMeasurement retrieves a carbon measurement by id from committed state.
func (s *Store) GetCarbonMeasurement(id uint64) (CarbonMeasurement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.measurements[id]
	return m, ok
}
