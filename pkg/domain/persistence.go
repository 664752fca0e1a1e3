package domain

import (
	"context"
	"time"
)

// Transaction exposes the ledger operations a persistence implementation must
// support within an atomic scope. Create methods allocate the next identifier
// for their entity type; identifiers and foreign keys cannot be changed by
// update mutators.
type Transaction interface {
	Snapshot() TransactionView
	Now() time.Time
	CreateNetwork(Network) (Network, error)
	UpdateNetwork(id uint64, mutator func(*Network) error) (Network, error)
	CreateTree(Tree) (Tree, error)
	UpdateTree(id uint64, mutator func(*Tree) error) (Tree, error)
	CreateInoculation(Inoculation) (Inoculation, error)
	UpdateInoculation(id uint64, mutator func(*Inoculation) error) (Inoculation, error)
	CreateCarbonMeasurement(CarbonMeasurement) (CarbonMeasurement, error)
	FindNetwork(id uint64) (Network, bool)
	FindTree(id uint64) (Tree, bool)
	FindInoculation(id uint64) (Inoculation, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// the metrics calculator.
type TransactionView interface {
	FindNetwork(id uint64) (Network, bool)
	FindTree(id uint64) (Tree, bool)
	FindInoculation(id uint64) (Inoculation, bool)
	FindCarbonMeasurement(id uint64) (CarbonMeasurement, bool)
	// ListTrees returns the trees owned by a network ordered by id.
	ListTrees(networkID uint64) []Tree
	// ListCarbonMeasurements returns a network's measurements ordered by id.
	ListCarbonMeasurements(networkID uint64) []CarbonMeasurement
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetNetwork(id uint64) (Network, bool)
	GetTree(id uint64) (Tree, bool)
	GetInoculation(id uint64) (Inoculation, bool)
	GetCarbonMeasurement(id uint64) (CarbonMeasurement, bool)
	ExportState() Snapshot
}

// Sequences holds the last identifier issued per entity type. Zero means none
// has been issued and the next record receives 1.
type Sequences struct {
	Network           uint64 `json:"network"`
	Tree              uint64 `json:"tree"`
	Inoculation       uint64 `json:"inoculation"`
	CarbonMeasurement uint64 `json:"carbon_measurement"`
}

// Snapshot captures a point-in-time copy of the full ledger state: four
// id-to-record maps plus the identifier counters.
type Snapshot struct {
	Networks           map[uint64]Network           `json:"networks"`
	Trees              map[uint64]Tree              `json:"trees"`
	Inoculations       map[uint64]Inoculation       `json:"inoculations"`
	CarbonMeasurements map[uint64]CarbonMeasurement `json:"carbon_measurements"`
	Sequences          Sequences                    `json:"sequences"`
}

// Empty reports whether the snapshot holds no records.
func (s Snapshot) Empty() bool {
	return len(s.Networks) == 0 && len(s.Trees) == 0 && len(s.Inoculations) == 0 && len(s.CarbonMeasurements) == 0
}
