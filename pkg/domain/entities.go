// Package domain defines the ledger's persistent entities, value types, and
// rule evaluation primitives used by mycoledger.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the type of record stored in the ledger.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityNetwork identifies a mycorrhizal network record.
	EntityNetwork EntityType = "network"
	// EntityTree identifies a tree bound to a network.
	EntityTree EntityType = "tree"
	// EntityInoculation identifies a fungal inoculation event.
	EntityInoculation EntityType = "inoculation"
	// EntityCarbonMeasurement identifies a carbon-storage measurement.
	EntityCarbonMeasurement EntityType = "carbon_measurement"
)

// HealthStatus enumerates the vitality states a tree may report.
type HealthStatus string

// Canonical tree health states.
const (
	HealthHealthy   HealthStatus = "healthy"
	HealthStressed  HealthStatus = "stressed"
	HealthDeclining HealthStatus = "declining"
	HealthDead      HealthStatus = "dead"
)

// Valid reports whether the status is one of the canonical values.
func (h HealthStatus) Valid() bool {
	switch h {
	case HealthHealthy, HealthStressed, HealthDeclining, HealthDead:
		return true
	default:
		return false
	}
}

// ParseHealthStatus converts free text into a HealthStatus.
func ParseHealthStatus(raw string) (HealthStatus, error) {
	status := HealthStatus(raw)
	if !status.Valid() {
		return "", InvalidInput("health_status", fmt.Sprintf("unknown health status %q", raw))
	}
	return status, nil
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	// SeverityLog records the violation in the result without logging it.
	SeverityLog Severity = "log"
)

// Principal identifies the caller submitting an operation. The ledger does not
// verify it; authentication happens before a request reaches the service.
type Principal string

// Location is a fixed-point coordinate scaled by LocationScale
// (47600 means 47.600 degrees).
type Location struct {
	Latitude  int64 `json:"lat"`
	Longitude int64 `json:"lon"`
}

// LocationScale is the fixed-point factor applied to Location components.
const LocationScale = 1000

func (l Location) String() string {
	return fmt.Sprintf("%.3f,%.3f", float64(l.Latitude)/LocationScale, float64(l.Longitude)/LocationScale)
}

// Network is the root record every other entity references.
type Network struct {
	ID                   uint64    `json:"id"`
	Name                 string    `json:"name"`
	Location             Location  `json:"location"`
	ForestAreaHectares   int64     `json:"forest_area_hectares"`
	DominantTreeSpecies  string    `json:"dominant_tree_species"`
	FungalCount          int64     `json:"fungal_count"`
	DensityScore         int64     `json:"density_score"`
	NutrientExchangeRate int64     `json:"nutrient_exchange_rate"`
	CarbonCapacity       int64     `json:"carbon_capacity"`
	TotalFunding         int64     `json:"total_funding"`
	Steward              Principal `json:"steward,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Tree is a member of exactly one network.
type Tree struct {
	ID                     uint64       `json:"id"`
	NetworkID              uint64       `json:"network_id"`
	Species                string       `json:"species"`
	AgeYears               int64        `json:"age_years"`
	DiameterCm             int64        `json:"diameter_cm"`
	Location               Location     `json:"location"`
	HealthStatus           HealthStatus `json:"health_status"`
	MycorrhizalConnections int64        `json:"mycorrhizal_connections"`
	CarbonContribution     int64        `json:"carbon_contribution"`
	NutrientUptakeRate     int64        `json:"nutrient_uptake_rate"`
	CreatedAt              time.Time    `json:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at"`
}

// Inoculation records fungal spores introduced into a network's soil.
type Inoculation struct {
	ID                 uint64    `json:"id"`
	NetworkID          uint64    `json:"network_id"`
	FungalSpecies      string    `json:"fungal_species"`
	Method             string    `json:"method"`
	SporeConcentration int64     `json:"spore_concentration"`
	ApplicationArea    int64     `json:"application_area"`
	SuccessRate        int64     `json:"success_rate"`
	PerformedBy        Principal `json:"performed_by,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CarbonMeasurement is an append-only carbon-storage reading for a network.
type CarbonMeasurement struct {
	ID                uint64    `json:"id"`
	NetworkID         uint64    `json:"network_id"`
	TotalCarbonStored int64     `json:"total_carbon_stored"`
	SequestrationRate int64     `json:"sequestration_rate"`
	SoilCarbon        int64     `json:"soil_carbon"`
	BiomassCarbon     int64     `json:"biomass_carbon"`
	RecordedAt        time.Time `json:"recorded_at"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions captured in the audit trail. Ledger records are never deleted.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID uint64
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return fmt.Sprintf("transaction blocked by rule %s: %s", v.Rule, v.Message)
		}
	}
	return "transaction blocked by rules"
}

// Unwrap classifies rule rejections as invalid input.
func (e RuleViolationError) Unwrap() error { return ErrInvalidInput }
