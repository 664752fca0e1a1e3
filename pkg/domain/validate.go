package domain

import (
	"fmt"
	"math"
	"strings"
)

// PercentMin and PercentMax bound every percentage-like field, inclusive.
const (
	PercentMin = 0
	PercentMax = 100
)

// NetworkInput carries the fields accepted when establishing a network.
type NetworkInput struct {
	Name                string   `json:"name"`
	Location            Location `json:"location"`
	ForestAreaHectares  int64    `json:"forest_area_hectares"`
	DominantTreeSpecies string   `json:"dominant_tree_species"`
	InitialFungalCount  int64    `json:"initial_fungal_count"`
}

// Validate rejects an empty name, a non-positive area, or a negative fungal count.
func (in NetworkInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return InvalidInput("name", "network name must not be empty")
	}
	if in.ForestAreaHectares <= 0 {
		return InvalidInput("forest_area_hectares", "forest area must be positive")
	}
	return NonNegative("initial_fungal_count", in.InitialFungalCount)
}

// TreeInput carries the fields accepted when registering a tree.
type TreeInput struct {
	NetworkID  uint64   `json:"network_id"`
	Species    string   `json:"species"`
	AgeYears   int64    `json:"age_years"`
	DiameterCm int64    `json:"diameter_cm"`
	Location   Location `json:"location"`
}

// Tree builds the record a registration creates. New trees start healthy
// with no recorded connections or uptake.
func (in TreeInput) Tree() Tree {
	return Tree{
		NetworkID:    in.NetworkID,
		Species:      in.Species,
		AgeYears:     in.AgeYears,
		DiameterCm:   in.DiameterCm,
		Location:     in.Location,
		HealthStatus: HealthHealthy,
	}
}

// TreeHealth is the mutable vitality block of a tree.
type TreeHealth struct {
	Status                 HealthStatus `json:"health_status"`
	MycorrhizalConnections int64        `json:"mycorrhizal_connections"`
	CarbonContribution     int64        `json:"carbon_contribution"`
	NutrientUptakeRate     int64        `json:"nutrient_uptake_rate"`
}

// Apply copies the health block onto a tree.
func (h TreeHealth) Apply(t *Tree) {
	t.HealthStatus = h.Status
	t.MycorrhizalConnections = h.MycorrhizalConnections
	t.CarbonContribution = h.CarbonContribution
	t.NutrientUptakeRate = h.NutrientUptakeRate
}

// InoculationInput carries the fields accepted when recording an inoculation.
type InoculationInput struct {
	NetworkID          uint64 `json:"network_id"`
	FungalSpecies      string `json:"fungal_species"`
	Method             string `json:"method"`
	SporeConcentration int64  `json:"spore_concentration"`
	ApplicationArea    int64  `json:"application_area"`
}

// Inoculation builds the record an inoculation event creates.
func (in InoculationInput) Inoculation() Inoculation {
	return Inoculation{
		NetworkID:          in.NetworkID,
		FungalSpecies:      in.FungalSpecies,
		Method:             in.Method,
		SporeConcentration: in.SporeConcentration,
		ApplicationArea:    in.ApplicationArea,
	}
}

// CarbonInput carries the fields of a carbon measurement.
type CarbonInput struct {
	NetworkID         uint64 `json:"network_id"`
	TotalCarbonStored int64  `json:"total_carbon_stored"`
	SequestrationRate int64  `json:"sequestration_rate"`
	SoilCarbon        int64  `json:"soil_carbon"`
	BiomassCarbon     int64  `json:"biomass_carbon"`
}

// Measurement builds the record a carbon reading creates.
func (in CarbonInput) Measurement() CarbonMeasurement {
	return CarbonMeasurement{
		NetworkID:         in.NetworkID,
		TotalCarbonStored: in.TotalCarbonStored,
		SequestrationRate: in.SequestrationRate,
		SoilCarbon:        in.SoilCarbon,
		BiomassCarbon:     in.BiomassCarbon,
	}
}

// Validate checks every stored network field. Aggregates are validated too so
// a mutator can never leave an out-of-range value behind.
func (n Network) Validate() error {
	if err := (NetworkInput{Name: n.Name, ForestAreaHectares: n.ForestAreaHectares, InitialFungalCount: n.FungalCount}).Validate(); err != nil {
		return err
	}
	if err := Percentage("density_score", n.DensityScore); err != nil {
		return err
	}
	if err := NonNegative("nutrient_exchange_rate", n.NutrientExchangeRate); err != nil {
		return err
	}
	if err := NonNegative("carbon_capacity", n.CarbonCapacity); err != nil {
		return err
	}
	return NonNegative("total_funding", n.TotalFunding)
}

// Validate checks dimensions, the health enum, counts, and uptake percentage.
func (t Tree) Validate() error {
	if err := NonNegative("age_years", t.AgeYears); err != nil {
		return err
	}
	if err := NonNegative("diameter_cm", t.DiameterCm); err != nil {
		return err
	}
	if !t.HealthStatus.Valid() {
		return InvalidInput("health_status", fmt.Sprintf("unknown health status %q", t.HealthStatus))
	}
	if err := NonNegative("mycorrhizal_connections", t.MycorrhizalConnections); err != nil {
		return err
	}
	if err := NonNegative("carbon_contribution", t.CarbonContribution); err != nil {
		return err
	}
	return Percentage("nutrient_uptake_rate", t.NutrientUptakeRate)
}

// Validate requires a positive spore concentration and application area and
// a success rate within 0–100.
func (i Inoculation) Validate() error {
	if i.SporeConcentration <= 0 {
		return InvalidInput("spore_concentration", "spore concentration must be positive")
	}
	if i.ApplicationArea <= 0 {
		return InvalidInput("application_area", "application area must be positive")
	}
	return Percentage("success_rate", i.SuccessRate)
}

// Validate rejects negative fields and an unbalanced soil/biomass split.
func (m CarbonMeasurement) Validate() error {
	for _, f := range []struct {
		name  string
		value int64
	}{
		{"total_carbon_stored", m.TotalCarbonStored},
		{"sequestration_rate", m.SequestrationRate},
		{"soil_carbon", m.SoilCarbon},
		{"biomass_carbon", m.BiomassCarbon},
	} {
		if err := NonNegative(f.name, f.value); err != nil {
			return err
		}
	}
	if !CarbonBalanced(m.TotalCarbonStored, m.SoilCarbon, m.BiomassCarbon) {
		return InvalidInput("total_carbon_stored", fmt.Sprintf(
			"soil carbon %d + biomass carbon %d does not equal total %d",
			m.SoilCarbon, m.BiomassCarbon, m.TotalCarbonStored))
	}
	return nil
}

// CarbonBalanced reports soil+biomass == total for non-negative operands
// without overflowing.
func CarbonBalanced(total, soil, biomass int64) bool {
	return soil >= 0 && biomass >= 0 && soil <= total && total-soil == biomass
}

// NonNegative rejects values below zero.
func NonNegative(field string, v int64) error {
	if v < 0 {
		return InvalidInput(field, fmt.Sprintf("must not be negative, got %d", v))
	}
	return nil
}

// Percentage rejects values outside the inclusive 0–100 range.
func Percentage(field string, v int64) error {
	if v < PercentMin || v > PercentMax {
		return InvalidInput(field, fmt.Sprintf("must be between %d and %d, got %d", PercentMin, PercentMax, v))
	}
	return nil
}

// AddFunding returns total+amount, rejecting a non-positive amount and any
// sum past math.MaxInt64.
func AddFunding(total, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, InvalidInput("amount", "funding amount must be positive")
	}
	if total > math.MaxInt64-amount {
		return 0, Overflow("total_funding", fmt.Sprintf("adding %d to %d exceeds the representable range", amount, total))
	}
	return total + amount, nil
}

// Validate checks a snapshot about to replace the ledger: every record passes
// its own validation, carries the id it is keyed by (or none), and every child
// references a network in the snapshot.
func (s Snapshot) Validate() error {
	for id, n := range s.Networks {
		if err := keyed(EntityNetwork, id, n.ID, n.Validate()); err != nil {
			return err
		}
	}
	for id, t := range s.Trees {
		if err := s.child(EntityTree, id, t.ID, t.NetworkID, t.Validate()); err != nil {
			return err
		}
	}
	for id, i := range s.Inoculations {
		if err := s.child(EntityInoculation, id, i.ID, i.NetworkID, i.Validate()); err != nil {
			return err
		}
	}
	for id, m := range s.CarbonMeasurements {
		if err := s.child(EntityCarbonMeasurement, id, m.ID, m.NetworkID, m.Validate()); err != nil {
			return err
		}
	}
	return nil
}

func (s Snapshot) child(entity EntityType, key, id, networkID uint64, err error) error {
	if err := keyed(entity, key, id, err); err != nil {
		return err
	}
	if _, ok := s.Networks[networkID]; !ok {
		return InvalidInput("snapshot", fmt.Sprintf("%s %d references missing network %d", entity, key, networkID))
	}
	return nil
}

func keyed(entity EntityType, key, id uint64, err error) error {
	if key == 0 {
		return InvalidInput("snapshot", fmt.Sprintf("%s keyed by id 0", entity))
	}
	if id != 0 && id != key {
		return InvalidInput("snapshot", fmt.Sprintf("%s keyed by %d carries id %d", entity, key, id))
	}
	if err != nil {
		return fmt.Errorf("%s %d: %w", entity, key, err)
	}
	return nil
}
