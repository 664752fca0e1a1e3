package domain

import (
	"errors"
	"math"
	"testing"
)

func TestNetworkInputValidate(t *testing.T) {
	valid := NetworkInput{
		Name:                "Pacific Northwest Forest Network",
		Location:            Location{Latitude: 47600, Longitude: -122330},
		ForestAreaHectares:  1000,
		DominantTreeSpecies: "Pseudotsuga menziesii",
		InitialFungalCount:  15,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}

	cases := map[string]struct {
		mutate func(*NetworkInput)
		field  string
	}{
		"empty name":      {func(in *NetworkInput) { in.Name = "" }, "name"},
		"blank name":      {func(in *NetworkInput) { in.Name = "   " }, "name"},
		"zero area":       {func(in *NetworkInput) { in.ForestAreaHectares = 0 }, "forest_area_hectares"},
		"negative area":   {func(in *NetworkInput) { in.ForestAreaHectares = -5 }, "forest_area_hectares"},
		"negative fungal": {func(in *NetworkInput) { in.InitialFungalCount = -1 }, "initial_fungal_count"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			err := in.Validate()
			var typed *Error
			if !errors.As(err, &typed) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if typed.Kind != KindInvalidInput || typed.Field != tc.field {
				t.Fatalf("expected invalid %s, got %+v", tc.field, typed)
			}
		})
	}
}

func TestTreeValidateBounds(t *testing.T) {
	base := TreeInput{NetworkID: 1, Species: "Pseudotsuga menziesii", AgeYears: 45, DiameterCm: 60}.Tree()
	TreeHealth{Status: HealthHealthy, MycorrhizalConnections: 25, CarbonContribution: 150, NutrientUptakeRate: 85}.Apply(&base)
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid tree, got %v", err)
	}
	for _, rate := range []int64{0, 100} {
		tree := base
		tree.NutrientUptakeRate = rate
		if err := tree.Validate(); err != nil {
			t.Fatalf("expected inclusive bound %d to pass, got %v", rate, err)
		}
	}
	for _, rate := range []int64{-1, 101} {
		tree := base
		tree.NutrientUptakeRate = rate
		if !errors.Is(tree.Validate(), ErrInvalidInput) {
			t.Fatalf("expected %d to be rejected", rate)
		}
	}
	mutations := map[string]func(*Tree){
		"unknown status":       func(tr *Tree) { tr.HealthStatus = "thriving" },
		"negative connections": func(tr *Tree) { tr.MycorrhizalConnections = -3 },
		"negative carbon":      func(tr *Tree) { tr.CarbonContribution = -1 },
		"negative age":         func(tr *Tree) { tr.AgeYears = -1 },
		"negative diameter":    func(tr *Tree) { tr.DiameterCm = -1 },
	}
	for name, mutate := range mutations {
		tree := base
		mutate(&tree)
		if !errors.Is(tree.Validate(), ErrInvalidInput) {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}

func TestTreeInputStartsHealthy(t *testing.T) {
	tree := TreeInput{NetworkID: 1, AgeYears: 45, DiameterCm: 60}.Tree()
	if tree.HealthStatus != HealthHealthy || tree.NutrientUptakeRate != 0 {
		t.Fatalf("unexpected initial tree %+v", tree)
	}
}

func TestInoculationValidate(t *testing.T) {
	ok := InoculationInput{NetworkID: 1, FungalSpecies: "Rhizopogon vinicolor", Method: "soil injection", SporeConcentration: 1000000, ApplicationArea: 100}.Inoculation()
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := ok
	bad.SporeConcentration = 0
	if !errors.Is(bad.Validate(), ErrInvalidInput) {
		t.Fatalf("expected zero spore concentration rejected")
	}
	bad = ok
	bad.ApplicationArea = 0
	if !errors.Is(bad.Validate(), ErrInvalidInput) {
		t.Fatalf("expected zero application area rejected")
	}
	bad = ok
	bad.SuccessRate = 101
	if !errors.Is(bad.Validate(), ErrInvalidInput) {
		t.Fatalf("expected success rate above 100 rejected")
	}
}

func TestCarbonMeasurementValidate(t *testing.T) {
	ok := CarbonInput{NetworkID: 1, TotalCarbonStored: 50000, SequestrationRate: 2500, SoilCarbon: 30000, BiomassCarbon: 20000}.Measurement()
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unbalanced := ok
	unbalanced.BiomassCarbon = 19999
	if !errors.Is(unbalanced.Validate(), ErrInvalidInput) {
		t.Fatalf("expected unbalanced measurement rejected")
	}
	negative := ok
	negative.SequestrationRate = -1
	if !errors.Is(negative.Validate(), ErrInvalidInput) {
		t.Fatalf("expected negative sequestration rejected")
	}
	if CarbonBalanced(math.MaxInt64, math.MaxInt64, 1) {
		t.Fatalf("expected overflowing split to be unbalanced")
	}
}

func TestNetworkValidateAggregates(t *testing.T) {
	n := Network{Name: "n", ForestAreaHectares: 10, DensityScore: 100}
	if err := n.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n.DensityScore = 101
	if !errors.Is(n.Validate(), ErrInvalidInput) {
		t.Fatalf("expected density above 100 rejected")
	}
	n.DensityScore = 0
	n.NutrientExchangeRate = -1
	if !errors.Is(n.Validate(), ErrInvalidInput) {
		t.Fatalf("expected negative exchange rate rejected")
	}
}

func TestAddFunding(t *testing.T) {
	total, err := AddFunding(0, 1800000)
	if err != nil || total != 1800000 {
		t.Fatalf("expected 1800000, got %d (%v)", total, err)
	}
	if _, err := AddFunding(total, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected zero amount rejected, got %v", err)
	}
	if _, err := AddFunding(math.MaxInt64-5, 6); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if got, err := AddFunding(math.MaxInt64-5, 5); err != nil || got != math.MaxInt64 {
		t.Fatalf("expected exact max to fit, got %d (%v)", got, err)
	}
}

func TestParseHealthStatus(t *testing.T) {
	if s, err := ParseHealthStatus("declining"); err != nil || s != HealthDeclining {
		t.Fatalf("unexpected parse result %q %v", s, err)
	}
	if _, err := ParseHealthStatus("Healthy"); KindOf(err) != KindInvalidInput {
		t.Fatalf("expected case-sensitive rejection, got %v", err)
	}
}

func TestSnapshotValidate(t *testing.T) {
	valid := func() Snapshot {
		return Snapshot{
			Networks:           map[uint64]Network{1: {ID: 1, Name: "Olympic", ForestAreaHectares: 10}},
			Trees:              map[uint64]Tree{1: {ID: 1, NetworkID: 1, HealthStatus: HealthHealthy}},
			Inoculations:       map[uint64]Inoculation{1: {ID: 1, NetworkID: 1, SporeConcentration: 5, ApplicationArea: 2}},
			CarbonMeasurements: map[uint64]CarbonMeasurement{1: {ID: 1, NetworkID: 1, TotalCarbonStored: 10, SoilCarbon: 4, BiomassCarbon: 6}},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid snapshot, got %v", err)
	}
	if err := (Snapshot{}).Validate(); err != nil {
		t.Fatalf("expected empty snapshot to validate, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"empty name", func(s *Snapshot) { s.Networks[1] = Network{ID: 1, ForestAreaHectares: 10} }},
		{"zero area", func(s *Snapshot) { s.Networks[1] = Network{ID: 1, Name: "Olympic"} }},
		{"density out of range", func(s *Snapshot) {
			s.Networks[1] = Network{ID: 1, Name: "Olympic", ForestAreaHectares: 10, DensityScore: 500}
		}},
		{"unbalanced carbon", func(s *Snapshot) {
			s.CarbonMeasurements[1] = CarbonMeasurement{ID: 1, NetworkID: 1, TotalCarbonStored: 10, SoilCarbon: 1, BiomassCarbon: 1}
		}},
		{"unknown health", func(s *Snapshot) { s.Trees[1] = Tree{ID: 1, NetworkID: 1} }},
		{"success rate out of range", func(s *Snapshot) {
			s.Inoculations[1] = Inoculation{ID: 1, NetworkID: 1, SporeConcentration: 5, ApplicationArea: 2, SuccessRate: 101}
		}},
		{"orphan tree", func(s *Snapshot) { s.Trees[2] = Tree{ID: 2, NetworkID: 9, HealthStatus: HealthHealthy} }},
		{"id mismatch", func(s *Snapshot) { s.Networks[3] = Network{ID: 4, Name: "Skewed", ForestAreaHectares: 1} }},
		{"zero key", func(s *Snapshot) { s.Networks[0] = Network{Name: "Zero", ForestAreaHectares: 1} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(&s)
			if err := s.Validate(); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}
