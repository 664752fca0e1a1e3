package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"

	"mycoledger/pkg/domain"
)

func parseID(field, raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, domain.InvalidInput(field, fmt.Sprintf("%q is not a positive identifier", raw))
	}
	return id, nil
}

func parseInt(field, raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.InvalidInput(field, fmt.Sprintf("%q is not an integer", raw))
	}
	return v, nil
}

func writeNetwork(w io.Writer, n domain.Network) {
	fmt.Fprintf(w, "Network %d: %s\n", n.ID, n.Name)
	fmt.Fprintf(w, "  location:        %s\n", n.Location)
	fmt.Fprintf(w, "  forest area:     %s ha\n", humanize.Comma(n.ForestAreaHectares))
	fmt.Fprintf(w, "  dominant tree:   %s\n", n.DominantTreeSpecies)
	fmt.Fprintf(w, "  fungal count:    %s\n", humanize.Comma(n.FungalCount))
	fmt.Fprintf(w, "  density score:   %d\n", n.DensityScore)
	fmt.Fprintf(w, "  exchange rate:   %d\n", n.NutrientExchangeRate)
	fmt.Fprintf(w, "  carbon capacity: %s\n", humanize.Comma(n.CarbonCapacity))
	fmt.Fprintf(w, "  total funding:   %s\n", humanize.Comma(n.TotalFunding))
	if n.Steward != "" {
		fmt.Fprintf(w, "  steward:         %s\n", n.Steward)
	}
}

func writeTree(w io.Writer, t domain.Tree) {
	fmt.Fprintf(w, "Tree %d (network %d): %s\n", t.ID, t.NetworkID, t.Species)
	fmt.Fprintf(w, "  age / diameter:  %d years / %d cm\n", t.AgeYears, t.DiameterCm)
	fmt.Fprintf(w, "  location:        %s\n", t.Location)
	fmt.Fprintf(w, "  health:          %s\n", t.HealthStatus)
	fmt.Fprintf(w, "  connections:     %s\n", humanize.Comma(t.MycorrhizalConnections))
	fmt.Fprintf(w, "  carbon:          %s\n", humanize.Comma(t.CarbonContribution))
	fmt.Fprintf(w, "  nutrient uptake: %d%%\n", t.NutrientUptakeRate)
}

func writeInoculation(w io.Writer, i domain.Inoculation) {
	fmt.Fprintf(w, "Inoculation %d (network %d): %s\n", i.ID, i.NetworkID, i.FungalSpecies)
	fmt.Fprintf(w, "  method:          %s\n", i.Method)
	fmt.Fprintf(w, "  spores:          %s\n", humanize.Comma(i.SporeConcentration))
	fmt.Fprintf(w, "  area:            %s\n", humanize.Comma(i.ApplicationArea))
	fmt.Fprintf(w, "  success rate:    %d%%\n", i.SuccessRate)
	if i.PerformedBy != "" {
		fmt.Fprintf(w, "  performed by:    %s\n", i.PerformedBy)
	}
}

func writeMeasurement(w io.Writer, m domain.CarbonMeasurement) {
	fmt.Fprintf(w, "Carbon measurement %d (network %d)\n", m.ID, m.NetworkID)
	fmt.Fprintf(w, "  total stored:    %s\n", humanize.Comma(m.TotalCarbonStored))
	fmt.Fprintf(w, "  soil / biomass:  %s / %s\n", humanize.Comma(m.SoilCarbon), humanize.Comma(m.BiomassCarbon))
	fmt.Fprintf(w, "  sequestration:   %s\n", humanize.Comma(m.SequestrationRate))
	fmt.Fprintf(w, "  recorded:        %s\n", humanize.Time(m.RecordedAt))
}

func writeWarnings(w io.Writer, res domain.Result) {
	for _, v := range res.Violations {
		fmt.Fprintf(w, "warning [%s]: %s\n", v.Rule, v.Message)
	}
}
