package core

import (
	"context"
	"fmt"

	"mycoledger/pkg/domain"
)

// NewCarbonBalanceRule returns the blocking rule requiring every recorded
// measurement to split its total exactly into soil and biomass carbon.
func NewCarbonBalanceRule() domain.Rule {
	return carbonBalanceRule{}
}

type carbonBalanceRule struct{}

func (carbonBalanceRule) Name() string { return RuleCarbonBalance }

func (carbonBalanceRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		m, ok := change.After.(domain.CarbonMeasurement)
		if !ok {
			continue
		}
		if domain.CarbonBalanced(m.TotalCarbonStored, m.SoilCarbon, m.BiomassCarbon) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     RuleCarbonBalance,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("measurement %d: soil %d + biomass %d != total %d", m.ID, m.SoilCarbon, m.BiomassCarbon, m.TotalCarbonStored),
			Entity:   domain.EntityCarbonMeasurement,
			EntityID: m.ID,
		})
	}
	return res, nil
}
