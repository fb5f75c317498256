package reporting

import (
	"fmt"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

// BudgetSummary is the allocated/spent/remaining view of a project budget.
type BudgetSummary struct {
	Allocated float64 `json:"allocated"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
}

// Budget summarizes a project's budget. Remaining can go negative only if
// the expenditure cap was bypassed at write time, which ValidateExpenditure
// prevents.
func Budget(p *models.Project) BudgetSummary {
	allocated := p.AllocatedBudget()
	return BudgetSummary{
		Allocated: round2(allocated),
		Spent:     round2(p.ActualExpenditure),
		Remaining: round2(allocated - p.ActualExpenditure),
	}
}

// ValidateExpenditure rejects a spend that exceeds the allocated budget.
func ValidateExpenditure(p *models.Project, spent float64) error {
	if spent < 0 {
		return fmt.Errorf("actual expenditure cannot be negative")
	}
	if allocated := p.AllocatedBudget(); spent > allocated {
		return fmt.Errorf("actual expenditure %.2f exceeds allocated budget %.2f", spent, allocated)
	}
	return nil
}
