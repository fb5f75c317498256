package reporting

import "github.com/tidewater-dev/crewdeck/internal/models"

// RiskMetrics aggregates a project's risks by severity and status.
type RiskMetrics struct {
	Total      int `json:"total"`
	Active     int `json:"active"`
	Mitigated  int `json:"mitigated"`
	BySeverity struct {
		Low      int `json:"low"`
		Medium   int `json:"medium"`
		High     int `json:"high"`
		Critical int `json:"critical"`
	} `json:"bySeverity"`
}

// Risks computes risk metrics over a project's risks. Risks in mitigation
// count as active until they are actually mitigated.
func Risks(risks []*models.Risk) RiskMetrics {
	var m RiskMetrics
	m.Total = len(risks)
	for _, r := range risks {
		if r.Status == models.RiskMitigated {
			m.Mitigated++
		} else {
			m.Active++
		}
		switch r.Severity {
		case models.RiskLow:
			m.BySeverity.Low++
		case models.RiskMedium:
			m.BySeverity.Medium++
		case models.RiskHigh:
			m.BySeverity.High++
		case models.RiskCritical:
			m.BySeverity.Critical++
		}
	}
	return m
}
