package auth

import "github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"

// Subscription tiers.
const (
	TierFree    = "free"
	TierPremium = "premium"
)

var tierReportTypes = map[string][]string{
	TierFree:    {internal.ReportWeekly},
	TierPremium: {internal.ReportWeekly, internal.ReportQuarterly, internal.ReportAnnual},
}

// AllowedReportTypes returns the report types a tier may generate. Unknown
// tiers are treated as free.
func AllowedReportTypes(tier string) []string {
	if types, ok := tierReportTypes[tier]; ok {
		return types
	}
	return tierReportTypes[TierFree]
}

// CanGenerate reports whether the tier is entitled to the given report type.
func CanGenerate(tier, reportType string) bool {
	for _, t := range AllowedReportTypes(tier) {
		if t == reportType {
			return true
		}
	}
	return false
}
