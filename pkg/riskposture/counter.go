package riskposture

import (
	"math"

	"tspm/pkg/entity"
)

// Summary holds the aggregate metrics for one record set. Computed once
// from a classified collection, never mutated afterward.
type Summary struct {
	Total int

	LowCount      int
	MediumCount   int
	HighCount     int
	CriticalCount int
	UnknownCount  int

	// UrgentCount is the operationally urgent subset: records that are
	// active and classified HIGH or above.
	UrgentCount   int
	UrgentPercent float64

	// AverageUsagePercent is the mean storage usage across records that
	// carry a quota. Zero for user domains.
	AverageUsagePercent float64

	// MonthlyLicenseCost is the estimated monthly spend summed over the
	// SKU price table. Zero for storage domains.
	MonthlyLicenseCost float64

	// SignInSupported is false when the tenant tier does not expose
	// sign-in activity; renderers show a notice instead of the column.
	SignInSupported bool

	// FetchErrorCount is how many records carry the enrichment sentinel.
	FetchErrorCount int
}

// Count returns the bucket count for a level.
func (s Summary) Count(l RiskLevel) int {
	switch l {
	case RiskLow:
		return s.LowCount
	case RiskMedium:
		return s.MediumCount
	case RiskHigh:
		return s.HighCount
	case RiskCritical:
		return s.CriticalCount
	default:
		return s.UnknownCount
	}
}

// Aggregate reduces a classified record set into summary metrics. The
// input is not mutated; the bucket counts always sum to Total.
func Aggregate(records []ClassifiedRecord, r Rules) Summary {
	s := Summary{
		Total:           len(records),
		SignInSupported: true,
	}

	var usageSum float64
	usageCount := 0

	for _, rec := range records {
		switch rec.Level {
		case RiskLow:
			s.LowCount++
		case RiskMedium:
			s.MediumCount++
		case RiskHigh:
			s.HighCount++
		case RiskCritical:
			s.CriticalCount++
		default:
			s.UnknownCount++
		}

		if rec.Record.Active() && (rec.Level == RiskHigh || rec.Level == RiskCritical) {
			s.UrgentCount++
		}
		if rec.Record.FetchFailed() {
			s.FetchErrorCount++
			continue
		}

		switch v := rec.Record.(type) {
		case *entity.UserRecord:
			if !v.SignInSupported {
				s.SignInSupported = false
			}
			for _, lic := range v.Licenses {
				s.MonthlyLicenseCost += r.SKUPrices[lic.SKUID]
			}
		case *entity.StorageRecord:
			if v.QuotaBytes > 0 {
				usageSum += v.UsagePercent()
				usageCount++
			}
		}
	}

	if s.Total > 0 {
		s.UrgentPercent = round2(float64(s.UrgentCount) / float64(s.Total) * 100)
	}
	if usageCount > 0 {
		s.AverageUsagePercent = round2(usageSum / float64(usageCount))
	}
	s.MonthlyLicenseCost = round2(s.MonthlyLicenseCost)

	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
