package riskposture

import (
	"fmt"
	"time"

	"tspm/pkg/entity"
)

// RiskLevel is the ordered classification bucket assigned to a record.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
	// RiskUnknown is assigned when enrichment for the record failed and
	// the signals needed for classification are missing.
	RiskUnknown
)

func (l RiskLevel) String() string {
	switch l {
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	case RiskCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// PasswordStatus is the password-age bucket. It is its own scale because
// "Never" is not numerically comparable to the day-based buckets.
type PasswordStatus string

const (
	PasswordNever   PasswordStatus = "Never"
	PasswordExpired PasswordStatus = "Expired"
	PasswordUrgent  PasswordStatus = "Urgent"
	PasswordWarning PasswordStatus = "Warning"
	PasswordNormal  PasswordStatus = "Normal"
)

// Rules are the thresholds in effect at classification time.
type Rules struct {
	// WarningDays is the password-age warning window.
	WarningDays int
	// StorageWarningPercent / StorageCriticalPercent bound the storage
	// usage tiers.
	StorageWarningPercent  float64
	StorageCriticalPercent float64
	// InactiveDays is the sign-in staleness window used for reason
	// accumulation (it never changes a level on its own).
	InactiveDays int
	// SKUPrices maps SKU id to estimated monthly cost.
	SKUPrices map[string]float64
	// AsOf anchors relative-time reasons so classification stays
	// deterministic for a fixed snapshot.
	AsOf time.Time
}

// DefaultRules returns the stock thresholds.
func DefaultRules() Rules {
	return Rules{
		WarningDays:            30,
		StorageWarningPercent:  80,
		StorageCriticalPercent: 90,
		InactiveDays:           30,
		SKUPrices:              DefaultSKUPrices(),
	}
}

// DefaultSKUPrices is the per-SKU monthly price table used for the
// estimated-cost aggregate.
func DefaultSKUPrices() map[string]float64 {
	return map[string]float64{
		"ENTERPRISEPREMIUM":   57.00,
		"ENTERPRISEPACK":      36.00,
		"STANDARDPACK":        12.50,
		"BUSINESS_PREMIUM":    22.00,
		"BUSINESS_BASIC":      6.00,
		"EXCHANGESTANDARD":    4.00,
		"FLOW_FREE":           0,
		"POWER_BI_STANDARD":   0,
		"TEAMS_EXPLORATORY":   0,
		"SPE_E3":              36.00,
		"SPE_E5":              57.00,
		"AAD_PREMIUM":         6.00,
		"AAD_PREMIUM_P2":      9.00,
		"EMS":                 10.60,
		"DESKLESSPACK":        8.00,
		"MCOMEETADV":          2.50,
		"PROJECTPROFESSIONAL": 30.00,
		"VISIOCLIENT":         15.00,
	}
}

// unknownReasons builds the reason list for a record whose enrichment
// failed.
func unknownReasons(rec entity.Record) []string {
	return []string{fmt.Sprintf("verification failed: %v", rec.FetchError())}
}

// ClassifyMFA maps a user's MFA registration state to a risk level.
// Rule order, first match wins:
//
//	enabled && licensed && no MFA -> HIGH
//	enabled && no MFA             -> MEDIUM
//	otherwise                     -> LOW
func ClassifyMFA(u *entity.UserRecord, r Rules) (RiskLevel, []string) {
	if u.FetchFailed() {
		return RiskUnknown, unknownReasons(u)
	}

	var reasons []string
	if !u.MFARegistered {
		reasons = append(reasons, "MFA not registered")
	}
	if u.Enabled {
		reasons = append(reasons, "account enabled")
	}
	if u.Licensed() {
		reasons = append(reasons, "licensed")
	}
	if u.InactiveSince(r.InactiveDays, r.AsOf) {
		reasons = append(reasons, fmt.Sprintf("no sign-in in over %d days", r.InactiveDays))
	}

	switch {
	case u.Enabled && u.Licensed() && !u.MFARegistered:
		return RiskHigh, reasons
	case u.Enabled && !u.MFARegistered:
		return RiskMedium, reasons
	default:
		return RiskLow, reasons
	}
}

// ClassifyPasswordAge maps a user's password expiry state to a status and
// risk level. A set never-expires flag yields Never unconditionally; the
// day counter is not consulted in that case.
func ClassifyPasswordAge(u *entity.UserRecord, r Rules) (PasswordStatus, RiskLevel, []string) {
	if u.FetchFailed() {
		return "", RiskUnknown, unknownReasons(u)
	}

	if u.PasswordNeverExpires {
		return PasswordNever, RiskMedium, []string{"password never expires"}
	}

	days := u.PasswordExpiresInDays
	reasons := []string{fmt.Sprintf("password expires in %d days", days)}
	if u.InactiveSince(r.InactiveDays, r.AsOf) {
		reasons = append(reasons, fmt.Sprintf("no sign-in in over %d days", r.InactiveDays))
	}

	switch {
	case days <= 0:
		return PasswordExpired, RiskCritical, reasons
	case days <= 7:
		return PasswordUrgent, RiskHigh, reasons
	case days <= r.WarningDays:
		return PasswordWarning, RiskMedium, reasons
	default:
		return PasswordNormal, RiskLow, reasons
	}
}

// ClassifyLicense maps a user's license assignment state to a risk level.
// Disabled unlicensed accounts are demoted to MEDIUM; the enabled check
// runs first.
func ClassifyLicense(u *entity.UserRecord, r Rules) (RiskLevel, []string) {
	if u.FetchFailed() {
		return RiskUnknown, unknownReasons(u)
	}

	var reasons []string
	if !u.Licensed() {
		reasons = append(reasons, "no license assigned")
	}
	if !u.Enabled {
		reasons = append(reasons, "account disabled")
	}
	if u.InactiveSince(r.InactiveDays, r.AsOf) {
		reasons = append(reasons, fmt.Sprintf("no sign-in in over %d days", r.InactiveDays))
	}

	switch {
	case u.Enabled && !u.Licensed():
		return RiskHigh, reasons
	case !u.Enabled && !u.Licensed():
		return RiskMedium, reasons
	default:
		return RiskLow, reasons
	}
}

// Storage tier names shown in the reports.
const (
	TierCritical = "Critical"
	TierWarning  = "Warning"
	TierCaution  = "Caution"
	TierNormal   = "Normal"
)

// ClassifyStorage maps a site/drive's usage and sharing state to a tier
// and risk level. Rule order, first match wins:
//
//	usage >= critical threshold -> Critical
//	usage >= warning threshold  -> Warning
//	external sharing present    -> Caution
//	otherwise                   -> Normal
func ClassifyStorage(s *entity.StorageRecord, r Rules) (string, RiskLevel, []string) {
	if s.FetchFailed() {
		return "", RiskUnknown, unknownReasons(s)
	}

	usage := s.UsagePercent()
	var reasons []string
	if usage >= r.StorageCriticalPercent {
		reasons = append(reasons, fmt.Sprintf("usage %.1f%% at or above critical threshold %.0f%%", usage, r.StorageCriticalPercent))
	} else if usage >= r.StorageWarningPercent {
		reasons = append(reasons, fmt.Sprintf("usage %.1f%% at or above warning threshold %.0f%%", usage, r.StorageWarningPercent))
	}
	if s.HasExternalSharing() {
		reasons = append(reasons, "external sharing enabled")
	}
	if s.HasAnonymousLink() {
		reasons = append(reasons, "anonymous link present")
	}

	switch {
	case usage >= r.StorageCriticalPercent:
		return TierCritical, RiskCritical, reasons
	case usage >= r.StorageWarningPercent:
		return TierWarning, RiskHigh, reasons
	case s.HasExternalSharing():
		return TierCaution, RiskMedium, reasons
	default:
		return TierNormal, RiskLow, reasons
	}
}

// ClassifySharing maps a site/drive's sharing grants to a risk level.
// Rule order, first match wins:
//
//	anonymous ("anyone") link     -> HIGH
//	any external recipient present -> MEDIUM
//	otherwise                      -> LOW
func ClassifySharing(s *entity.StorageRecord, r Rules) (RiskLevel, []string) {
	if s.FetchFailed() {
		return RiskUnknown, unknownReasons(s)
	}

	var reasons []string
	external := 0
	for _, l := range s.SharingLinks {
		external += len(l.ExternalRecipients)
	}
	if s.HasAnonymousLink() {
		reasons = append(reasons, "anonymous link present")
	}
	if external > 0 {
		reasons = append(reasons, fmt.Sprintf("%d external recipients", external))
	}

	switch {
	case s.HasAnonymousLink():
		return RiskHigh, reasons
	case external > 0:
		return RiskMedium, reasons
	default:
		return RiskLow, reasons
	}
}
