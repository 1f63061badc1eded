package riskposture

import (
	"time"

	"tspm/pkg/entity"
)

// Domain selects which rule set a pipeline run applies.
type Domain string

const (
	DomainMFA      Domain = "mfa"
	DomainPassword Domain = "password"
	DomainLicense  Domain = "license"
	DomainStorage  Domain = "storage"
	DomainSharing  Domain = "sharing"
)

// Title is the human-readable report heading for the domain.
func (d Domain) Title() string {
	switch d {
	case DomainMFA:
		return "MFA Coverage Report"
	case DomainPassword:
		return "Password Expiry Report"
	case DomainLicense:
		return "License Assignment Report"
	case DomainStorage:
		return "Storage Usage Report"
	case DomainSharing:
		return "External Sharing Report"
	default:
		return "Tenant Posture Report"
	}
}

// ClassifiedRecord is a record plus its assigned level and the reasons
// that contributed to it.
type ClassifiedRecord struct {
	Record entity.Record
	Level  RiskLevel
	// Detail carries the domain sub-status: password status for the
	// password domain, usage tier for the storage domain.
	Detail  string
	Reasons []string
}

// AnalysisResult is the single output object of one pipeline run. It is
// immutable once returned and is consumed by zero or more renderers.
type AnalysisResult struct {
	RunID       string
	Domain      Domain
	GeneratedAt time.Time
	Success     bool
	Summary     Summary
	Records     []ClassifiedRecord
	// Rules are the thresholds that were in effect, kept so rendered
	// reports are self-documenting.
	Rules Rules
	// ErrorMessage carries the fatal fetch error or the per-format
	// render failures. Empty on full success.
	ErrorMessage string
}
