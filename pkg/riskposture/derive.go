package riskposture

import "tspm/pkg/entity"

// Classify applies the domain's rule set to one record. Pure and
// deterministic: the level is a function of the record's attributes and
// the rules alone.
func Classify(d Domain, rec entity.Record, r Rules) ClassifiedRecord {
	out := ClassifiedRecord{Record: rec}

	switch d {
	case DomainMFA:
		if u, ok := rec.(*entity.UserRecord); ok {
			out.Level, out.Reasons = ClassifyMFA(u, r)
			return out
		}
	case DomainPassword:
		if u, ok := rec.(*entity.UserRecord); ok {
			status, level, reasons := ClassifyPasswordAge(u, r)
			out.Detail = string(status)
			out.Level, out.Reasons = level, reasons
			return out
		}
	case DomainLicense:
		if u, ok := rec.(*entity.UserRecord); ok {
			out.Level, out.Reasons = ClassifyLicense(u, r)
			return out
		}
	case DomainStorage:
		if s, ok := rec.(*entity.StorageRecord); ok {
			tier, level, reasons := ClassifyStorage(s, r)
			out.Detail = tier
			out.Level, out.Reasons = level, reasons
			return out
		}
	case DomainSharing:
		if s, ok := rec.(*entity.StorageRecord); ok {
			out.Level, out.Reasons = ClassifySharing(s, r)
			return out
		}
	}

	out.Level = RiskUnknown
	out.Reasons = []string{"record type does not match domain " + string(d)}
	return out
}

// ClassifyAll classifies every record, preserving input order.
func ClassifyAll(d Domain, recs []entity.Record, r Rules) []ClassifiedRecord {
	out := make([]ClassifiedRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Classify(d, rec, r))
	}
	return out
}
