package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tspm/pkg/entity"
	"tspm/pkg/riskposture"
)

// utf8BOM prefixes both output formats so spreadsheet tooling detects the
// encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrorPlaceholder fills cells whose value could not be fetched. Error
// rows are never blank.
const ErrorPlaceholder = "CHECK ERROR"

// noDataRow marks an empty record set; downstream tooling expects at
// least one data row after the header.
const noDataRow = "no data"

// signInUnsupportedCell replaces the activity column when the tenant tier
// does not expose sign-in history.
const signInUnsupportedCell = "NotSupported"

// csvHeader is the fixed, documented column order per domain.
func csvHeader(d riskposture.Domain) []string {
	switch d {
	case riskposture.DomainMFA:
		return []string{"ID", "DisplayName", "UserPrincipalName", "Enabled", "Licensed", "MFARegistered", "AuthMethods", "LastSignIn", "RiskLevel", "Reasons"}
	case riskposture.DomainPassword:
		return []string{"ID", "DisplayName", "UserPrincipalName", "Enabled", "PasswordNeverExpires", "ExpiresInDays", "Status", "RiskLevel", "Reasons"}
	case riskposture.DomainLicense:
		return []string{"ID", "DisplayName", "UserPrincipalName", "Enabled", "Licenses", "LastSignIn", "RiskLevel", "Reasons"}
	case riskposture.DomainStorage:
		return []string{"ID", "DisplayName", "WebURL", "Kind", "UsedBytes", "QuotaBytes", "UsagePercent", "ExternalSharing", "Tier", "RiskLevel", "Reasons"}
	case riskposture.DomainSharing:
		return []string{"ID", "DisplayName", "WebURL", "Kind", "AnonymousLink", "ExternalRecipients", "RiskLevel", "Reasons"}
	default:
		return []string{"ID", "DisplayName", "RiskLevel", "Reasons"}
	}
}

// RenderCSV serializes a result to CSV bytes: UTF-8 with BOM, header row,
// one row per record in fetch order. Pure and deterministic.
func RenderCSV(res riskposture.AnalysisResult) []byte {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	header := csvHeader(res.Domain)
	_ = w.Write(header)

	if len(res.Records) == 0 {
		row := make([]string, len(header))
		row[0] = noDataRow
		_ = w.Write(row)
		w.Flush()
		return buf.Bytes()
	}

	for _, rec := range res.Records {
		_ = w.Write(csvRow(res, rec))
	}
	w.Flush()
	return buf.Bytes()
}

func csvRow(res riskposture.AnalysisResult, rec riskposture.ClassifiedRecord) []string {
	level := rec.Level.String()
	reasons := strings.Join(rec.Reasons, "; ")

	switch r := rec.Record.(type) {
	case *entity.UserRecord:
		return userRow(res, rec, r, level, reasons)
	case *entity.StorageRecord:
		return storageRow(res.Domain, rec, r, level, reasons)
	default:
		return []string{rec.Record.RecordID(), rec.Record.Name(), level, reasons}
	}
}

func userRow(res riskposture.AnalysisResult, rec riskposture.ClassifiedRecord, u *entity.UserRecord, level, reasons string) []string {
	failed := u.FetchFailed()
	cell := func(v string) string {
		if failed {
			return ErrorPlaceholder
		}
		return v
	}

	signIn := func() string {
		if failed {
			return ErrorPlaceholder
		}
		if !res.Summary.SignInSupported {
			return signInUnsupportedCell
		}
		if u.LastSignIn.IsZero() {
			return ""
		}
		return u.LastSignIn.UTC().Format(time.RFC3339)
	}

	switch res.Domain {
	case riskposture.DomainMFA:
		return []string{
			u.ID, u.DisplayName, u.UserPrincipalName, strconv.FormatBool(u.Enabled),
			cell(strconv.FormatBool(u.Licensed())),
			cell(strconv.FormatBool(u.MFARegistered)),
			cell(strings.Join(u.AuthMethods, ",")),
			signIn(), level, reasons,
		}
	case riskposture.DomainPassword:
		expires := "-"
		if !u.PasswordNeverExpires {
			expires = strconv.Itoa(u.PasswordExpiresInDays)
		}
		return []string{
			u.ID, u.DisplayName, u.UserPrincipalName, strconv.FormatBool(u.Enabled),
			cell(strconv.FormatBool(u.PasswordNeverExpires)),
			cell(expires),
			cell(rec.Detail),
			level, reasons,
		}
	default: // license
		names := make([]string, 0, len(u.Licenses))
		for _, lic := range u.Licenses {
			names = append(names, lic.SKUName)
		}
		return []string{
			u.ID, u.DisplayName, u.UserPrincipalName, strconv.FormatBool(u.Enabled),
			cell(strings.Join(names, ",")),
			signIn(), level, reasons,
		}
	}
}

func storageRow(d riskposture.Domain, rec riskposture.ClassifiedRecord, s *entity.StorageRecord, level, reasons string) []string {
	failed := s.FetchFailed()
	cell := func(v string) string {
		if failed {
			return ErrorPlaceholder
		}
		return v
	}

	if d == riskposture.DomainSharing {
		external := 0
		for _, l := range s.SharingLinks {
			external += len(l.ExternalRecipients)
		}
		return []string{
			s.ID, s.DisplayName, s.WebURL, string(s.Kind),
			cell(strconv.FormatBool(s.HasAnonymousLink())),
			cell(strconv.Itoa(external)),
			level, reasons,
		}
	}

	return []string{
		s.ID, s.DisplayName, s.WebURL, string(s.Kind),
		cell(strconv.FormatInt(s.UsedBytes, 10)),
		cell(strconv.FormatInt(s.QuotaBytes, 10)),
		cell(fmt.Sprintf("%.2f", s.UsagePercent())),
		cell(strconv.FormatBool(s.HasExternalSharing())),
		cell(rec.Detail),
		level, reasons,
	}
}
