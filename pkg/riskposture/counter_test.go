package riskposture

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"tspm/pkg/entity"
)

func classified(t *testing.T, level RiskLevel, active bool) ClassifiedRecord {
	t.Helper()
	u := testUser(t, "u-"+level.String())
	u.Enabled = active
	return ClassifiedRecord{Record: u, Level: level}
}

func TestAggregateBucketsSumToTotal(t *testing.T) {
	records := []ClassifiedRecord{
		classified(t, RiskLow, true),
		classified(t, RiskLow, false),
		classified(t, RiskMedium, true),
		classified(t, RiskHigh, true),
		classified(t, RiskCritical, false),
		classified(t, RiskUnknown, true),
	}

	s := Aggregate(records, DefaultRules())

	assert.Equal(t, 6, s.Total)
	sum := s.LowCount + s.MediumCount + s.HighCount + s.CriticalCount + s.UnknownCount
	assert.Equal(t, s.Total, sum)
	assert.Equal(t, 2, s.LowCount)
	assert.Equal(t, 1, s.Count(RiskUnknown))
}

func TestAggregateEmptySet(t *testing.T) {
	s := Aggregate(nil, DefaultRules())

	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.UrgentPercent)
	assert.Zero(t, s.AverageUsagePercent)
	assert.Zero(t, s.MonthlyLicenseCost)
}

func TestAggregateUrgentCountsActiveHighAndAbove(t *testing.T) {
	records := []ClassifiedRecord{
		classified(t, RiskHigh, true),
		classified(t, RiskCritical, true),
		classified(t, RiskHigh, false), // inactive, not urgent
		classified(t, RiskCritical, true),
		classified(t, RiskMedium, true),
		classified(t, RiskLow, true),
		classified(t, RiskLow, true),
		classified(t, RiskLow, true),
	}

	s := Aggregate(records, DefaultRules())

	assert.Equal(t, 3, s.UrgentCount)
	assert.Equal(t, 37.5, s.UrgentPercent)
}

func TestAggregateMonthlyLicenseCost(t *testing.T) {
	u1 := testUser(t, "u1")
	u1.Licenses = []entity.License{{SKUID: "SPE_E3"}}
	u2 := testUser(t, "u2")
	u2.Licenses = []entity.License{{SKUID: "SPE_E3"}, {SKUID: "AAD_PREMIUM"}}

	s := Aggregate([]ClassifiedRecord{
		{Record: u1, Level: RiskLow},
		{Record: u2, Level: RiskLow},
	}, DefaultRules())

	assert.Equal(t, 78.0, s.MonthlyLicenseCost)
}

func TestAggregateAverageUsageSkipsZeroQuota(t *testing.T) {
	half := testStorage(t, "s1", 50)
	full := testStorage(t, "s2", 100)
	unquotated, err := entity.NewStorageRecord("s3", "No Quota", entity.KindDrive)
	assert.NoError(t, err)

	s := Aggregate([]ClassifiedRecord{
		{Record: half, Level: RiskLow},
		{Record: full, Level: RiskCritical},
		{Record: unquotated, Level: RiskLow},
	}, DefaultRules())

	assert.Equal(t, 75.0, s.AverageUsagePercent)
}

func TestAggregateFetchErrorsExcludedFromMetrics(t *testing.T) {
	ok := testUser(t, "u1")
	ok.Licenses = []entity.License{{SKUID: "STANDARDPACK"}}

	broken := testUser(t, "u2")
	broken.Licenses = []entity.License{{SKUID: "SPE_E5"}}
	broken.FetchErr = entity.WrapEnrichment(errors.New("license lookup failed"))

	s := Aggregate([]ClassifiedRecord{
		{Record: ok, Level: RiskLow},
		{Record: broken, Level: RiskUnknown},
	}, DefaultRules())

	assert.Equal(t, 1, s.FetchErrorCount)
	// The broken record's licenses are not trusted for cost estimation.
	assert.Equal(t, 12.5, s.MonthlyLicenseCost)
}

func TestAggregateSignInSupportedFlag(t *testing.T) {
	u := testUser(t, "u1")
	u.SignInSupported = false

	s := Aggregate([]ClassifiedRecord{{Record: u, Level: RiskLow}}, DefaultRules())
	assert.False(t, s.SignInSupported)

	s = Aggregate([]ClassifiedRecord{{Record: testUser(t, "u2"), Level: RiskLow}}, DefaultRules())
	assert.True(t, s.SignInSupported)
}
