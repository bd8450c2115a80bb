package entitlement

import (
	"math/rand"
	"testing"
	"time"

	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func TestCanUse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		isPremium bool
		counter   *domain.UsageCounter
		now       time.Time
		want      bool
	}{
		{"no counter", false, nil, t0, true},
		{"under limit", false, &domain.UsageCounter{Current: 3, Limit: 10, ResetAt: t0.Add(time.Hour)}, t0, true},
		{"one below limit", false, &domain.UsageCounter{Current: 9, Limit: 10, ResetAt: t0.Add(time.Hour)}, t0, true},
		{"at limit", false, &domain.UsageCounter{Current: 10, Limit: 10, ResetAt: t0.Add(time.Hour)}, t0, false},
		{"over limit", false, &domain.UsageCounter{Current: 11, Limit: 10, ResetAt: t0.Add(time.Hour)}, t0, false},
		{"zero limit", false, &domain.UsageCounter{Current: 0, Limit: 0, ResetAt: t0.Add(time.Hour)}, t0, false},
		{"unlimited", false, &domain.UsageCounter{Current: 500, Limit: domain.UnlimitedLimit, ResetAt: t0.Add(time.Hour)}, t0, true},
		{"window elapsed exactly", false, &domain.UsageCounter{Current: 10, Limit: 10, ResetAt: t0}, t0, true},
		{"window elapsed long ago", false, &domain.UsageCounter{Current: 10, Limit: 10, ResetAt: t0.Add(-48 * time.Hour)}, t0, true},
		{"negative current clamped", false, &domain.UsageCounter{Current: -4, Limit: 1, ResetAt: t0.Add(time.Hour)}, t0, true},
		{"premium exhausted counter", true, &domain.UsageCounter{Current: 10, Limit: 10, ResetAt: t0.Add(time.Hour)}, t0, true},
		{"premium no counter", true, nil, t0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanUse(tc.isPremium, tc.counter, tc.now))
		})
	}
}

func TestCanUsePremiumAlwaysAllowed(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(11))

	for i := 0; i < 500; i++ {
		counter := &domain.UsageCounter{
			Current: r.Intn(50) - 10,
			Limit:   r.Intn(20) - 1,
			ResetAt: t0.Add(time.Duration(r.Intn(96)-48) * time.Hour),
		}
		require.True(t, CanUse(true, counter, t0))
	}
}

func TestRecordUsageFirstUse(t *testing.T) {
	t.Parallel()

	got := RecordUsage(false, nil, domain.FeatureAIChat, 10, domain.ResetDaily, t0)

	assert.Equal(t, domain.FeatureAIChat, got.FeatureID)
	assert.Equal(t, 1, got.Current)
	assert.Equal(t, 10, got.Limit)
	assert.Equal(t, domain.ResetDaily, got.ResetPeriod)
	assert.Equal(t, t0.Add(24*time.Hour), got.ResetAt)
}

func TestRecordUsagePremiumIsNoop(t *testing.T) {
	t.Parallel()
	existing := &domain.UsageCounter{FeatureID: domain.FeatureAIChat, Current: 10, Limit: 10, ResetAt: t0.Add(time.Hour)}
	before := *existing

	got := RecordUsage(true, existing, domain.FeatureAIChat, 10, domain.ResetDaily, t0)

	assert.Equal(t, domain.UnlimitedLimit, got.Limit)
	assert.Equal(t, 0, got.Current)
	assert.Equal(t, before, *existing, "premium usage must not touch the stored counter")
}

func TestRecordUsageIncrementAndReset(t *testing.T) {
	t.Parallel()
	counter := &domain.UsageCounter{
		FeatureID:   domain.FeatureStudyPlan,
		Current:     1,
		Limit:       2,
		ResetPeriod: domain.ResetWeekly,
		ResetAt:     t0.Add(2 * 24 * time.Hour),
	}

	inWindow := RecordUsage(false, counter, domain.FeatureStudyPlan, 99, domain.ResetDaily, t0)
	assert.Equal(t, 2, inWindow.Current)
	assert.Equal(t, counter.ResetAt, inWindow.ResetAt, "resetAt unchanged inside the window")
	assert.Equal(t, 2, inWindow.Limit, "stored limit wins over the default")
	assert.Equal(t, 1, counter.Current, "input must not be modified")

	later := t0.Add(10 * 24 * time.Hour)
	reset := RecordUsage(false, &inWindow, domain.FeatureStudyPlan, 99, domain.ResetDaily, later)
	assert.Equal(t, 1, reset.Current)
	assert.Equal(t, later.Add(7*24*time.Hour), reset.ResetAt, "rolling window starts at now")
}

func TestRecordUsageClockSkew(t *testing.T) {
	t.Parallel()
	counter := &domain.UsageCounter{Current: 3, Limit: 5, ResetPeriod: domain.ResetDaily, ResetAt: t0}

	skewed := t0.Add(-36 * time.Hour)
	got := RecordUsage(false, counter, domain.FeatureAIChat, 5, domain.ResetDaily, skewed)
	assert.Equal(t, 4, got.Current, "a now before resetAt is not yet due")
	assert.Equal(t, t0, got.ResetAt)
}

func TestRecordUsageCorruptCounter(t *testing.T) {
	t.Parallel()
	counter := &domain.UsageCounter{Current: -7, Limit: 5, ResetPeriod: "", ResetAt: t0.Add(time.Hour)}

	got := RecordUsage(false, counter, domain.FeatureAIChat, 5, domain.ResetMonthly, t0)
	assert.Equal(t, 1, got.Current)
	assert.Equal(t, domain.ResetMonthly, got.ResetPeriod)
	assert.Equal(t, domain.FeatureAIChat, got.FeatureID)
}

func TestLimitReachedAfterLimitUses(t *testing.T) {
	t.Parallel()
	const limit = 10

	var counter *domain.UsageCounter
	now := t0
	for i := 0; i < limit; i++ {
		require.True(t, CanUse(false, counter, now), "use %d should be allowed", i+1)
		next := RecordUsage(false, counter, domain.FeatureAIChat, limit, domain.ResetDaily, now)
		counter = &next
		now = now.Add(time.Minute)
	}

	assert.Equal(t, limit, counter.Current)
	assert.False(t, CanUse(false, counter, now))

	// Enforcement is advisory; recording anyway overshoots by one.
	over := RecordUsage(false, counter, domain.FeatureAIChat, limit, domain.ResetDaily, now)
	assert.Equal(t, limit+1, over.Current)

	// Crossing resetAt behaves as if current were zero.
	afterReset := counter.ResetAt
	assert.True(t, CanUse(false, &over, afterReset))
	fresh := RecordUsage(false, &over, domain.FeatureAIChat, limit, domain.ResetDaily, afterReset)
	assert.Equal(t, 1, fresh.Current)
}

func TestNextReset(t *testing.T) {
	t.Parallel()
	assert.True(t, NextReset(nil, t0).IsZero())

	c := &domain.UsageCounter{ResetAt: t0.Add(time.Hour)}
	assert.Equal(t, t0.Add(time.Hour), NextReset(c, t0))
	assert.True(t, NextReset(c, t0.Add(2*time.Hour)).IsZero())
}
