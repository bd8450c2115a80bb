package entitlement

import (
	"errors"
	"fmt"
	"sort"

	"github.com/phrazzld/studykit-api/internal/domain"
)

// ErrInvalidLimit is returned for a limit below the unlimited sentinel.
var ErrInvalidLimit = errors.New("limit must be -1 (unlimited) or non-negative")

// FeatureLimit is the default quota applied to a new counter.
type FeatureLimit struct {
	Limit  int
	Period domain.ResetPeriod
}

// Policy maps feature identifiers to their default quota. Features missing
// from the policy are not metered.
type Policy map[string]FeatureLimit

// NewPolicy validates limits and builds a Policy.
func NewPolicy(limits map[string]FeatureLimit) (Policy, error) {
	p := make(Policy, len(limits))
	for id, l := range limits {
		if id == "" {
			return nil, fmt.Errorf("%w: empty feature identifier", domain.ErrInvalidFeature)
		}
		if l.Limit < domain.UnlimitedLimit {
			return nil, fmt.Errorf("%w: %s=%d", ErrInvalidLimit, id, l.Limit)
		}
		if !l.Period.Valid() {
			return nil, fmt.Errorf("%w: %s=%q", domain.ErrInvalidResetPeriod, id, l.Period)
		}
		p[id] = l
	}
	return p, nil
}

// Limit returns the quota for featureID and whether it is metered.
func (p Policy) Limit(featureID string) (FeatureLimit, bool) {
	l, ok := p[featureID]
	return l, ok
}

// Features returns the metered feature identifiers in sorted order.
func (p Policy) Features() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
