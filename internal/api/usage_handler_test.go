package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/service/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageHandler_ListUsage(t *testing.T) {
	reader := &fakeUsageReader{
		UsageFn: func(context.Context, uuid.UUID) ([]usage.Decision, error) {
			return []usage.Decision{
				{FeatureID: domain.FeatureAIChat, Allowed: true, Limit: 10, Used: 3, Remaining: 7, ResetPeriod: domain.ResetDaily},
				{FeatureID: domain.FeatureStudyPlan, Allowed: false, Limit: 2, Used: 2, ResetPeriod: domain.ResetWeekly},
			}, nil
		},
	}
	h := NewUsageHandler(reader, nil)

	rec := serve(t, http.MethodGet, "/usage", "/usage", nil, uuid.New(), h.ListUsage)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[UsageResponse](t, rec)
	require.Len(t, resp.Features, 2)
	assert.Equal(t, 7, resp.Features[0].Remaining)
	assert.False(t, resp.Features[1].Allowed)
}

func TestUsageHandler_GetFeatureUsage(t *testing.T) {
	testCases := []struct {
		name       string
		feature    string
		err        error
		wantStatus int
	}{
		{"known feature", domain.FeatureNoteSummary, nil, http.StatusOK},
		{"unknown feature", "time_travel", usage.ErrUnknownFeature, http.StatusNotFound},
		{"store failure", domain.FeatureAIChat, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reader := &fakeUsageReader{
				CheckFn: func(_ context.Context, _ uuid.UUID, featureID string) (*usage.Decision, error) {
					assert.Equal(t, tc.feature, featureID)
					if tc.err != nil {
						return nil, tc.err
					}
					return &usage.Decision{FeatureID: featureID, Allowed: true, Limit: 5, Remaining: 5}, nil
				},
			}
			h := NewUsageHandler(reader, nil)

			rec := serve(t, http.MethodGet, "/usage/{feature}", "/usage/"+tc.feature, nil, uuid.New(), h.GetFeatureUsage)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, tc.feature, decodeBody[usage.Decision](t, rec).FeatureID)
			}
		})
	}
}
