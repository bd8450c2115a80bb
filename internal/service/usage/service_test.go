package usage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/domain/entitlement"
	"github.com/phrazzld/studykit-api/internal/mocks"
	"github.com/phrazzld/studykit-api/internal/platform/logger"
	"github.com/phrazzld/studykit-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)

var testPolicy = entitlement.Policy{
	domain.FeatureAIChat:        {Limit: 10, Period: domain.ResetDaily},
	domain.FeatureStudyPlan:     {Limit: 2, Period: domain.ResetWeekly},
	domain.FeatureAnalyticsView: {Limit: 0, Period: domain.ResetDaily},
}

type fixture struct {
	svc      *Service
	sqlMock  sqlmock.Sqlmock
	users    *mocks.UserStore
	counters *mocks.UsageCounterStore
	logs     *logger.TestLogBuffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log, buf := logger.NewTestLogger(t)
	users := &mocks.UserStore{}
	counters := &mocks.UsageCounterStore{}

	svc, err := NewService(db, users, counters, testPolicy, log)
	require.NoError(t, err)
	svc.now = func() time.Time { return fixedNow }

	t.Cleanup(func() {
		users.AssertExpectations(t)
		counters.AssertExpectations(t)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	return &fixture{svc: svc, sqlMock: sqlMock, users: users, counters: counters, logs: buf}
}

func freeUser() *domain.User {
	return &domain.User{ID: uuid.New(), Email: "free@example.com", HashedPassword: "x", Plan: domain.PlanFree}
}

func premiumUser() *domain.User {
	return &domain.User{ID: uuid.New(), Email: "pro@example.com", HashedPassword: "x", Plan: domain.PlanPremium}
}

func TestNewService_Validation(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = NewService(nil, &mocks.UserStore{}, &mocks.UsageCounterStore{}, testPolicy, nil)
	assert.Error(t, err)
	_, err = NewService(db, nil, &mocks.UsageCounterStore{}, testPolicy, nil)
	assert.Error(t, err)
	_, err = NewService(db, &mocks.UserStore{}, nil, testPolicy, nil)
	assert.Error(t, err)

	svc, err := NewService(db, &mocks.UserStore{}, &mocks.UsageCounterStore{}, testPolicy, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc.logger)
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name        string
		user        *domain.User
		featureID   string
		counter     *domain.UsageCounter
		wantAllowed bool
		wantUsed    int
		wantRemain  int
		wantLimit   int
	}{
		{
			name:        "free user first use",
			user:        freeUser(),
			featureID:   domain.FeatureAIChat,
			wantAllowed: true,
			wantRemain:  10,
			wantLimit:   10,
		},
		{
			name:      "free user at limit",
			user:      freeUser(),
			featureID: domain.FeatureAIChat,
			counter: &domain.UsageCounter{
				FeatureID: domain.FeatureAIChat, Current: 10, Limit: 10,
				ResetPeriod: domain.ResetDaily, ResetAt: fixedNow.Add(time.Hour),
			},
			wantAllowed: false,
			wantUsed:    10,
			wantRemain:  0,
			wantLimit:   10,
		},
		{
			name:      "window elapsed",
			user:      freeUser(),
			featureID: domain.FeatureAIChat,
			counter: &domain.UsageCounter{
				FeatureID: domain.FeatureAIChat, Current: 10, Limit: 10,
				ResetPeriod: domain.ResetDaily, ResetAt: fixedNow.Add(-time.Minute),
			},
			wantAllowed: true,
			wantRemain:  10,
			wantLimit:   10,
		},
		{
			name:      "premium ignores exhausted counter",
			user:      premiumUser(),
			featureID: domain.FeatureStudyPlan,
			counter: &domain.UsageCounter{
				FeatureID: domain.FeatureStudyPlan, Current: 2, Limit: 2,
				ResetPeriod: domain.ResetWeekly, ResetAt: fixedNow.Add(time.Hour),
			},
			wantAllowed: true,
			wantUsed:    2,
			wantRemain:  domain.UnlimitedLimit,
			wantLimit:   domain.UnlimitedLimit,
		},
		{
			name:        "zero quota denies first use",
			user:        freeUser(),
			featureID:   domain.FeatureAnalyticsView,
			wantAllowed: false,
			wantRemain:  0,
			wantLimit:   0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.users.On("GetByID", mock.Anything, tc.user.ID).Return(tc.user, nil)
			if tc.counter != nil {
				f.counters.On("Get", mock.Anything, tc.user.ID, tc.featureID).Return(tc.counter, nil)
			} else {
				f.counters.On("Get", mock.Anything, tc.user.ID, tc.featureID).
					Return(nil, store.ErrUsageCounterNotFound)
			}

			d, err := f.svc.Check(ctx, tc.user.ID, tc.featureID)
			require.NoError(t, err)
			assert.Equal(t, tc.featureID, d.FeatureID)
			assert.Equal(t, tc.wantAllowed, d.Allowed)
			assert.Equal(t, tc.wantUsed, d.Used)
			assert.Equal(t, tc.wantRemain, d.Remaining)
			assert.Equal(t, tc.wantLimit, d.Limit)
		})
	}
}

func TestCheck_UnknownFeature(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Check(context.Background(), uuid.New(), "teleportation")
	assert.ErrorIs(t, err, ErrUnknownFeature)
}

func TestCheck_UserLookupFails(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.users.On("GetByID", mock.Anything, userID).Return(nil, store.ErrUserNotFound)

	_, err := f.svc.Check(context.Background(), userID, domain.FeatureAIChat)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "check", svcErr.Operation)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestRecord_FirstUse(t *testing.T) {
	f := newFixture(t)
	user := freeUser()
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.counters.On("GetForUpdate", mock.Anything, user.ID, domain.FeatureStudyPlan).
		Return(nil, store.ErrUsageCounterNotFound)
	f.counters.On("Upsert", mock.Anything, mock.MatchedBy(func(c *domain.UsageCounter) bool {
		return c.UserID == user.ID &&
			c.FeatureID == domain.FeatureStudyPlan &&
			c.Current == 1 &&
			c.Limit == 2 &&
			c.ResetPeriod == domain.ResetWeekly &&
			c.ResetAt.Equal(fixedNow.Add(7*24*time.Hour))
	})).Return(nil)
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectCommit()

	got, err := f.svc.Record(context.Background(), user.ID, domain.FeatureStudyPlan)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Current)
	assert.Equal(t, fixedNow, got.CreatedAt)
}

func TestRecord_IncrementsExisting(t *testing.T) {
	f := newFixture(t)
	user := freeUser()
	existing := &domain.UsageCounter{
		UserID: user.ID, FeatureID: domain.FeatureAIChat, Current: 4, Limit: 10,
		ResetPeriod: domain.ResetDaily, ResetAt: fixedNow.Add(3 * time.Hour),
		CreatedAt: fixedNow.Add(-21 * time.Hour),
	}
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.counters.On("GetForUpdate", mock.Anything, user.ID, domain.FeatureAIChat).Return(existing, nil)
	f.counters.On("Upsert", mock.Anything, mock.MatchedBy(func(c *domain.UsageCounter) bool {
		return c.Current == 5 && c.ResetAt.Equal(existing.ResetAt)
	})).Return(nil)
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectCommit()

	got, err := f.svc.Record(context.Background(), user.ID, domain.FeatureAIChat)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Current)
	assert.Equal(t, existing.CreatedAt, got.CreatedAt)
	assert.Equal(t, 4, existing.Current, "stored counter must not be modified")
}

func TestRecord_PremiumSkipsStorage(t *testing.T) {
	f := newFixture(t)
	user := premiumUser()
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	got, err := f.svc.Record(context.Background(), user.ID, domain.FeatureAIChat)
	require.NoError(t, err)
	assert.Equal(t, domain.UnlimitedLimit, got.Limit)
	assert.Equal(t, 0, got.Current)
	assert.Equal(t, user.ID, got.UserID)
	f.counters.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestRecord_UpsertFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	user := freeUser()
	dbErr := errors.New("connection reset")
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.counters.On("GetForUpdate", mock.Anything, user.ID, domain.FeatureAIChat).
		Return(nil, store.ErrUsageCounterNotFound)
	f.counters.On("Upsert", mock.Anything, mock.Anything).Return(dbErr)
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectRollback()

	_, err := f.svc.Record(context.Background(), user.ID, domain.FeatureAIChat)
	assert.ErrorIs(t, err, dbErr)
}

func TestRun_Allowed(t *testing.T) {
	f := newFixture(t)
	user := freeUser()
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.counters.On("Get", mock.Anything, user.ID, domain.FeatureAIChat).
		Return(nil, store.ErrUsageCounterNotFound)
	f.counters.On("GetForUpdate", mock.Anything, user.ID, domain.FeatureAIChat).
		Return(nil, store.ErrUsageCounterNotFound)
	f.counters.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectCommit()

	calls := 0
	err := f.svc.Run(context.Background(), user.ID, domain.FeatureAIChat, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRun_LimitReached(t *testing.T) {
	f := newFixture(t)
	user := freeUser()
	exhausted := &domain.UsageCounter{
		UserID: user.ID, FeatureID: domain.FeatureStudyPlan, Current: 2, Limit: 2,
		ResetPeriod: domain.ResetWeekly, ResetAt: fixedNow.Add(48 * time.Hour),
	}
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.counters.On("Get", mock.Anything, user.ID, domain.FeatureStudyPlan).Return(exhausted, nil)

	called := false
	err := f.svc.Run(context.Background(), user.ID, domain.FeatureStudyPlan, func(context.Context) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.ErrorIs(t, err, ErrLimitReached)
	var limitErr *LimitReachedError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 2, limitErr.Decision.Used)
	assert.Equal(t, exhausted.ResetAt, limitErr.Decision.ResetAt)
}

func TestRun_FailedActionIsNotCounted(t *testing.T) {
	f := newFixture(t)
	user := freeUser()
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.counters.On("Get", mock.Anything, user.ID, domain.FeatureAIChat).
		Return(nil, store.ErrUsageCounterNotFound)

	actionErr := errors.New("model unavailable")
	err := f.svc.Run(context.Background(), user.ID, domain.FeatureAIChat, func(context.Context) error {
		return actionErr
	})

	assert.Equal(t, actionErr, err)
	f.counters.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestRun_TrackingFailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	user := freeUser()
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.counters.On("Get", mock.Anything, user.ID, domain.FeatureAIChat).
		Return(nil, store.ErrUsageCounterNotFound)
	f.sqlMock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := f.svc.Run(context.Background(), user.ID, domain.FeatureAIChat, func(context.Context) error {
		return nil
	})

	require.NoError(t, err)
	assert.Contains(t, f.logs.String(), ErrUsageTrackingFailed.Error())
}

func TestRun_PremiumDoesNotRecord(t *testing.T) {
	f := newFixture(t)
	user := premiumUser()
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.counters.On("Get", mock.Anything, user.ID, domain.FeatureAIChat).
		Return(nil, store.ErrUsageCounterNotFound)

	err := f.svc.Run(context.Background(), user.ID, domain.FeatureAIChat, func(context.Context) error {
		return nil
	})

	require.NoError(t, err)
	f.counters.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestUsage_ListsEveryFeature(t *testing.T) {
	f := newFixture(t)
	user := freeUser()
	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.counters.On("ListByUser", mock.Anything, user.ID).Return([]*domain.UsageCounter{
		{
			UserID: user.ID, FeatureID: domain.FeatureAIChat, Current: 3, Limit: 10,
			ResetPeriod: domain.ResetDaily, ResetAt: fixedNow.Add(time.Hour),
		},
	}, nil)

	got, err := f.svc.Usage(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, got, len(testPolicy))

	byFeature := make(map[string]Decision, len(got))
	for _, d := range got {
		byFeature[d.FeatureID] = d
	}
	assert.Equal(t, 3, byFeature[domain.FeatureAIChat].Used)
	assert.Equal(t, 7, byFeature[domain.FeatureAIChat].Remaining)
	assert.Equal(t, 0, byFeature[domain.FeatureStudyPlan].Used)
	assert.Equal(t, 2, byFeature[domain.FeatureStudyPlan].Remaining)
	assert.True(t, byFeature[domain.FeatureAIChat].ResetAt.Equal(fixedNow.Add(time.Hour)))
	assert.True(t, byFeature[domain.FeatureStudyPlan].ResetAt.IsZero())
}

func TestServiceError(t *testing.T) {
	inner := sql.ErrConnDone
	err := newServiceError("record", "failed to update usage counter", inner)
	assert.Contains(t, err.Error(), "usage record failed")
	assert.ErrorIs(t, err, inner)
}
