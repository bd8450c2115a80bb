package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/api/shared"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/generation"
	"github.com/phrazzld/studykit-api/internal/service/auth"
	"github.com/phrazzld/studykit-api/internal/service/review"
	"github.com/phrazzld/studykit-api/internal/service/usage"
	"github.com/stretchr/testify/require"
)

// serve routes a single request through a chi router so that path
// parameters resolve. A non-nil userID is placed in the request context as
// the auth middleware would.
func serve(
	t *testing.T,
	method, pattern, path string,
	body interface{},
	userID uuid.UUID,
	handler http.HandlerFunc,
) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	r := chi.NewRouter()
	r.Method(method, pattern, handler)

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req = req.WithContext(shared.WithUserID(req.Context(), userID))
	}
	req = req.WithContext(shared.WithTraceID(req.Context(), "trace-test"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

type fakeAuthService struct {
	RegisterFn func(ctx context.Context, email, password string) (*domain.User, *auth.TokenPair, error)
	LoginFn    func(ctx context.Context, email, password string) (*domain.User, *auth.TokenPair, error)
	RefreshFn  func(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	DeleteFn   func(ctx context.Context, userID uuid.UUID) error
}

func (f *fakeAuthService) Register(ctx context.Context, email, password string) (*domain.User, *auth.TokenPair, error) {
	return f.RegisterFn(ctx, email, password)
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (*domain.User, *auth.TokenPair, error) {
	return f.LoginFn(ctx, email, password)
}

func (f *fakeAuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	return f.RefreshFn(ctx, refreshToken)
}

func (f *fakeAuthService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	return f.DeleteFn(ctx, userID)
}

type fakeUserGetter struct {
	user *domain.User
	err  error
}

func (f *fakeUserGetter) GetByID(_ context.Context, _ uuid.UUID) (*domain.User, error) {
	return f.user, f.err
}

type fakeCardService struct {
	CreateFn        func(ctx context.Context, userID uuid.UUID, deckID string, content json.RawMessage) (*domain.Card, error)
	GetFn           func(ctx context.Context, userID, cardID uuid.UUID) (*domain.Card, error)
	ListFn          func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Card, error)
	UpdateContentFn func(ctx context.Context, userID, cardID uuid.UUID, content json.RawMessage) (*domain.Card, error)
	DeleteFn        func(ctx context.Context, userID, cardID uuid.UUID) error
	GenerateCardsFn func(ctx context.Context, userID uuid.UUID, text, deckID string) ([]*domain.Card, error)
}

func (f *fakeCardService) Create(ctx context.Context, userID uuid.UUID, deckID string, content json.RawMessage) (*domain.Card, error) {
	return f.CreateFn(ctx, userID, deckID, content)
}

func (f *fakeCardService) Get(ctx context.Context, userID, cardID uuid.UUID) (*domain.Card, error) {
	return f.GetFn(ctx, userID, cardID)
}

func (f *fakeCardService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Card, error) {
	return f.ListFn(ctx, userID, limit, offset)
}

func (f *fakeCardService) UpdateContent(ctx context.Context, userID, cardID uuid.UUID, content json.RawMessage) (*domain.Card, error) {
	return f.UpdateContentFn(ctx, userID, cardID, content)
}

func (f *fakeCardService) Delete(ctx context.Context, userID, cardID uuid.UUID) error {
	return f.DeleteFn(ctx, userID, cardID)
}

func (f *fakeCardService) GenerateCards(ctx context.Context, userID uuid.UUID, text, deckID string) ([]*domain.Card, error) {
	return f.GenerateCardsFn(ctx, userID, text, deckID)
}

type fakeReviewService struct {
	GetNextCardFn  func(ctx context.Context, userID uuid.UUID) (*domain.Card, error)
	SubmitAnswerFn func(ctx context.Context, userID, cardID uuid.UUID, isCorrect bool) (*domain.CardMemoryState, error)
	PostponeCardFn func(ctx context.Context, userID, cardID uuid.UUID, days int) (*domain.CardMemoryState, error)
	GetProgressFn  func(ctx context.Context, userID uuid.UUID) (*review.Progress, error)
}

var _ review.Service = (*fakeReviewService)(nil)

func (f *fakeReviewService) GetNextCard(ctx context.Context, userID uuid.UUID) (*domain.Card, error) {
	return f.GetNextCardFn(ctx, userID)
}

func (f *fakeReviewService) SubmitAnswer(
	ctx context.Context,
	userID, cardID uuid.UUID,
	isCorrect bool,
) (*domain.CardMemoryState, error) {
	return f.SubmitAnswerFn(ctx, userID, cardID, isCorrect)
}

func (f *fakeReviewService) PostponeCard(
	ctx context.Context,
	userID, cardID uuid.UUID,
	days int,
) (*domain.CardMemoryState, error) {
	return f.PostponeCardFn(ctx, userID, cardID, days)
}

func (f *fakeReviewService) GetProgress(ctx context.Context, userID uuid.UUID) (*review.Progress, error) {
	return f.GetProgressFn(ctx, userID)
}

type fakeTutorService struct {
	ChatFn      func(ctx context.Context, userID uuid.UUID, history []generation.Message, message string) (string, error)
	SummarizeFn func(ctx context.Context, userID uuid.UUID, text string) (string, error)
	StudyPlanFn func(ctx context.Context, userID uuid.UUID, goal string, days int) (*generation.StudyPlan, error)
}

func (f *fakeTutorService) Chat(
	ctx context.Context,
	userID uuid.UUID,
	history []generation.Message,
	message string,
) (string, error) {
	return f.ChatFn(ctx, userID, history, message)
}

func (f *fakeTutorService) Summarize(ctx context.Context, userID uuid.UUID, text string) (string, error) {
	return f.SummarizeFn(ctx, userID, text)
}

func (f *fakeTutorService) StudyPlan(
	ctx context.Context,
	userID uuid.UUID,
	goal string,
	days int,
) (*generation.StudyPlan, error) {
	return f.StudyPlanFn(ctx, userID, goal, days)
}

type fakeUsageReader struct {
	CheckFn func(ctx context.Context, userID uuid.UUID, featureID string) (*usage.Decision, error)
	UsageFn func(ctx context.Context, userID uuid.UUID) ([]usage.Decision, error)
}

func (f *fakeUsageReader) Check(ctx context.Context, userID uuid.UUID, featureID string) (*usage.Decision, error) {
	return f.CheckFn(ctx, userID, featureID)
}

func (f *fakeUsageReader) Usage(ctx context.Context, userID uuid.UUID) ([]usage.Decision, error) {
	return f.UsageFn(ctx, userID)
}

func testCard(userID uuid.UUID) *domain.Card {
	card, err := domain.NewCardFromContent(userID, "biology",
		domain.CardContent{Front: "What is ATP?", Back: "The cell's energy currency"},
		domain.CardSourceManual)
	if err != nil {
		panic(err)
	}
	return card
}
