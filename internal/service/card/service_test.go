package card

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/generation"
	"github.com/phrazzld/studykit-api/internal/mocks"
	"github.com/phrazzld/studykit-api/internal/service"
	"github.com/phrazzld/studykit-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var validContent = json.RawMessage(`{"front":"What is the capital of France?","back":"Paris"}`)

type fixture struct {
	svc       *Service
	sqlMock   sqlmock.Sqlmock
	cards     *mocks.CardStore
	generator *mocks.MockGenerator
	meter     *mocks.MockMeter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		sqlMock:   sqlMock,
		cards:     &mocks.CardStore{},
		generator: &mocks.MockGenerator{},
		meter:     &mocks.MockMeter{},
	}
	f.svc, err = NewService(db, f.cards, f.generator, f.meter, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		f.cards.AssertExpectations(t)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
	return f
}

func ownedCard(userID uuid.UUID) *domain.Card {
	card, _ := domain.NewCard(userID, "geography", validContent, domain.CardSourceManual)
	return card
}

func TestNewService_Validation(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cards := &mocks.CardStore{}
	gen := &mocks.MockGenerator{}
	meter := &mocks.MockMeter{}

	testCases := []struct {
		name    string
		build   func() (*Service, error)
		wantErr bool
	}{
		{"nil db", func() (*Service, error) { return NewService(nil, cards, gen, meter, nil) }, true},
		{"nil cards", func() (*Service, error) { return NewService(db, nil, gen, meter, nil) }, true},
		{"nil generator", func() (*Service, error) { return NewService(db, cards, nil, meter, nil) }, true},
		{"nil meter", func() (*Service, error) { return NewService(db, cards, gen, nil, nil) }, true},
		{"valid", func() (*Service, error) { return NewService(db, cards, gen, meter, nil) }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := tc.build()
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestCreate(t *testing.T) {
	userID := uuid.New()

	t.Run("valid card", func(t *testing.T) {
		f := newFixture(t)
		f.cards.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Card) bool {
			return c.UserID == userID && c.DeckID == "geography" && c.Source == domain.CardSourceManual
		})).Return(nil)

		card, err := f.svc.Create(context.Background(), userID, " geography ", validContent)
		require.NoError(t, err)
		assert.Equal(t, "geography", card.DeckID)
	})

	t.Run("invalid content", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Create(context.Background(), userID, "", json.RawMessage(`{"front":"only"}`))
		assert.ErrorIs(t, err, domain.ErrCardContentInvalid)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		f.cards.On("Create", mock.Anything, mock.Anything).Return(store.ErrInternal)

		_, err := f.svc.Create(context.Background(), userID, "", validContent)
		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "create_card", svcErr.Operation)
	})
}

func TestGet(t *testing.T) {
	userID := uuid.New()

	t.Run("owner", func(t *testing.T) {
		f := newFixture(t)
		card := ownedCard(userID)
		f.cards.On("GetByID", mock.Anything, card.ID).Return(card, nil)

		got, err := f.svc.Get(context.Background(), userID, card.ID)
		require.NoError(t, err)
		assert.Equal(t, card.ID, got.ID)
	})

	t.Run("other user", func(t *testing.T) {
		f := newFixture(t)
		card := ownedCard(uuid.New())
		f.cards.On("GetByID", mock.Anything, card.ID).Return(card, nil)

		_, err := f.svc.Get(context.Background(), userID, card.ID)
		assert.ErrorIs(t, err, service.ErrNotOwned)
	})

	t.Run("missing", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.cards.On("GetByID", mock.Anything, id).Return(nil, store.ErrCardNotFound)

		_, err := f.svc.Get(context.Background(), userID, id)
		assert.ErrorIs(t, err, store.ErrCardNotFound)
	})
}

func TestList(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	cards := []*domain.Card{ownedCard(userID), ownedCard(userID)}
	f.cards.On("ListByUser", mock.Anything, userID, 20, 40).Return(cards, nil)

	got, err := f.svc.List(context.Background(), userID, 20, 40)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestUpdateContent(t *testing.T) {
	userID := uuid.New()
	newContent := json.RawMessage(`{"front":"Capital of Italy?","back":"Rome"}`)

	t.Run("owner updates", func(t *testing.T) {
		f := newFixture(t)
		card := ownedCard(userID)
		f.sqlMock.ExpectBegin()
		f.sqlMock.ExpectCommit()
		f.cards.On("GetByID", mock.Anything, card.ID).Return(card, nil)
		f.cards.On("UpdateContent", mock.Anything, card.ID, []byte(newContent)).Return(nil)

		got, err := f.svc.UpdateContent(context.Background(), userID, card.ID, newContent)
		require.NoError(t, err)
		assert.JSONEq(t, string(newContent), string(got.Content))
	})

	t.Run("not owner", func(t *testing.T) {
		f := newFixture(t)
		card := ownedCard(uuid.New())
		f.sqlMock.ExpectBegin()
		f.sqlMock.ExpectRollback()
		f.cards.On("GetByID", mock.Anything, card.ID).Return(card, nil)

		_, err := f.svc.UpdateContent(context.Background(), userID, card.ID, newContent)
		assert.ErrorIs(t, err, ErrCardNotOwned)
		f.cards.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid content", func(t *testing.T) {
		f := newFixture(t)
		card := ownedCard(userID)
		f.sqlMock.ExpectBegin()
		f.sqlMock.ExpectRollback()
		f.cards.On("GetByID", mock.Anything, card.ID).Return(card, nil)

		_, err := f.svc.UpdateContent(context.Background(), userID, card.ID, json.RawMessage(`not json`))
		assert.ErrorIs(t, err, domain.ErrCardContentInvalid)
	})
}

func TestDelete(t *testing.T) {
	userID := uuid.New()

	t.Run("owner deletes", func(t *testing.T) {
		f := newFixture(t)
		card := ownedCard(userID)
		f.sqlMock.ExpectBegin()
		f.sqlMock.ExpectCommit()
		f.cards.On("GetByID", mock.Anything, card.ID).Return(card, nil)
		f.cards.On("Delete", mock.Anything, card.ID).Return(nil)

		require.NoError(t, f.svc.Delete(context.Background(), userID, card.ID))
	})

	t.Run("missing card", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.sqlMock.ExpectBegin()
		f.sqlMock.ExpectRollback()
		f.cards.On("GetByID", mock.Anything, id).Return(nil, store.ErrCardNotFound)

		err := f.svc.Delete(context.Background(), userID, id)
		assert.ErrorIs(t, err, store.ErrCardNotFound)
	})

	t.Run("not owner", func(t *testing.T) {
		f := newFixture(t)
		card := ownedCard(uuid.New())
		f.sqlMock.ExpectBegin()
		f.sqlMock.ExpectRollback()
		f.cards.On("GetByID", mock.Anything, card.ID).Return(card, nil)

		err := f.svc.Delete(context.Background(), userID, card.ID)
		assert.ErrorIs(t, err, ErrCardNotOwned)
	})
}

func TestGenerateCards(t *testing.T) {
	userID := uuid.New()

	t.Run("cards saved in one transaction", func(t *testing.T) {
		f := newFixture(t)
		generated := []*domain.Card{ownedCard(userID), ownedCard(userID), ownedCard(userID)}
		f.generator.GenerateCardsFn = func(_ context.Context, text string, uid uuid.UUID, deckID string) ([]*domain.Card, error) {
			assert.Equal(t, "photosynthesis notes", text)
			assert.Equal(t, userID, uid)
			assert.Equal(t, "biology", deckID)
			return generated, nil
		}
		f.sqlMock.ExpectBegin()
		f.sqlMock.ExpectCommit()
		f.cards.On("CreateMultiple", mock.Anything, generated).Return(nil)

		got, err := f.svc.GenerateCards(context.Background(), userID, "photosynthesis notes", "biology")
		require.NoError(t, err)
		assert.Len(t, got, 3)
		assert.Equal(t, []string{domain.FeatureFlashcardGeneration}, f.meter.Features())
	})

	t.Run("limit reached skips generation", func(t *testing.T) {
		f := newFixture(t)
		limitErr := errors.New("usage limit reached")
		f.meter.Err = limitErr

		_, err := f.svc.GenerateCards(context.Background(), userID, "notes", "")
		assert.ErrorIs(t, err, limitErr)
		assert.Equal(t, 0, f.generator.Calls("GenerateCards"))
	})

	t.Run("generator failure", func(t *testing.T) {
		f := newFixture(t)
		f.generator.Err = generation.ErrContentBlocked

		_, err := f.svc.GenerateCards(context.Background(), userID, "notes", "")
		assert.ErrorIs(t, err, generation.ErrContentBlocked)
	})

	t.Run("no cards generated", func(t *testing.T) {
		f := newFixture(t)
		f.generator.GenerateCardsFn = func(context.Context, string, uuid.UUID, string) ([]*domain.Card, error) {
			return nil, nil
		}

		_, err := f.svc.GenerateCards(context.Background(), userID, "notes", "")
		assert.ErrorIs(t, err, ErrNoCardsGenerated)
	})

	t.Run("save failure rolls back", func(t *testing.T) {
		f := newFixture(t)
		generated := []*domain.Card{ownedCard(userID)}
		f.generator.GenerateCardsFn = func(context.Context, string, uuid.UUID, string) ([]*domain.Card, error) {
			return generated, nil
		}
		f.sqlMock.ExpectBegin()
		f.sqlMock.ExpectRollback()
		f.cards.On("CreateMultiple", mock.Anything, generated).Return(store.ErrInvalidEntity)

		_, err := f.svc.GenerateCards(context.Background(), userID, "notes", "")
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("empty text", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.GenerateCards(context.Background(), userID, "   ", "")
		assert.ErrorIs(t, err, generation.ErrEmptyInput)
		assert.Empty(t, f.meter.Features())
	})
}
