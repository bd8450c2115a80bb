package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardUserIDEmpty is returned when a card's user ID is empty or nil.
	ErrCardUserIDEmpty = errors.New("card user ID cannot be empty")

	// ErrCardContentEmpty is returned when a card's content is empty.
	ErrCardContentEmpty = errors.New("card content cannot be empty")

	// ErrCardContentInvalid is returned when a card's content is not valid JSON
	// or is missing its front or back side.
	ErrCardContentInvalid = errors.New("card content must be valid JSON with front and back")

	// ErrCardSourceInvalid is returned for an unknown card source.
	ErrCardSourceInvalid = errors.New("invalid card source")
)

// CardSource records how a card came into existence.
type CardSource string

// Possible card sources
const (
	CardSourceManual CardSource = "manual"
	CardSourceAI     CardSource = "ai"
)

// Card represents a single flashcard owned by a user. Cards can be grouped
// into decks by a free-form deck label; the content is stored as JSONB.
type Card struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	DeckID    string          `json:"deck_id,omitempty"`
	Content   json.RawMessage `json:"content"`
	Source    CardSource      `json:"source"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CardContent is the structure of the content field in a Card.
type CardContent struct {
	Front    string   `json:"front"`
	Back     string   `json:"back"`
	Hint     string   `json:"hint,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

// NewCard creates a new Card with the given user ID, deck label and content.
// Returns an error if validation fails.
func NewCard(userID uuid.UUID, deckID string, content json.RawMessage, source CardSource) (*Card, error) {
	now := time.Now().UTC()
	card := &Card{
		ID:        uuid.New(),
		UserID:    userID,
		DeckID:    strings.TrimSpace(deckID),
		Content:   content,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// NewCardFromContent marshals content and builds a card from it.
func NewCardFromContent(userID uuid.UUID, deckID string, content CardContent, source CardSource) (*Card, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, ErrCardContentInvalid
	}
	return NewCard(userID, deckID, raw, source)
}

// Validate checks if the Card has valid data.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.UserID == uuid.Nil {
		return ErrCardUserIDEmpty
	}

	if len(c.Content) == 0 {
		return ErrCardContentEmpty
	}

	var content CardContent
	if err := json.Unmarshal(c.Content, &content); err != nil {
		return ErrCardContentInvalid
	}
	if strings.TrimSpace(content.Front) == "" || strings.TrimSpace(content.Back) == "" {
		return ErrCardContentInvalid
	}

	switch c.Source {
	case CardSourceManual, CardSourceAI:
	default:
		return ErrCardSourceInvalid
	}

	return nil
}

// ParsedContent decodes the card content. Invalid content yields an error.
func (c *Card) ParsedContent() (CardContent, error) {
	var content CardContent
	if err := json.Unmarshal(c.Content, &content); err != nil {
		return CardContent{}, ErrCardContentInvalid
	}
	return content, nil
}

// UpdateContent replaces the card's content and bumps UpdatedAt.
// The original content is kept when the new content is invalid.
func (c *Card) UpdateContent(content json.RawMessage) error {
	origContent := c.Content
	c.Content = content

	if err := c.Validate(); err != nil {
		c.Content = origContent
		return err
	}

	c.UpdatedAt = time.Now().UTC()
	return nil
}
