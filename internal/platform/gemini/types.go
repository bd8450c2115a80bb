package gemini

// cardsResponse is the JSON shape requested for flashcard generation.
type cardsResponse struct {
	Cards []cardSchema `json:"cards"`
}

// cardSchema represents a single flashcard in the API response.
type cardSchema struct {
	// Front is the question or prompt side of the flashcard
	Front string `json:"front"`

	// Back is the answer side of the flashcard
	Back string `json:"back"`

	// Hint is an optional hint to help the user recall the answer
	Hint string `json:"hint,omitempty"`

	// Tags are optional categories or labels for the flashcard
	Tags []string `json:"tags,omitempty"`
}

// studyPlanResponse is the JSON shape requested for study plans.
type studyPlanResponse struct {
	Goal string `json:"goal"`
	Days []struct {
		Day   int      `json:"day"`
		Focus string   `json:"focus"`
		Tasks []string `json:"tasks"`
	} `json:"days"`
}
