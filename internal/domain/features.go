package domain

// Metered feature identifiers.
const (
	FeatureAIChat              = "ai_chat_sessions"
	FeatureFlashcardGeneration = "ai_flashcard_generations"
	FeatureNoteSummary         = "ai_note_summaries"
	FeatureStudyPlan           = "study_plan_generations"
	FeatureAnalyticsView       = "analytics_views"
)

// Features lists every metered feature in display order.
var Features = []string{
	FeatureAIChat,
	FeatureFlashcardGeneration,
	FeatureNoteSummary,
	FeatureStudyPlan,
	FeatureAnalyticsView,
}

// IsKnownFeature reports whether id names a metered feature.
func IsKnownFeature(id string) bool {
	for _, f := range Features {
		if f == id {
			return true
		}
	}
	return false
}
