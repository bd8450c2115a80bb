// Package generation defines the boundary between the application core and
// the language model that creates flashcards, summaries, tutor replies and
// study plans. Implementations live under internal/platform.
package generation
