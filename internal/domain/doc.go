// Package domain contains the core business entities of studykit: users,
// flashcards, per-card review progress and metered feature usage. It has no
// knowledge of storage or transport.
package domain
