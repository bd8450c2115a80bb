// Package gemini implements generation.Generator on top of Google's Gemini API.
//
// Prompts are text templates embedded in the binary. Flashcards and study
// plans are requested in JSON response mode and decoded into domain types;
// summaries and tutor replies are plain text.
//
// Calls are retried with exponential backoff on transient failures. A
// response blocked by safety filters or one that cannot be parsed is
// permanent and returned immediately.
package gemini
