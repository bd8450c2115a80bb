// Package service contains the application use cases. Each subpackage
// coordinates domain logic, stores and external providers for one area:
//
//   - auth: registration, login and JWT issuance
//   - card: flashcard management and AI generation
//   - review: spaced repetition scheduling and progress
//   - tutor: AI chat, note summaries and study plans
//   - usage: entitlement checks and usage metering for premium features
//
// Services receive their dependencies through constructors and depend on the
// store interfaces, never on a specific database.
package service
