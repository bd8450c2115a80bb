// Package store defines the persistence interfaces for users, cards, card
// review progress and usage counters, plus the transaction helper services use
// to group writes. Implementations live in platform/postgres.
package store
