// Package mocks provides shared mock implementations for tests.
//
// Stores are testify mocks; WithTx returns the mock itself unless a different
// store was configured, so transactional code paths hit the same
// expectations:
//
//	users := &mocks.UserStore{}
//	users.On("GetByID", mock.Anything, id).Return(user, nil)
//
// MockGenerator uses function fields and records the calls made to it.
package mocks
