// Package testdb provisions a PostgreSQL database for integration tests.
//
// Tests run each case in a transaction that is rolled back when the case
// finishes, so cases can share one database and run in parallel:
//
//	db := testdb.Open(t)
//	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//		cards := postgres.NewPostgresCardStore(tx, nil)
//		// ...
//	})
//
// The database comes from STUDYKIT_TEST_DATABASE_URL when set. Otherwise a
// disposable postgres container is started with testcontainers. Tests are
// skipped when neither is available. Every helper is behind the integration
// build tag.
package testdb
