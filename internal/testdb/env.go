//go:build integration

package testdb

import "os"

// DatabaseURLEnv names the variable holding the test database URL.
const DatabaseURLEnv = "QUESTBOARD_TEST_DATABASE_URL"

// GetTestDatabaseURL returns the configured test database URL, or "".
func GetTestDatabaseURL() string {
	return os.Getenv(DatabaseURLEnv)
}

// ShouldSkipDatabaseTest reports whether no test database is configured.
func ShouldSkipDatabaseTest() bool {
	return GetTestDatabaseURL() == ""
}
