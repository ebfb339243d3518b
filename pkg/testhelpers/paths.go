package testhelpers

import (
	"path/filepath"
	"runtime"
)

// migrationsPath resolves the migrations directory relative to this source
// file, so integration tests find it regardless of which package they run
// from.
func migrationsPath() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations")
}
