//go:build !sqlite

package storage

import "fmt"

// Default builds leave the sqlite driver out to keep the binary small;
// the factory still accepts the kind and reports how to enable it.
func newSQLiteStore(_ string) (Store, error) {
	return nil, fmt.Errorf("sqlite backend unavailable in this build; rebuild with -tags sqlite")
}
