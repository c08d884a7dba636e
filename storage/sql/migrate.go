package sql

import (
	_ "embed"

	"github.com/sharingcloud/prbot/prerr"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the storage schema, creating any table that does not
// already exist. It is safe to run repeatedly.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return prerr.Config("apply storage schema", err)
	}
	return nil
}
