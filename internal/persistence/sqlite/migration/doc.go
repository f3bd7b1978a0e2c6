// Package migration manages SQLite connection configuration and the ordered
// schema history of the maintenance scheduler database. Migrations are
// embedded in the binary and applied once each, tracked through the
// schema_migrations table.
package migration
