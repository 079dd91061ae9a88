// Package stores provides the run-history persistence layer. It includes
// SQLite-based storage with WAL mode, embedded migrations, and CRUD
// operations for solve runs and the plan steps of their winning plans.
package stores
