package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate adds a pessimistic FOR UPDATE row lock to the query. Money- and
// stock-mutating sequences read the rows they are about to change through
// this so concurrent writers serialize on the row instead of racing the
// conditional UPDATE. SQLite has a single writer and no FOR UPDATE syntax,
// so the clause only applies on Postgres.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx == nil || tx.Dialector == nil || tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
