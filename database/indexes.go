package database

import (
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dinein-app/utils"
	"gorm.io/gorm"
)

type indexStatement struct {
	name string
	sql  string
}

// openSessionIndexes guarantee at most one waiting/active session per table
// at the storage level. MySQL has no partial indexes; there the per-table
// lock in the session manager is the only guard.
var openSessionIndexes = map[string][]indexStatement{
	"sqlite": {
		{
			name: "idx_table_sessions_one_open",
			sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_table_sessions_one_open
				ON table_sessions (table_id) WHERE status IN ('waiting', 'active')`,
		},
	},
	"postgres": {
		{
			name: "idx_table_sessions_one_open",
			sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_table_sessions_one_open
				ON table_sessions (table_id) WHERE status IN ('waiting', 'active')`,
		},
	},
}

// EnsureIndexes executes the dialect specific DDL. Failures are logged and
// the first one is returned after every statement has been attempted.
func EnsureIndexes(db *gorm.DB) error {
	dialect := db.Dialector.Name()
	statements, ok := openSessionIndexes[dialect]
	if !ok {
		utils.InfoLogger.WithField("dialect", dialect).Warn("no partial index support, relying on session locks")
		return nil
	}

	var firstErr error
	for _, stmt := range statements {
		if err := db.Exec(stmt.sql).Error; err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"index": stmt.name,
				"error": err,
			}).Error("Error creating index")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		utils.InfoLogger.WithField("index", stmt.name).Info("Index verified")
	}
	return firstErr
}
