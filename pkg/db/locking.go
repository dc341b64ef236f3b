package db

import "gorm.io/gorm"

// RowLockSuffix returns the FOR UPDATE suffix for raw queries. SQLite has a
// single writer and rejects the clause, so it is empty there.
func RowLockSuffix(tx *gorm.DB) string {
	if tx.Dialector.Name() == "sqlite" {
		return ""
	}
	return " FOR UPDATE"
}
