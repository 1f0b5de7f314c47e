package logic

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// withRowLock 行级锁（SELECT ... FOR UPDATE）
// SQLite 不支持 FOR UPDATE，其整库写锁本身已保证串行。
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
