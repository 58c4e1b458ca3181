// Package db provides database utilities shared by the catalog
// repositories: transaction propagation through context and common
// query scopes.
package db

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TransactionManager runs multi-repository catalog mutations in one
// transaction. The registry swap at cutover and the migration enqueue
// both depend on it: tenant and job rows must change together or not
// at all.
type TransactionManager struct {
	db *gorm.DB
}

// NewTransactionManager creates a transaction manager over the catalog
// database handle.
func NewTransactionManager(db *gorm.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// RunInTransaction executes fn inside a transaction. The transaction
// rides the context fn receives, so repository calls made with it join
// the same transaction; fn returning an error rolls everything back.
func (tm *TransactionManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// GetTxFromContext returns the transaction carried by the context, or
// defaultDB bound to the context when the caller runs outside one.
// Repositories route every query through this so they work the same
// inside and outside RunInTransaction.
func GetTxFromContext(ctx context.Context, defaultDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return defaultDB.WithContext(ctx)
}
