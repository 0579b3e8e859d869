// Package postgres implements the persisted-state repositories over
// gorm.io/gorm and gorm.io/driver/postgres, grounded on
// harrybui03-transcode-video-worker/repository/repo.go's gorm.Open/
// Transaction shape from the retrieval pack (the teacher itself persists
// to Redis; this service's data model needs a relational store per
// SPEC_FULL.md's DOMAIN STACK, so the gorm pattern is adopted from that
// repo instead).
package postgres

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"conference/internal/core/domain"
)

type txKey struct{}

// UnitOfWork implements ports.UnitOfWork by running fn inside a gorm
// transaction and stashing the transactional *gorm.DB on ctx, so every
// repository call made from within fn sees the same transaction.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFrom returns the transactional handle stashed by UnitOfWork if present,
// otherwise a plain WithContext handle on base for standalone reads.
func dbFrom(ctx context.Context, base *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return base.WithContext(ctx)
}

func wrapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if err == gorm.ErrRecordNotFound || err == sql.ErrNoRows {
		return nil
	}
	return err
}

func wrapQueryErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	return domain.WrapError(domain.ErrDatabaseQueryFailed, msg, err)
}
