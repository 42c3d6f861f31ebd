package models

import (
	"context"

	"gorm.io/gorm"
)

// Write-batch caps. Import runs flush at 400 ops; sync write-backs use the
// slightly higher 450 cap since their ops are single-row updates.
const (
	ImportBatchCap = 400
	SyncBatchCap   = 450
)

// BatchWriter accumulates write operations and commits them in fixed-size
// transactions. Add flushes automatically when the cap is reached; callers
// must call Flush once at the end for the remainder.
type BatchWriter struct {
	db      *gorm.DB
	ctx     context.Context
	cap     int
	ops     []func(tx *gorm.DB) error
	flushes int
	total   int
}

func NewBatchWriter(ctx context.Context, db *gorm.DB, cap int) *BatchWriter {
	if cap <= 0 {
		cap = ImportBatchCap
	}
	return &BatchWriter{
		db:  db,
		ctx: ctx,
		cap: cap,
	}
}

func (b *BatchWriter) Add(op func(tx *gorm.DB) error) error {
	b.ops = append(b.ops, op)
	b.total++
	if len(b.ops) >= b.cap {
		return b.Flush()
	}
	return nil
}

// Flush commits all pending ops in one transaction. A failed op rolls back
// the whole batch.
func (b *BatchWriter) Flush() error {
	if len(b.ops) == 0 {
		return nil
	}
	ops := b.ops
	b.ops = nil
	err := b.db.WithContext(b.ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if err := op(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.flushes++
	return nil
}

// Pending is the count of ops not yet committed.
func (b *BatchWriter) Pending() int {
	return len(b.ops)
}

// Flushes is the number of committed transactions so far.
func (b *BatchWriter) Flushes() int {
	return b.flushes
}

// Total is the number of ops ever added.
func (b *BatchWriter) Total() int {
	return b.total
}
