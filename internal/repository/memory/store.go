// Package memory is an in-process document store with the same transaction
// and compare-and-swap semantics as the PostgreSQL repositories. It backs the
// test environment and local development without a database.
package memory

import (
	"context"
	"sync"

	models "coipond/internal/domain/models/blueprint"
	"coipond/internal/domain/repositories"
)

// Store holds blueprints and ledgers. Transactions take the store lock for
// their whole duration and stage writes in an overlay that is applied on commit.
type Store struct {
	mu         sync.Mutex
	blueprints map[string]*models.Blueprint
	ledgers    map[string]*models.VersionLedger
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		blueprints: make(map[string]*models.Blueprint),
		ledgers:    make(map[string]*models.VersionLedger),
	}
}

// Blueprints returns the blueprint repository view of the store
func (s *Store) Blueprints() *BlueprintRepository {
	return &BlueprintRepository{store: s}
}

// Ledgers returns the ledger repository view of the store
func (s *Store) Ledgers() *LedgerRepository {
	return &LedgerRepository{store: s}
}

// TransactionManager returns the store as a repositories.TransactionManager
func (s *Store) TransactionManager() repositories.TransactionManager {
	return s
}

type txKeyType struct{}

var txKey txKeyType

// overlay holds a transaction's uncommitted writes. A nil value marks a delete.
type overlay struct {
	store      *Store
	blueprints map[string]*models.Blueprint
	ledgers    map[string]*models.VersionLedger
}

// ExecTx runs fn with the store locked. Writes made through the transaction
// context are visible to later reads in fn and are applied only if fn succeeds.
// Nested calls join the outer transaction.
func (s *Store) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if tx := s.txFrom(ctx); tx != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &overlay{
		store:      s,
		blueprints: make(map[string]*models.Blueprint),
		ledgers:    make(map[string]*models.VersionLedger),
	}
	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		return err
	}

	for id, bp := range tx.blueprints {
		if bp == nil {
			delete(s.blueprints, id)
		} else {
			s.blueprints[id] = bp
		}
	}
	for id, l := range tx.ledgers {
		if l == nil {
			delete(s.ledgers, id)
		} else {
			s.ledgers[id] = l
		}
	}
	return nil
}

func (s *Store) txFrom(ctx context.Context) *overlay {
	tx, ok := ctx.Value(txKey).(*overlay)
	if !ok || tx.store != s {
		return nil
	}
	return tx
}

// state is the read/write surface a repository call works against: the
// committed maps, or a transaction overlay on top of them.
type state interface {
	blueprint(id string) (*models.Blueprint, bool)
	putBlueprint(bp *models.Blueprint)
	deleteBlueprint(id string)
	ledger(id string) (*models.VersionLedger, bool)
	putLedger(l *models.VersionLedger)
	deleteLedger(id string)
}

// run executes op against the transaction in ctx, or against the committed
// state under the store lock when there is none.
func (s *Store) run(ctx context.Context, op func(st state) error) error {
	if tx := s.txFrom(ctx); tx != nil {
		return op(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return op(committed{s})
}

type committed struct{ s *Store }

func (c committed) blueprint(id string) (*models.Blueprint, bool) {
	bp, ok := c.s.blueprints[id]
	return bp, ok
}
func (c committed) putBlueprint(bp *models.Blueprint) { c.s.blueprints[bp.ID] = bp }
func (c committed) deleteBlueprint(id string)         { delete(c.s.blueprints, id) }
func (c committed) ledger(id string) (*models.VersionLedger, bool) {
	l, ok := c.s.ledgers[id]
	return l, ok
}
func (c committed) putLedger(l *models.VersionLedger) { c.s.ledgers[l.BlueprintID] = l }
func (c committed) deleteLedger(id string)            { delete(c.s.ledgers, id) }

func (o *overlay) blueprint(id string) (*models.Blueprint, bool) {
	if bp, staged := o.blueprints[id]; staged {
		return bp, bp != nil
	}
	bp, ok := o.store.blueprints[id]
	return bp, ok
}
func (o *overlay) putBlueprint(bp *models.Blueprint) { o.blueprints[bp.ID] = bp }
func (o *overlay) deleteBlueprint(id string)         { o.blueprints[id] = nil }
func (o *overlay) ledger(id string) (*models.VersionLedger, bool) {
	if l, staged := o.ledgers[id]; staged {
		return l, l != nil
	}
	l, ok := o.store.ledgers[id]
	return l, ok
}
func (o *overlay) putLedger(l *models.VersionLedger) { o.ledgers[l.BlueprintID] = l }
func (o *overlay) deleteLedger(id string)            { o.ledgers[id] = nil }
