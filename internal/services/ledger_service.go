package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budget/internal/core"
	"budget/internal/events"
	"budget/internal/importer"
	"budget/internal/log"
	"budget/internal/storage"
)

// LedgerService is the write path. It normalizes and validates input, stores
// it, then publishes an event once the write has committed.
type LedgerService struct {
	store     *storage.Store
	publisher events.Publisher
	logger    *log.StructuredLogger
	now       func() time.Time
}

func NewLedgerService(store *storage.Store, publisher events.Publisher, logger *log.Logger) *LedgerService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    log.NewStructuredLogger(logger.WithComponent(log.ComponentLedger)),
		now:       time.Now,
	}
}

// AddTransaction applies kind's sign to the amount and stores the result.
func (s *LedgerService) AddTransaction(ctx context.Context, t core.Transaction, kind core.Kind) (core.Transaction, error) {
	t.Amount = kind.Normalize(t.Amount)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	id, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id

	s.logger.LogTransactionCreated(ctx, id, t.Description, t.Amount.Cents, t.Category, t.PassThrough)
	s.publish(ctx, events.New(events.TransactionCreated, id, t.Amount, t.Category))
	return t, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.New(events.TransactionDeleted, id, t.Amount, t.Category))
	return nil
}

// ImportResult reports what a commit wrote and which rows were rejected.
type ImportResult struct {
	Imported []core.Transaction
	Failed   []importer.RowError
}

// ImportTransactions resolves the staged rows and writes every resolvable one
// in a single database transaction. Rows that fail to resolve are returned in
// the result rather than failing the batch.
func (s *LedgerService) ImportTransactions(ctx context.Context, cands []importer.Candidate, category string) (ImportResult, error) {
	txs, failed := importer.ResolveAll(cands, s.now(), category)
	result := ImportResult{Failed: failed}
	if len(txs) == 0 {
		return result, nil
	}

	ids, err := s.store.CreateTransactions(ctx, txs)
	if err != nil {
		return result, fmt.Errorf("import transactions: %w", err)
	}

	var total core.Money
	for i := range txs {
		txs[i].ID = ids[i]
		total = total.Add(txs[i].Amount)
	}
	result.Imported = txs

	s.logger.Logger().InfoContext(ctx, "Transactions imported",
		log.NewFields().
			WithOperation(log.OpImport).
			WithCount(len(txs)).
			With(log.FieldFailed, len(failed)).
			ToSlice()...)

	e := events.New(events.TransactionsImported, 0, total, txs[0].Category)
	e.Count = len(txs)
	s.publish(ctx, e)
	return result, nil
}

func (s *LedgerService) CreateRecurring(ctx context.Context, rt core.RecurringTransaction, kind core.Kind) (core.RecurringTransaction, error) {
	rt.Amount = kind.Normalize(rt.Amount)
	if err := rt.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	id, err := s.store.CreateRecurring(ctx, rt)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("save recurring: %w", err)
	}
	rt.ID = id
	s.publish(ctx, events.New(events.RecurringCreated, id, rt.Amount, rt.Category))
	return rt, nil
}

func (s *LedgerService) UpdateRecurring(ctx context.Context, rt core.RecurringTransaction, kind core.Kind) error {
	rt.Amount = kind.Normalize(rt.Amount)
	if err := rt.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateRecurring(ctx, rt); err != nil {
		return err
	}
	s.publish(ctx, events.New(events.RecurringUpdated, rt.ID, rt.Amount, rt.Category))
	return nil
}

func (s *LedgerService) DeleteRecurring(ctx context.Context, id int64) error {
	rt, err := s.store.GetRecurring(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRecurring(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.New(events.RecurringDeleted, id, rt.Amount, rt.Category))
	return nil
}

func (s *LedgerService) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if p.Status == "" {
		p.Status = core.StatusActive
	}
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	id, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return core.Project{}, err
	}
	p.ID = id
	s.logChange(ctx, "Project created", log.OpCreate, id)
	return p, nil
}

func (s *LedgerService) UpdateProject(ctx context.Context, p core.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return err
	}
	s.logChange(ctx, "Project updated", log.OpUpdate, p.ID)
	return nil
}

func (s *LedgerService) DeleteProject(ctx context.Context, id int64) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logChange(ctx, "Project deleted", log.OpDelete, id)
	return nil
}

func (s *LedgerService) AddTimeEntry(ctx context.Context, te core.TimeEntry) (core.TimeEntry, error) {
	if err := te.Validate(); err != nil {
		return core.TimeEntry{}, err
	}
	id, err := s.store.CreateTimeEntry(ctx, te)
	if err != nil {
		return core.TimeEntry{}, err
	}
	te.ID = id
	return te, nil
}

// DeleteTimeEntry removes the entry and returns the project it belonged to.
func (s *LedgerService) DeleteTimeEntry(ctx context.Context, id int64) (int64, error) {
	te, err := s.store.GetTimeEntry(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := s.store.DeleteTimeEntry(ctx, id); err != nil {
		return 0, err
	}
	return te.ProjectID, nil
}

func (s *LedgerService) AddAsset(ctx context.Context, a core.Asset) (core.Asset, error) {
	if err := a.Validate(); err != nil {
		return core.Asset{}, err
	}
	id, err := s.store.CreateAsset(ctx, a)
	if err != nil {
		return core.Asset{}, err
	}
	a.ID = id
	s.logChange(ctx, "Asset created", log.OpCreate, id)
	return a, nil
}

func (s *LedgerService) DeleteAsset(ctx context.Context, id int64) error {
	if err := s.store.DeleteAsset(ctx, id); err != nil {
		return err
	}
	s.logChange(ctx, "Asset deleted", log.OpDelete, id)
	return nil
}

func (s *LedgerService) logChange(ctx context.Context, msg, op string, id int64) {
	s.logger.Logger().InfoContext(ctx, msg, log.NewFields().WithOperation(op).WithEntity(id).ToSlice()...)
}

// publish is best effort: the write has already committed.
func (s *LedgerService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Logger().LogError(ctx, "Failed to publish event", err, log.OpPublish,
			log.NewFields().With(log.FieldEventType, string(e.Type)).WithEntity(e.EntityID))
	}
}

// Close releases the publisher. The store is owned by the caller.
func (s *LedgerService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}

// IsValidation reports whether err is a malformed-input error.
func IsValidation(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount, core.ErrInvalidDate, core.ErrInvalidHours,
		core.ErrInvalidFrequency, core.ErrInvalidStatus,
		core.ErrEmptyDescription, core.ErrEmptyName, core.ErrTextTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
