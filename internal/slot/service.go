// Package slot decrements the availability counter of a volunteer slot row
// in the hosted table and publishes the table.
//
// The pipeline is Lock → FetchRow → UpdateCell → Publish.  Each stage
// either fills in the Outcome and lets the next one run or stops the run
// with the Outcome tagged by the failing stage.  Nothing is retried and a
// failed publish does not undo the cell write.
package slot

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/volunteer-slot-sync/internal/hubdb"
)

// DefaultQtyCellID is the cell holding "quantity available" in the slots
// table schema.
const DefaultQtyCellID = "1"

// sideEffectTimeout bounds audit and notification writes after the
// pipeline finished.
const sideEffectTimeout = 5 * time.Second

// TableService is the subset of the table service client the pipeline uses.
type TableService interface {
	GetRow(ctx context.Context, rowID string) (*hubdb.Row, error)
	UpdateCell(ctx context.Context, rowID, cellID string, value any) error
	PublishTable(ctx context.Context) error
}

// Locker serializes runs on the same row.  Acquire blocks until the lock is
// held or gives up with an error; the returned func releases it.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Recorder persists finished outcomes.
type Recorder interface {
	Record(ctx context.Context, out Outcome) error
}

// Notifier announces outcomes whose cell write reached the table.
type Notifier interface {
	SlotUpdated(ctx context.Context, out Outcome) error
}

// Options carries the optional collaborators of a Service.
type Options struct {
	TableID   string
	QtyCellID string
	Locker    Locker
	Recorder  Recorder
	Notifier  Notifier
	Logger    *slog.Logger
}

// Service runs the update pipeline.  It holds no per-row state; it is safe
// for concurrent use.
type Service struct {
	table    TableService
	tableID  string
	cellID   string
	locker   Locker
	recorder Recorder
	notifier Notifier
	logger   *slog.Logger
}

// NewService returns a Service writing through table.
func NewService(table TableService, opts Options) *Service {
	if table == nil {
		panic("nil table service passed to slot.NewService")
	}
	cellID := opts.QtyCellID
	if cellID == "" {
		cellID = DefaultQtyCellID
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		table:    table,
		tableID:  opts.TableID,
		cellID:   cellID,
		locker:   opts.Locker,
		recorder: opts.Recorder,
		notifier: opts.Notifier,
		logger:   logger,
	}
}

type step struct {
	stage Stage
	run   func(context.Context, *Outcome) error
}

// Decrement lowers the quantity of req.RowID by one and publishes the table.
func (s *Service) Decrement(ctx context.Context, req Request) Outcome {
	out := Outcome{RequestID: req.RequestID, TableID: s.tableID, RowID: req.RowID}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, s.tableID+":"+req.RowID)
		if err != nil {
			out.FailedAt, out.Err = StageLock, err
			s.finish(ctx, out)
			return out
		}
		defer release()
	}

	steps := []step{
		{StageFetchRow, s.fetchRow},
		{StageUpdateCell, s.updateCell},
		{StagePublish, s.publish},
	}
	for _, st := range steps {
		if err := st.run(ctx, &out); err != nil {
			out.FailedAt, out.Err = st.stage, err
			break
		}
	}
	s.finish(ctx, out)
	return out
}

func (s *Service) fetchRow(ctx context.Context, out *Outcome) error {
	row, err := s.table.GetRow(ctx, out.RowID)
	if err != nil {
		return err
	}
	qty, err := row.IntCell(s.cellID)
	if err != nil {
		return err
	}
	out.Previous = qty
	out.Quantity = qty - 1
	return nil
}

func (s *Service) updateCell(ctx context.Context, out *Outcome) error {
	return s.table.UpdateCell(ctx, out.RowID, s.cellID, out.Quantity)
}

func (s *Service) publish(ctx context.Context, _ *Outcome) error {
	return s.table.PublishTable(ctx)
}

// finish logs the outcome and hands it to the recorder and notifier.  Their
// failures are logged only; they never change the outcome.
func (s *Service) finish(ctx context.Context, out Outcome) {
	attrs := []any{"request_id", out.RequestID, "row_id", out.RowID, "previous", out.Previous, "quantity", out.Quantity}
	if out.Succeeded() {
		s.logger.Info("slot updated", attrs...)
	} else {
		s.logger.Warn("slot update failed", append(attrs, "stage", out.FailedAt.String(), "err", out.Err)...)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, out); err != nil {
			s.logger.Error("record slot outcome", "request_id", out.RequestID, "row_id", out.RowID, "err", err)
		}
	}
	if s.notifier != nil && out.CellWritten() {
		if err := s.notifier.SlotUpdated(ctx, out); err != nil {
			s.logger.Error("publish slot event", "request_id", out.RequestID, "row_id", out.RowID, "err", err)
		}
	}
}
