package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/iliyamo/volunteer-slot-sync/internal/model"
	"github.com/iliyamo/volunteer-slot-sync/internal/slot"
)

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

const createSlotUpdates = `
CREATE TABLE IF NOT EXISTS slot_updates (
    id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
    request_id   VARCHAR(64)     NOT NULL,
    table_id     VARCHAR(64)     NOT NULL,
    row_id       VARCHAR(64)     NOT NULL,
    previous_qty BIGINT          NOT NULL,
    new_qty      BIGINT          NOT NULL,
    failed_stage VARCHAR(32)     NOT NULL DEFAULT '',
    error        TEXT            NULL,
    created_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY uq_slot_updates_request (request_id),
    KEY idx_slot_updates_row (table_id, row_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// SlotUpdateRepo provides data access to the slot_updates audit table.
type SlotUpdateRepo struct {
	db *sql.DB
}

// NewSlotUpdateRepo returns a new SlotUpdateRepo bound to the provided database.
func NewSlotUpdateRepo(db *sql.DB) *SlotUpdateRepo { return &SlotUpdateRepo{db: db} }

// EnsureSchema creates the audit table if it does not exist yet.
func (r *SlotUpdateRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSlotUpdates); err != nil {
		return fmt.Errorf("create slot_updates: %w", err)
	}
	return nil
}

// Create inserts u and fills in its ID.  A duplicate request id yields
// ErrConflict.
func (r *SlotUpdateRepo) Create(ctx context.Context, u *model.SlotUpdate) error {
	var errText sql.NullString
	if u.Error != "" {
		errText = sql.NullString{String: u.Error, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO slot_updates (request_id, table_id, row_id, previous_qty, new_qty, failed_stage, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.RequestID, u.TableID, u.RowID, u.PreviousQty, u.NewQty, u.FailedStage, errText,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrConflict
		}
		return fmt.Errorf("insert slot_update: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert slot_update id: %w", err)
	}
	u.ID = uint64(id)
	return nil
}

// ListByRow returns the latest audit entries for one row, newest first.
func (r *SlotUpdateRepo) ListByRow(ctx context.Context, tableID, rowID string, limit int) ([]model.SlotUpdate, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, request_id, table_id, row_id, previous_qty, new_qty, failed_stage, error, created_at
		   FROM slot_updates
		  WHERE table_id = ? AND row_id = ?
		  ORDER BY created_at DESC, id DESC
		  LIMIT ?`,
		tableID, rowID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SlotUpdate
	for rows.Next() {
		var u model.SlotUpdate
		var errText sql.NullString
		if err := rows.Scan(&u.ID, &u.RequestID, &u.TableID, &u.RowID, &u.PreviousQty, &u.NewQty, &u.FailedStage, &errText, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Error = errText.String
		out = append(out, u)
	}
	return out, rows.Err()
}

// Record implements slot.Recorder.
func (r *SlotUpdateRepo) Record(ctx context.Context, out slot.Outcome) error {
	u := FromOutcome(out)
	if u.RequestID == "" {
		u.RequestID = uuid.NewString()
	}
	return r.Create(ctx, &u)
}

// FromOutcome maps a pipeline outcome onto its audit row.
func FromOutcome(out slot.Outcome) model.SlotUpdate {
	u := model.SlotUpdate{
		RequestID:   out.RequestID,
		TableID:     out.TableID,
		RowID:       out.RowID,
		PreviousQty: out.Previous,
		NewQty:      out.Quantity,
	}
	if !out.Succeeded() {
		u.FailedStage = out.FailedAt.String()
	}
	if out.Err != nil {
		u.Error = out.Err.Error()
	}
	return u
}
