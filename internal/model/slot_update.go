package model

import "time"

// SlotUpdate is one row of the slot_updates audit table.  It records what a
// single /updateSlot run did to the table service: the quantity it read,
// the quantity it wrote (or tried to), and the stage it stopped at.
// FailedStage is empty when every stage succeeded.
type SlotUpdate struct {
	ID          uint64    `json:"id"`
	RequestID   string    `json:"request_id"`
	TableID     string    `json:"table_id"`
	RowID       string    `json:"row_id"`
	PreviousQty int64     `json:"previous_qty"`
	NewQty      int64     `json:"new_qty"`
	FailedStage string    `json:"failed_stage,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
