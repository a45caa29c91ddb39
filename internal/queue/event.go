// Package queue defines message payloads exchanged over the message broker.
package queue

// SlotUpdatedQueue is the durable queue slot events are published to.
const SlotUpdatedQueue = "slot.updated"

// SlotUpdatedEvent is published after a slot's quantity was written to the
// table.  Published is false when the write succeeded but the table could
// not be published, so consumers can flag the row for attention.
type SlotUpdatedEvent struct {
    EventID     string `json:"event_id"`
    RequestID   string `json:"request_id"`
    TableID     string `json:"table_id"`
    RowID       string `json:"row_id"`
    PreviousQty int64  `json:"previous_qty"`
    NewQty      int64  `json:"new_qty"`
    Published   bool   `json:"published"`
    UpdatedAt   string `json:"updated_at"`
}
