package handler

import (
    "context"   // context is passed to the slot service
    "fmt"       // fmt formats the plain text responses
    "io"        // io reads the request body
    "log/slog"  // slog logs rejected requests
    "net/http"  // HTTP status codes

    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/iliyamo/volunteer-slot-sync/internal/contact" // contact payload lookups
    "github.com/iliyamo/volunteer-slot-sync/internal/slot"    // update pipeline
)

// maxContactBytes caps the contact record read from the request body.
const maxContactBytes = 1 << 20

// Decrementer runs the slot update pipeline.  *slot.Service satisfies it.
type Decrementer interface {
    Decrement(ctx context.Context, req slot.Request) slot.Outcome
}

// SlotHandler serves /updateSlot.  A CRM workflow posts the full contact
// record; the handler pulls the slot row id out of it and lets the slot
// service decrement that row's quantity.
type SlotHandler struct {
    Slots  Decrementer  // pipeline against the table service
    Logger *slog.Logger // request level logging
}

// NewSlotHandler constructs a SlotHandler and panics if svc is nil.
func NewSlotHandler(svc Decrementer, logger *slog.Logger) *SlotHandler {
    if svc == nil {
        panic("nil slot service passed to NewSlotHandler")
    }
    if logger == nil {
        logger = slog.Default()
    }
    return &SlotHandler{Slots: svc, Logger: logger}
}

// UpdateSlot handles POST /updateSlot.  Every response is plain text:
//
//   400 wrong method, missing or unusable slot id
//   404 row could not be read, or the new quantity could not be written
//   409 another request is updating the same row
//   500 quantity written but the table could not be published
//   200 quantity written and table published
func (h *SlotHandler) UpdateSlot(c echo.Context) error {
    if c.Request().Method != http.MethodPost {
        return c.String(http.StatusBadRequest, "Please send a POST request.")
    }

    body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxContactBytes))
    if err != nil {
        return c.String(http.StatusBadRequest, "No time slot id found.")
    }
    rowID, status := contact.Parse(body).SlotRowID()
    switch status {
    case contact.Absent:
        h.Logger.Debug("contact without slot property", "bytes", len(body))
        return c.String(http.StatusBadRequest, "No time slot id found.")
    case contact.Invalid:
        h.Logger.Debug("contact with unusable slot id", "bytes", len(body))
        return c.String(http.StatusBadRequest, "No time slot id defined.")
    }

    out := h.Slots.Decrement(c.Request().Context(), slot.Request{
        RowID:     rowID,
        RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
    })
    code, msg := outcomeResponse(out)
    return c.String(code, msg)
}

// outcomeResponse maps a pipeline outcome to its status and message.
func outcomeResponse(out slot.Outcome) (int, string) {
    switch out.FailedAt {
    case slot.StageNone:
        return http.StatusOK, fmt.Sprintf("Row ID %s updated successfully to %d and table was published.", out.RowID, out.Quantity)
    case slot.StageLock:
        return http.StatusConflict, fmt.Sprintf("Row ID %s is being updated, please retry.", out.RowID)
    case slot.StageFetchRow:
        return http.StatusNotFound, fmt.Sprintf("Cannot find row ID %s", out.RowID)
    case slot.StageUpdateCell:
        return http.StatusNotFound, fmt.Sprintf("Cannot update row ID %s with value %d", out.RowID, out.Quantity)
    case slot.StagePublish:
        return http.StatusInternalServerError, fmt.Sprintf("Row ID %s updated successfully to %d but table was NOT able to be published!", out.RowID, out.Quantity)
    }
    return http.StatusInternalServerError, "Unexpected slot update state."
}
