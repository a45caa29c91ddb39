package slot

// Stage names a step of the update pipeline.  An Outcome records the stage
// at which the pipeline stopped; StageNone means it ran to completion.
type Stage int

const (
	StageNone Stage = iota
	StageLock
	StageFetchRow
	StageUpdateCell
	StagePublish
)

func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageLock:
		return "lock"
	case StageFetchRow:
		return "fetch_row"
	case StageUpdateCell:
		return "update_cell"
	case StagePublish:
		return "publish"
	}
	return "unknown"
}

// Request identifies one decrement.
type Request struct {
	RowID     string
	RequestID string
}

// Outcome is the tagged result of one pipeline run.  Previous is the value
// read from the quantity cell and Quantity the value written (or attempted)
// back; both are zero when the run stopped before the row was read.
type Outcome struct {
	RequestID string
	TableID   string
	RowID     string
	Previous  int64
	Quantity  int64
	FailedAt  Stage
	Err       error
}

// Succeeded reports whether every stage completed.
func (o Outcome) Succeeded() bool { return o.FailedAt == StageNone }

// CellWritten reports whether the new quantity reached the table, published
// or not.
func (o Outcome) CellWritten() bool {
	return o.FailedAt == StageNone || o.FailedAt == StagePublish
}
