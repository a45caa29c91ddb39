package slot

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/volunteer-slot-sync/internal/hubdb"
	"github.com/iliyamo/volunteer-slot-sync/internal/logging"
)

type fakeTable struct {
	mu         sync.Mutex
	qty        map[string]int64
	getErr     error
	updateErr  error
	publishErr error
	writes     []int64
	publishes  int
}

func (f *fakeTable) GetRow(ctx context.Context, rowID string) (*hubdb.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	q, ok := f.qty[rowID]
	if !ok {
		return nil, &hubdb.APIError{Method: "GET", Path: "/rows/" + rowID, StatusCode: 404}
	}
	b, _ := json.Marshal(q)
	return &hubdb.Row{Values: map[string]json.RawMessage{"1": b}}, nil
}

func (f *fakeTable) UpdateCell(ctx context.Context, rowID, cellID string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	v := value.(int64)
	f.writes = append(f.writes, v)
	f.qty[rowID] = v
	return nil
}

func (f *fakeTable) PublishTable(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.publishes++
	return nil
}

type captureRecorder struct{ outs []Outcome }

func (c *captureRecorder) Record(_ context.Context, out Outcome) error {
	c.outs = append(c.outs, out)
	return nil
}

type captureNotifier struct {
	outs []Outcome
	err  error
}

func (c *captureNotifier) SlotUpdated(_ context.Context, out Outcome) error {
	c.outs = append(c.outs, out)
	return c.err
}

type busyLocker struct{ err error }

func (b busyLocker) Acquire(context.Context, string) (func(), error) { return nil, b.err }

type countingLocker struct {
	keys     []string
	released int
}

func (c *countingLocker) Acquire(_ context.Context, key string) (func(), error) {
	c.keys = append(c.keys, key)
	return func() { c.released++ }, nil
}

func newService(table TableService, opts Options) *Service {
	opts.TableID = "777"
	opts.Logger = logging.Discard()
	return NewService(table, opts)
}

func TestDecrement_Success(t *testing.T) {
	table := &fakeTable{qty: map[string]int64{"42": 4}}
	rec := &captureRecorder{}
	note := &captureNotifier{}
	svc := newService(table, Options{Recorder: rec, Notifier: note})

	out := svc.Decrement(context.Background(), Request{RowID: "42", RequestID: "req-1"})

	require.True(t, out.Succeeded())
	assert.Equal(t, int64(4), out.Previous)
	assert.Equal(t, int64(3), out.Quantity)
	assert.Equal(t, "777", out.TableID)
	assert.Equal(t, []int64{3}, table.writes)
	assert.Equal(t, 1, table.publishes)
	require.Len(t, rec.outs, 1)
	assert.Equal(t, "req-1", rec.outs[0].RequestID)
	require.Len(t, note.outs, 1)
}

func TestDecrement_FetchFails(t *testing.T) {
	table := &fakeTable{qty: map[string]int64{}}
	note := &captureNotifier{}
	svc := newService(table, Options{Notifier: note})

	out := svc.Decrement(context.Background(), Request{RowID: "42"})

	assert.Equal(t, StageFetchRow, out.FailedAt)
	assert.True(t, errors.Is(out.Err, hubdb.ErrNotFound))
	assert.Empty(t, table.writes)
	assert.Zero(t, table.publishes)
	assert.Empty(t, note.outs)
}

func TestDecrement_MalformedQuantity(t *testing.T) {
	table := &fakeTable{qty: map[string]int64{"42": 4}}
	svc := newService(table, Options{QtyCellID: "9"})

	out := svc.Decrement(context.Background(), Request{RowID: "42"})

	assert.Equal(t, StageFetchRow, out.FailedAt)
	assert.True(t, errors.Is(out.Err, hubdb.ErrMalformedRow))
}

func TestDecrement_UpdateFails(t *testing.T) {
	table := &fakeTable{qty: map[string]int64{"42": 4}, updateErr: errors.New("boom")}
	note := &captureNotifier{}
	svc := newService(table, Options{Notifier: note})

	out := svc.Decrement(context.Background(), Request{RowID: "42"})

	assert.Equal(t, StageUpdateCell, out.FailedAt)
	assert.Equal(t, int64(3), out.Quantity)
	assert.False(t, out.CellWritten())
	assert.Zero(t, table.publishes)
	assert.Empty(t, note.outs)
}

func TestDecrement_PublishFails(t *testing.T) {
	table := &fakeTable{qty: map[string]int64{"42": 4}, publishErr: errors.New("publish down")}
	note := &captureNotifier{}
	svc := newService(table, Options{Notifier: note})

	out := svc.Decrement(context.Background(), Request{RowID: "42"})

	assert.Equal(t, StagePublish, out.FailedAt)
	assert.Equal(t, int64(3), out.Quantity)
	assert.True(t, out.CellWritten())
	assert.Equal(t, int64(3), table.qty["42"])
	require.Len(t, note.outs, 1)
}

func TestDecrement_NotifierErrorDoesNotChangeOutcome(t *testing.T) {
	table := &fakeTable{qty: map[string]int64{"42": 4}}
	svc := newService(table, Options{Notifier: &captureNotifier{err: errors.New("broker down")}})

	out := svc.Decrement(context.Background(), Request{RowID: "42"})
	assert.True(t, out.Succeeded())
}

func TestDecrement_LockHeld(t *testing.T) {
	table := &fakeTable{qty: map[string]int64{"42": 4}}
	rec := &captureRecorder{}
	lockErr := errors.New("locked")
	svc := newService(table, Options{Locker: busyLocker{err: lockErr}, Recorder: rec})

	out := svc.Decrement(context.Background(), Request{RowID: "42"})

	assert.Equal(t, StageLock, out.FailedAt)
	assert.ErrorIs(t, out.Err, lockErr)
	assert.Empty(t, table.writes)
	require.Len(t, rec.outs, 1)
}

func TestDecrement_LockKeyAndRelease(t *testing.T) {
	table := &fakeTable{qty: map[string]int64{"42": 4}}
	locker := &countingLocker{}
	svc := newService(table, Options{Locker: locker})

	out := svc.Decrement(context.Background(), Request{RowID: "42"})

	require.True(t, out.Succeeded())
	assert.Equal(t, []string{"777:42"}, locker.keys)
	assert.Equal(t, 1, locker.released)
}

func TestDecrement_ZeroGoesNegative(t *testing.T) {
	table := &fakeTable{qty: map[string]int64{"42": 0}}
	svc := newService(table, Options{})

	out := svc.Decrement(context.Background(), Request{RowID: "42"})
	require.True(t, out.Succeeded())
	assert.Equal(t, int64(-1), out.Quantity)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "fetch_row", StageFetchRow.String())
	assert.Equal(t, "update_cell", StageUpdateCell.String())
	assert.Equal(t, "publish", StagePublish.String())
	assert.Equal(t, "lock", StageLock.String())
	assert.Equal(t, "none", StageNone.String())
	assert.Equal(t, "unknown", Stage(99).String())
}
