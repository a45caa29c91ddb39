package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/volunteer-slot-sync/internal/logging"
	"github.com/iliyamo/volunteer-slot-sync/internal/slot"
)

type stubSlots struct {
	out  slot.Outcome
	reqs []slot.Request
}

func (s *stubSlots) Decrement(_ context.Context, req slot.Request) slot.Outcome {
	s.reqs = append(s.reqs, req)
	out := s.out
	out.RowID = req.RowID
	return out
}

func serve(h echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = h(c)
	return rec
}

func TestUpdateSlot_OutcomeMapping(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name string
		out  slot.Outcome
		code int
		body string
	}{
		{"success", slot.Outcome{Previous: 4, Quantity: 3}, http.StatusOK, "Row ID 42 updated successfully to 3 and table was published."},
		{"fetch", slot.Outcome{FailedAt: slot.StageFetchRow, Err: boom}, http.StatusNotFound, "Cannot find row ID 42"},
		{"update", slot.Outcome{Previous: 4, Quantity: 3, FailedAt: slot.StageUpdateCell, Err: boom}, http.StatusNotFound, "Cannot update row ID 42 with value 3"},
		{"publish", slot.Outcome{Previous: 4, Quantity: 3, FailedAt: slot.StagePublish, Err: boom}, http.StatusInternalServerError, "Row ID 42 updated successfully to 3 but table was NOT able to be published!"},
		{"lock", slot.Outcome{FailedAt: slot.StageLock, Err: boom}, http.StatusConflict, "Row ID 42 is being updated, please retry."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubSlots{out: tc.out}
			h := NewSlotHandler(stub, logging.Discard())

			rec := serve(h.UpdateSlot, http.MethodPost, "/updateSlot", `{"properties":{"volunteer_slot_date_time_id":{"value":42}}}`)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.body, rec.Body.String())
			require.Len(t, stub.reqs, 1)
			assert.Equal(t, "42", stub.reqs[0].RowID)
		})
	}
}

func TestUpdateSlot_ValidationStopsBeforeService(t *testing.T) {
	cases := []struct {
		method string
		body   string
		want   string
	}{
		{http.MethodGet, `{"properties":{"volunteer_slot_date_time_id":{"value":42}}}`, "Please send a POST request."},
		{http.MethodDelete, ``, "Please send a POST request."},
		{http.MethodPost, `not json`, "No time slot id found."},
		{http.MethodPost, `{"properties":{}}`, "No time slot id found."},
		{http.MethodPost, `{"properties":{"volunteer_slot_date_time_id":{"value":0}}}`, "No time slot id defined."},
		{http.MethodPost, `{"properties":{"volunteer_slot_date_time_id":{"value":null}}}`, "No time slot id defined."},
	}
	for _, tc := range cases {
		stub := &stubSlots{}
		h := NewSlotHandler(stub, logging.Discard())

		rec := serve(h.UpdateSlot, tc.method, "/updateSlot", tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.body)
		assert.Equal(t, tc.want, rec.Body.String())
		assert.Empty(t, stub.reqs, "service must not run for %q", tc.body)
	}
}

func TestUpdateSlot_PassesRequestID(t *testing.T) {
	stub := &stubSlots{}
	h := NewSlotHandler(stub, logging.Discard())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/updateSlot", strings.NewReader(`{"properties":{"volunteer_slot_date_time_id":{"value":"7"}}}`))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Response().Header().Set(echo.HeaderXRequestID, "req-abc")
	require.NoError(t, h.UpdateSlot(c))

	require.Len(t, stub.reqs, 1)
	assert.Equal(t, slot.Request{RowID: "7", RequestID: "req-abc"}, stub.reqs[0])
}

func TestNewSlotHandler_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewSlotHandler(nil, nil) })
}

func TestPing(t *testing.T) {
	rec := serve(Ping, http.MethodDelete, "/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var def map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &def))
	assert.Equal(t, DefaultPingMessage, def["request"])

	rec = serve(Ping, http.MethodGet, "/ping?myvar=abc&empty=", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var echoed map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &echoed))
	assert.Equal(t, map[string]any{"myvar": "abc", "empty": ""}, echoed["request"])
}

func TestHealth(t *testing.T) {
	rec := serve(Health, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
