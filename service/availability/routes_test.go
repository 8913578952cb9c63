package availability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func TestCreateBulkSlotsRejectsInvalidExpertID(t *testing.T) {
	handler := NewAvailabilityHandler(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/experts/abc/availability/bulk",
		strings.NewReader(`{"date":"2024-06-03","start_time":"09:00","end_time":"11:00","slot_duration":60}`))
	req = mux.SetURLVars(req, map[string]string{"expertId": "abc"})
	rec := httptest.NewRecorder()

	handler.CreateBulkSlots(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBulkSlotsRejectsInvalidBody(t *testing.T) {
	handler := NewAvailabilityHandler(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/experts/1/availability/bulk", strings.NewReader("{not json"))
	req = mux.SetURLVars(req, map[string]string{"expertId": "1"})
	rec := httptest.NewRecorder()

	handler.CreateBulkSlots(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBulkSlotsRejectsBadDate(t *testing.T) {
	handler := NewAvailabilityHandler(nil, nil)

	cases := []struct {
		name string
		date string
	}{
		{"wrong format", "03/06/2024"},
		{"empty", ""},
		{"garbage", "not-a-date"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/experts/1/availability/bulk",
				strings.NewReader(`{"date":"`+tc.date+`","start_time":"09:00","end_time":"11:00","slot_duration":60}`))
			req = mux.SetURLVars(req, map[string]string{"expertId": "1"})
			rec := httptest.NewRecorder()

			handler.CreateBulkSlots(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
