package appointment

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Arnack/wisely-2/cmd/utils"
	"github.com/Arnack/wisely-2/service/ws"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func bookingRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/appointments/book", strings.NewReader(body))
	return utils.WithUserID(req, 1)
}

func TestBookAppointmentRequiresAuth(t *testing.T) {
	handler := NewAppointmentHandler(nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/appointments/book",
		strings.NewReader(`{"availability_slot_id":1,"title":"Portfolio review"}`))
	rec := httptest.NewRecorder()

	handler.BookAppointment(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookAppointmentRejectsInvalidBody(t *testing.T) {
	handler := NewAppointmentHandler(nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/appointments/book", strings.NewReader("{not json"))
	req = utils.WithUserID(req, 1)
	rec := httptest.NewRecorder()

	handler.BookAppointment(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookAppointmentRejectsMissingTitle(t *testing.T) {
	handler := NewAppointmentHandler(nil, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"absent", `{"availability_slot_id":1}`},
		{"empty", `{"availability_slot_id":1,"title":""}`},
		{"whitespace only", `{"availability_slot_id":1,"title":"   "}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/appointments/book", strings.NewReader(tc.body))
			req = utils.WithUserID(req, 1)
			rec := httptest.NewRecorder()

			handler.BookAppointment(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

// A slot already marked booked is rejected with 409 before any write. The
// mock has no update or insert expectations, so any write attempt would fail
// the request and the expectation check.
func TestBookAppointmentRejectsBookedSlotBeforeWrite(t *testing.T) {
	db, mock := newMockDB(t)
	handler := NewAppointmentHandler(db, ws.NewHub(), nil)

	start := time.Now().Add(24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "availability_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "expert_id", "start_time", "end_time", "is_booked"}).
			AddRow(5, 2, start, start.Add(time.Hour), true))
	mock.ExpectRollback()

	rec := httptest.NewRecorder()
	handler.BookAppointment(rec, bookingRequest(t, `{"availability_slot_id":5,"title":"Portfolio review"}`))

	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Losing the race for a slot shows up as a zero-row conditional update; the
// booking must abort with 409 and roll back instead of inserting an
// appointment against a consumed slot.
func TestBookAppointmentAbortsWhenSlotClaimLoses(t *testing.T) {
	db, mock := newMockDB(t)
	handler := NewAppointmentHandler(db, ws.NewHub(), nil)

	start := time.Now().Add(24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "availability_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "expert_id", "start_time", "end_time", "is_booked"}).
			AddRow(5, 2, start, start.Add(time.Hour), false))
	mock.ExpectExec(`UPDATE "availability_slots" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	rec := httptest.NewRecorder()
	handler.BookAppointment(rec, bookingRequest(t, `{"availability_slot_id":5,"title":"Portfolio review"}`))

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "no longer available")
	require.NoError(t, mock.ExpectationsWereMet())
}

// A one-row claim update completes the booking. The post-commit reload comes
// back without its user rows here; the handler must still answer 201 and skip
// the notification side effects rather than dereferencing a missing user.
func TestBookAppointmentClaimsSlotAndSurvivesMissingUserRows(t *testing.T) {
	db, mock := newMockDB(t)
	handler := NewAppointmentHandler(db, ws.NewHub(), nil)

	start := time.Now().Add(24 * time.Hour)
	mock.MatchExpectationsInOrder(false)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "availability_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "expert_id", "start_time", "end_time", "is_booked"}).
			AddRow(5, 2, start, start.Add(time.Hour), false))
	mock.ExpectExec(`UPDATE "availability_slots" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "appointments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT (.+) FROM "appointments"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expert_id", "availability_slot_id", "title", "status", "scheduled_at", "duration_minutes"}).
			AddRow(7, 1, 2, 5, "Portfolio review", "pending", start, 60))
	mock.ExpectQuery(`SELECT (.+) FROM "expert_profiles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := httptest.NewRecorder()
	handler.BookAppointment(rec, bookingRequest(t, `{"availability_slot_id":5,"title":"Portfolio review"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookAppointmentRejectsMissingSlot(t *testing.T) {
	handler := NewAppointmentHandler(nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/appointments/book",
		strings.NewReader(`{"title":"Portfolio review"}`))
	req = utils.WithUserID(req, 1)
	rec := httptest.NewRecorder()

	handler.BookAppointment(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
