package call

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Arnack/wisely-2/cmd/utils"
	"github.com/stretchr/testify/require"
)

func TestIssueTokenRequiresAuth(t *testing.T) {
	handler := NewCallHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/calls/token",
		strings.NewReader(`{"roomName":"demo","participantName":"Ada","participantIdentity":"user-1"}`))
	rec := httptest.NewRecorder()

	handler.IssueToken(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIssueTokenRejectsInvalidBody(t *testing.T) {
	handler := NewCallHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/calls/token", strings.NewReader("{not json"))
	req = utils.WithUserID(req, 1)
	rec := httptest.NewRecorder()

	handler.IssueToken(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIssueTokenRejectsMissingParameters(t *testing.T) {
	handler := NewCallHandler(nil)

	cases := []struct {
		name string
		body string
	}{
		{"no room", `{"participantName":"Ada","participantIdentity":"user-1"}`},
		{"no name", `{"roomName":"demo","participantIdentity":"user-1"}`},
		{"no identity", `{"roomName":"demo","participantName":"Ada"}`},
		{"empty", `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/calls/token", strings.NewReader(tc.body))
			req = utils.WithUserID(req, 1)
			rec := httptest.NewRecorder()

			handler.IssueToken(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCheckAccessRequiresAuth(t *testing.T) {
	handler := NewCallHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/calls/appointment-1/access", nil)
	rec := httptest.NewRecorder()

	handler.CheckAccess(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
