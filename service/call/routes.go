package call

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Arnack/wisely-2/cmd/models"
	"github.com/Arnack/wisely-2/cmd/utils"
	"github.com/Arnack/wisely-2/service/scheduling"
	"github.com/gorilla/mux"
	"github.com/livekit/protocol/auth"
	"gorm.io/gorm"
)

// Access-check reason codes. The call page redirects to the appointments
// listing with one of these when a precondition fails, so they double as
// machine-readable error codes.
const (
	ReasonNotFound    = "appointment-not-found"
	ReasonDenied      = "access-denied"
	ReasonNotApproved = "appointment-not-approved"
	ReasonBadTime     = "call-time-invalid"
)

type CallHandler struct {
    db *gorm.DB
}

func NewCallHandler(db *gorm.DB) *CallHandler {
    return &CallHandler{db: db}
}

func (h *CallHandler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/calls/token", utils.AuthMiddleware(h.IssueToken)).Methods("POST")
    router.HandleFunc("/calls/{roomName}/access", utils.AuthMiddleware(h.CheckAccess)).Methods("GET")
    router.HandleFunc("/calls/{roomName}/end", utils.AuthMiddleware(h.EndCall)).Methods("POST")
    router.HandleFunc("/calls/{roomName}/logs", utils.AuthMiddleware(h.GetCallLogs)).Methods("GET")
}


// IssueToken exchanges a validated room/participant pair for a LiveKit
// credential. Appointment rooms are re-checked server side: approved status,
// participant identity and the join window, in that order, each with its own
// rejection. The audit log write is best-effort and never blocks issuance.
func (h *CallHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var tokenRequest struct {
        RoomName            string `json:"roomName"`
        ParticipantName     string `json:"participantName"`
        ParticipantIdentity string `json:"participantIdentity"`
    }
    if err := json.NewDecoder(r.Body).Decode(&tokenRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    // Reject before any lookup or external call.
    if tokenRequest.RoomName == "" || tokenRequest.ParticipantName == "" || tokenRequest.ParticipantIdentity == "" {
        http.Error(w, "Missing required parameters", http.StatusBadRequest)
        return
    }

    // Room name convention ties a video room to exactly one appointment.
    // Other rooms (demo/test calls) are open to any authenticated user.
    if appointmentID, ok := scheduling.AppointmentIDFromRoom(tokenRequest.RoomName); ok {
        var appointment models.Appointment
        if err := h.db.Preload("Expert").First(&appointment, appointmentID).Error; err != nil {
            http.Error(w, "Appointment not found or not approved", http.StatusNotFound)
            return
        }
        if appointment.Status != models.AppointmentApproved {
            http.Error(w, "Appointment not found or not approved", http.StatusNotFound)
            return
        }

        isCustomer := appointment.UserID == userID
        isExpert := appointment.Expert != nil && appointment.Expert.UserID == userID
        if !isCustomer && !isExpert {
            http.Error(w, "Access denied", http.StatusForbidden)
            return
        }

        if !scheduling.WithinCallWindow(time.Now(), appointment.ScheduledAt, appointment.DurationMinutes) {
            http.Error(w, "Call is not available at this time", http.StatusForbidden)
            return
        }
    }

    token, err := mintAccessToken(tokenRequest.RoomName, tokenRequest.ParticipantIdentity, tokenRequest.ParticipantName)
    if err != nil {
        log.Printf("Error generating video token: %v", err)
        http.Error(w, "Error generating token", http.StatusInternalServerError)
        return
    }

    // Log the call initiation. Don't fail token generation if logging fails.
    callLog := models.CallLog{
        RoomName:            tokenRequest.RoomName,
        ParticipantIdentity: tokenRequest.ParticipantIdentity,
        ParticipantName:     tokenRequest.ParticipantName,
        UserID:              userID,
        StartedAt:           time.Now(),
    }
    if err := h.db.Create(&callLog).Error; err != nil {
        log.Printf("Error logging call: %v", err)
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "token": token,
    })
}


// CheckAccess is the server side of the call page's precondition ladder. It
// evaluates the same predicate as IssueToken and reports the first failing
// reason so page routes can redirect with it.
func (h *CallHandler) CheckAccess(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    roomName := vars["roomName"]

    allowed := true
    reason := ""

    if appointmentID, ok := scheduling.AppointmentIDFromRoom(roomName); ok {
        var appointment models.Appointment
        if err := h.db.Preload("Expert").First(&appointment, appointmentID).Error; err != nil {
            allowed, reason = false, ReasonNotFound
        } else if !isParticipant(&appointment, userID) {
            allowed, reason = false, ReasonDenied
        } else if appointment.Status != models.AppointmentApproved {
            allowed, reason = false, ReasonNotApproved
        } else if !scheduling.WithinCallWindow(time.Now(), appointment.ScheduledAt, appointment.DurationMinutes) {
            allowed, reason = false, ReasonBadTime
        }
    }

    response := map[string]interface{}{
        "allowed": allowed,
    }
    if reason != "" {
        response["reason"] = reason
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(response)
}


// EndCall closes the caller's open call log rows for the room and, for
// appointment rooms, moves the appointment approved -> completed through the
// transition validator.
func (h *CallHandler) EndCall(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    roomName := vars["roomName"]

    if appointmentID, ok := scheduling.AppointmentIDFromRoom(roomName); ok {
        var appointment models.Appointment
        if err := h.db.Preload("Expert").First(&appointment, appointmentID).Error; err != nil {
            http.Error(w, "Appointment not found", http.StatusNotFound)
            return
        }
        if !isParticipant(&appointment, userID) {
            http.Error(w, "Access denied", http.StatusForbidden)
            return
        }

        if err := scheduling.ValidateTransition(appointment.Status, models.AppointmentCompleted); err == nil {
            if err := h.db.Model(&appointment).Update("status", models.AppointmentCompleted).Error; err != nil {
                http.Error(w, "Error completing appointment", http.StatusInternalServerError)
                return
            }
        }
    }

    // Close this participant's open log rows for the room.
    var openLogs []models.CallLog
    if err := h.db.Where("room_name = ? AND user_id = ? AND ended_at IS NULL", roomName, userID).
        Find(&openLogs).Error; err != nil {
        http.Error(w, "Error retrieving call logs", http.StatusInternalServerError)
        return
    }

    now := time.Now()
    for i := range openLogs {
        duration := int(now.Sub(openLogs[i].StartedAt).Seconds())
        if err := h.db.Model(&openLogs[i]).Updates(map[string]interface{}{
            "ended_at":         now,
            "duration_seconds": duration,
        }).Error; err != nil {
            log.Printf("Error closing call log %d: %v", openLogs[i].ID, err)
        }
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "message": "Call ended",
        "closed_logs": len(openLogs),
    })
}


// GetCallLogs lists the audit rows for an appointment room; participants only
func (h *CallHandler) GetCallLogs(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    roomName := vars["roomName"]

    appointmentID, ok := scheduling.AppointmentIDFromRoom(roomName)
    if !ok {
        http.Error(w, "Invalid room name", http.StatusBadRequest)
        return
    }

    var appointment models.Appointment
    if err := h.db.Preload("Expert").First(&appointment, appointmentID).Error; err != nil {
        http.Error(w, "Appointment not found", http.StatusNotFound)
        return
    }
    if !isParticipant(&appointment, userID) {
        http.Error(w, "Access denied", http.StatusForbidden)
        return
    }

    var logs []models.CallLog
    if err := h.db.Where("room_name = ?", roomName).Order("started_at ASC").Find(&logs).Error; err != nil {
        http.Error(w, "Error retrieving call logs", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(logs)
}


func isParticipant(appointment *models.Appointment, userID uint) bool {
    if appointment.UserID == userID {
        return true
    }
    return appointment.Expert != nil && appointment.Expert.UserID == userID
}

// mintAccessToken creates a 24-hour LiveKit credential with join, publish
// and subscribe grants for the room.
func mintAccessToken(roomName, identity, name string) (string, error) {
    apiKey := os.Getenv("LIVEKIT_API_KEY")
    apiSecret := os.Getenv("LIVEKIT_API_SECRET")

    grant := &auth.VideoGrant{
        RoomJoin: true,
        Room:     roomName,
    }
    grant.SetCanPublish(true)
    grant.SetCanSubscribe(true)
    grant.SetCanPublishData(true)

    at := auth.NewAccessToken(apiKey, apiSecret).
        AddGrant(grant).
        SetIdentity(identity).
        SetName(name).
        SetValidFor(24 * time.Hour)

    return at.ToJWT()
}
