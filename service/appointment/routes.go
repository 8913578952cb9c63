package appointment

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Arnack/wisely-2/cmd/models"
	"github.com/Arnack/wisely-2/cmd/utils"
	"github.com/Arnack/wisely-2/service/notifications"
	"github.com/Arnack/wisely-2/service/scheduling"
	"github.com/Arnack/wisely-2/service/ws"
	"github.com/gorilla/mux"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

type AppointmentHandler struct {
    db       *gorm.DB
    hub      *ws.Hub
    notifier *notification.Notifier
}

func NewAppointmentHandler(db *gorm.DB, hub *ws.Hub, notifier *notification.Notifier) *AppointmentHandler {
    return &AppointmentHandler{db: db, hub: hub, notifier: notifier}
}


func (h *AppointmentHandler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/appointments/book", utils.AuthMiddleware(h.BookAppointment)).Methods("POST")
    router.HandleFunc("/appointments", utils.AuthMiddleware(h.GetMyAppointments)).Methods("GET")
    router.HandleFunc("/appointments/{id}", utils.AuthMiddleware(h.GetAppointment)).Methods("GET")
    router.HandleFunc("/appointments/expert/{expertId}", utils.AuthMiddleware(h.GetExpertAppointments)).Methods("GET")
    router.HandleFunc("/appointments/{id}/status", utils.AuthMiddleware(h.UpdateAppointmentStatus)).Methods("PATCH")
}


// BookAppointment consumes an unbooked slot and creates a pending
// appointment. The slot's is_booked flag is flipped with a conditional update
// inside the same transaction as the insert, so two concurrent bookings of
// one slot cannot both succeed.
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    var bookingRequest struct {
        ExpertID           uint   `json:"expert_id"`
        AvailabilitySlotID uint   `json:"availability_slot_id"`
        Title              string `json:"title"`
        Description        string `json:"description,omitempty"`
    }
    if err := json.NewDecoder(r.Body).Decode(&bookingRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    bookingRequest.Title = strings.TrimSpace(bookingRequest.Title)
    if bookingRequest.Title == "" {
        http.Error(w, "Title is required", http.StatusBadRequest)
        return
    }
    if bookingRequest.AvailabilitySlotID == 0 {
        http.Error(w, "Availability slot is required", http.StatusBadRequest)
        return
    }

    tx := h.db.Begin()

    var slot models.AvailabilitySlot
    if err := tx.First(&slot, bookingRequest.AvailabilitySlotID).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Time slot not found", http.StatusNotFound)
        return
    }

    if bookingRequest.ExpertID != 0 && slot.ExpertID != bookingRequest.ExpertID {
        tx.Rollback()
        http.Error(w, "Time slot does not belong to this expert", http.StatusBadRequest)
        return
    }

    // Reject before any write when the slot is already gone.
    if slot.IsBooked {
        tx.Rollback()
        http.Error(w, "Time slot already booked", http.StatusConflict)
        return
    }
    if !slot.StartTime.After(time.Now()) {
        tx.Rollback()
        http.Error(w, "Time slot is in the past", http.StatusConflict)
        return
    }

    // Conditional update: losing a race for the slot shows up as zero
    // affected rows, which aborts the booking.
    claim := tx.Model(&models.AvailabilitySlot{}).
        Where("id = ? AND is_booked = ?", slot.ID, false).
        Update("is_booked", true)
    if claim.Error != nil {
        tx.Rollback()
        http.Error(w, "Error reserving time slot", http.StatusInternalServerError)
        return
    }
    if claim.RowsAffected == 0 {
        tx.Rollback()
        http.Error(w, "Time slot is no longer available", http.StatusConflict)
        return
    }

    appointment := models.Appointment{
        UserID:             userID,
        ExpertID:           slot.ExpertID,
        AvailabilitySlotID: slot.ID,
        Title:              bookingRequest.Title,
        Description:        strings.TrimSpace(bookingRequest.Description),
        Status:             models.AppointmentPending,
        ScheduledAt:        slot.StartTime,
        DurationMinutes:    int(slot.EndTime.Sub(slot.StartTime).Minutes()),
    }

    if err := tx.Create(&appointment).Error; err != nil {
        tx.Rollback()
        http.Error(w, "Error creating appointment", http.StatusInternalServerError)
        return
    }

    if err := tx.Commit().Error; err != nil {
        http.Error(w, "Error completing booking", http.StatusInternalServerError)
        return
    }

    if err := h.db.Preload("User").Preload("Expert").Preload("Expert.User").
        First(&appointment, appointment.ID).Error; err != nil {
        log.Printf("Error reloading appointment %d after booking: %v", appointment.ID, err)
    }

    // Best-effort side effects; the booking stands whether or not they land.
    h.hub.Broadcast(ws.CalendarEvent{
        Type:          "slot_booked",
        ExpertID:      slot.ExpertID,
        AppointmentID: appointment.ID,
        Status:        appointment.Status,
        Payload:       map[string]interface{}{"slot_id": slot.ID},
    })
    if appointment.User != nil && appointment.Expert != nil && appointment.Expert.User != nil {
        expertUser := appointment.Expert.User
        go func() {
            if err := sendAppointmentEmail(expertUser.Email, "New appointment request",
                fmt.Sprintf("%s requested \"%s\" on %s. Review it in your appointments dashboard.",
                    appointment.User.FullName, appointment.Title,
                    appointment.ScheduledAt.Format("Mon, 02 Jan 2006 15:04 MST"))); err != nil {
                log.Printf("Error sending booking email: %v", err)
            }
        }()
        go h.notifier.NotifyUser(expertUser.ID, "New appointment request", appointment.Title,
            map[string]interface{}{"appointment_id": appointment.ID})
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(appointment)
}


// GetMyAppointments retrieves the authenticated customer's appointments
func (h *AppointmentHandler) GetMyAppointments(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    if page < 1 {
        page = 1
    }
    pageSize := 100

    query := h.db.Model(&models.Appointment{}).Where("user_id = ?", userID).
        Preload("Expert").Preload("Expert.User").Preload("AvailabilitySlot")

    if status := r.URL.Query().Get("status"); status != "" {
        query = query.Where("status = ?", status)
    }

    var total int64
    query.Count(&total)

    var appointments []models.Appointment
    if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
        Order("scheduled_at DESC").Find(&appointments).Error; err != nil {
        http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "appointments": appointments,
        "total":        total,
        "page":         page,
        "page_size":    pageSize,
        "total_pages":  (total + int64(pageSize) - 1) / int64(pageSize),
    })
}

// GetAppointment retrieves a specific appointment by ID. Only the customer
// who booked it or the owning expert may read it.
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
        return
    }

    var appointment models.Appointment
    if err := h.db.Preload("User").Preload("Expert").Preload("Expert.User").Preload("AvailabilitySlot").
        First(&appointment, appointmentID).Error; err != nil {
        http.Error(w, "Appointment not found", http.StatusNotFound)
        return
    }

    if !isParticipant(&appointment, userID) {
        http.Error(w, "Access denied", http.StatusForbidden)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(appointment)
}

// GetExpertAppointments retrieves all appointments for an expert's calendar
func (h *AppointmentHandler) GetExpertAppointments(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    expertID, err := strconv.ParseUint(vars["expertId"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid expert ID", http.StatusBadRequest)
        return
    }

    var expert models.ExpertProfile
    if err := h.db.First(&expert, expertID).Error; err != nil {
        http.Error(w, "Expert not found", http.StatusNotFound)
        return
    }
    if expert.UserID != userID {
        http.Error(w, "Access denied", http.StatusForbidden)
        return
    }

    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    if page < 1 {
        page = 1
    }
    pageSize := 100

    query := h.db.Model(&models.Appointment{}).Where("expert_id = ?", expertID).
        Preload("User").Preload("AvailabilitySlot")

    if status := r.URL.Query().Get("status"); status != "" {
        query = query.Where("status = ?", status)
    }

    var total int64
    query.Count(&total)

    var appointments []models.Appointment
    if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
        Order("scheduled_at DESC").Find(&appointments).Error; err != nil {
        http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "appointments": appointments,
        "total":        total,
        "page":         page,
        "page_size":    pageSize,
        "total_pages":  (total + int64(pageSize) - 1) / int64(pageSize),
    })
}


// UpdateAppointmentStatus moves an appointment through its lifecycle. Every
// write passes the central transition validator; approval also derives the
// meeting room and URL in the same update.
func (h *AppointmentHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return
    }

    vars := mux.Vars(r)
    appointmentID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
        return
    }

    var statusUpdate struct {
        Status string `json:"status"`
    }
    if err := json.NewDecoder(r.Body).Decode(&statusUpdate); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    var appointment models.Appointment
    if err := h.db.Preload("User").Preload("Expert").Preload("Expert.User").
        First(&appointment, appointmentID).Error; err != nil {
        http.Error(w, "Appointment not found", http.StatusNotFound)
        return
    }

    isExpert := appointment.Expert != nil && appointment.Expert.UserID == userID
    isCustomer := appointment.UserID == userID
    if !isExpert && !isCustomer {
        http.Error(w, "Access denied", http.StatusForbidden)
        return
    }

    // Approve, decline and complete are expert actions; either participant
    // may cancel an approved appointment.
    switch statusUpdate.Status {
    case models.AppointmentApproved, models.AppointmentDeclined, models.AppointmentCompleted:
        if !isExpert {
            http.Error(w, "Only the expert may perform this action", http.StatusForbidden)
            return
        }
    case models.AppointmentCancelled:
        // either participant
    default:
        http.Error(w, "Unknown appointment status", http.StatusBadRequest)
        return
    }

    if err := scheduling.ValidateTransition(appointment.Status, statusUpdate.Status); err != nil {
        http.Error(w, err.Error(), http.StatusConflict)
        return
    }

    updates := map[string]interface{}{
        "status": statusUpdate.Status,
    }
    if statusUpdate.Status == models.AppointmentApproved {
        // Pure function of the appointment ID; recomputing for an already
        // approved appointment yields the same values.
        updates["meeting_room_name"] = scheduling.MeetingRoomName(appointment.ID)
        updates["meeting_url"] = scheduling.MeetingURL(appointment.ID)
    }

    if err := h.db.Model(&appointment).Updates(updates).Error; err != nil {
        http.Error(w, "Error updating appointment", http.StatusInternalServerError)
        return
    }

    h.hub.Broadcast(ws.CalendarEvent{
        Type:          "appointment_updated",
        ExpertID:      appointment.ExpertID,
        AppointmentID: appointment.ID,
        Status:        statusUpdate.Status,
    })
    h.notifyCounterparty(&appointment, statusUpdate.Status, isExpert)

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(appointment)
}

func isParticipant(appointment *models.Appointment, userID uint) bool {
    if appointment.UserID == userID {
        return true
    }
    return appointment.Expert != nil && appointment.Expert.UserID == userID
}

// notifyCounterparty emails and pushes the participant who did not perform
// the transition. Failures are logged, never surfaced.
func (h *AppointmentHandler) notifyCounterparty(appointment *models.Appointment, status string, actorIsExpert bool) {
    var recipient *models.User
    if actorIsExpert {
        recipient = appointment.User
    } else if appointment.Expert != nil {
        recipient = appointment.Expert.User
    }
    if recipient == nil {
        return
    }

    title := fmt.Sprintf("Appointment %s", status)
    body := fmt.Sprintf("\"%s\" on %s is now %s.",
        appointment.Title,
        appointment.ScheduledAt.Format("Mon, 02 Jan 2006 15:04 MST"),
        status)

    email := recipient.Email
    go func() {
        if err := sendAppointmentEmail(email, title, body); err != nil {
            log.Printf("Error sending appointment status email: %v", err)
        }
    }()
    go h.notifier.NotifyUser(recipient.ID, title, body,
        map[string]interface{}{"appointment_id": appointment.ID, "status": status})
}

// sendAppointmentEmail delivers a transactional email over SMTP
func sendAppointmentEmail(email, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}
	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)

	return d.DialAndSend(m)
}
