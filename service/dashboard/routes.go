package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Arnack/wisely-2/cmd/models"
	"github.com/Arnack/wisely-2/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type DashboardHandler struct {
    db *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
    return &DashboardHandler{db: db}
}

func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/dashboard/expert/{expertId}/stats", utils.AuthMiddleware(h.GetExpertStats)).Methods("GET")
}


// GetExpertStats aggregates an expert's appointment and call activity.
// Only the expert themselves may view it.
func (h *DashboardHandler) GetExpertStats(w http.ResponseWriter, r *http.Request) {
    callerID, err := utils.GetUserIDFromContext(r)
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
    if expert.UserID != callerID {
        http.Error(w, "Access denied", http.StatusForbidden)
        return
    }

    // Appointment counts broken down by status
    type statusCount struct {
        Status string
        Count  int64
    }
    var counts []statusCount
    if err := h.db.Model(&models.Appointment{}).
        Select("status, COUNT(*) as count").
        Where("expert_id = ?", expertID).
        Group("status").
        Scan(&counts).Error; err != nil {
        http.Error(w, "Error aggregating appointments", http.StatusInternalServerError)
        return
    }

    byStatus := map[string]int64{}
    var totalAppointments int64
    for _, c := range counts {
        byStatus[c.Status] = c.Count
        totalAppointments += c.Count
    }

    // Next approved appointments
    var upcoming []models.Appointment
    if err := h.db.Preload("User").
        Where("expert_id = ? AND status = ? AND scheduled_at > ?",
            expertID, models.AppointmentApproved, time.Now()).
        Order("scheduled_at ASC").
        Limit(5).
        Find(&upcoming).Error; err != nil {
        http.Error(w, "Error retrieving upcoming appointments", http.StatusInternalServerError)
        return
    }

    // Open slots remaining on the calendar
    var openSlots int64
    h.db.Model(&models.AvailabilitySlot{}).
        Where("expert_id = ? AND is_booked = ? AND start_time > ?", expertID, false, time.Now()).
        Count(&openSlots)

    // Total completed call time, from this expert's closed log rows
    var callStats struct {
        Calls        int64
        TotalSeconds int64
    }
    h.db.Model(&models.CallLog{}).
        Select("COUNT(*) as calls, COALESCE(SUM(duration_seconds), 0) as total_seconds").
        Where("user_id = ? AND ended_at IS NOT NULL", expert.UserID).
        Scan(&callStats)

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "total_appointments":     totalAppointments,
        "appointments_by_status": byStatus,
        "upcoming_appointments":  upcoming,
        "open_slots":             openSlots,
        "completed_calls":        callStats.Calls,
        "total_call_minutes":     callStats.TotalSeconds / 60,
    })
}
