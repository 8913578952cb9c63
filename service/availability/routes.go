package availability

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Arnack/wisely-2/cmd/models"
	"github.com/Arnack/wisely-2/cmd/utils"
	"github.com/Arnack/wisely-2/service/scheduling"
	"github.com/Arnack/wisely-2/service/ws"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type AvailabilityHandler struct {
    db  *gorm.DB
    hub *ws.Hub
}

func NewAvailabilityHandler(db *gorm.DB, hub *ws.Hub) *AvailabilityHandler {
    return &AvailabilityHandler{db: db, hub: hub}
}


func (h *AvailabilityHandler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/experts/{expertId}/availability", utils.AuthMiddleware(h.CreateSlot)).Methods("POST")
    router.HandleFunc("/experts/{expertId}/availability/bulk", utils.AuthMiddleware(h.CreateBulkSlots)).Methods("POST")
    router.HandleFunc("/experts/{expertId}/availability/quick", utils.AuthMiddleware(h.CreateQuickSlots)).Methods("POST")
    router.HandleFunc("/experts/{expertId}/availability", h.GetSlots).Methods("GET")
    router.HandleFunc("/experts/{expertId}/availability/date/{date}", h.GetSlotsByDate).Methods("GET")
    router.HandleFunc("/experts/{expertId}/availability/{id}", utils.AuthMiddleware(h.DeleteSlot)).Methods("DELETE")
}

// requireOwner loads the expert profile and checks that the authenticated
// caller owns it. Only the expert mutates their own calendar.
func (h *AvailabilityHandler) requireOwner(w http.ResponseWriter, r *http.Request, expertID uint) bool {
    userID, err := utils.GetUserIDFromContext(r)
    if err != nil {
        http.Error(w, "Unauthorized", http.StatusUnauthorized)
        return false
    }

    var expert models.ExpertProfile
    if err := h.db.First(&expert, expertID).Error; err != nil {
        http.Error(w, "Expert not found", http.StatusNotFound)
        return false
    }

    if expert.UserID != userID {
        http.Error(w, "Access denied", http.StatusForbidden)
        return false
    }
    return true
}


func (h *AvailabilityHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    expertID, err := strconv.ParseUint(vars["expertId"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid expert ID", http.StatusBadRequest)
        return
    }

    if !h.requireOwner(w, r, uint(expertID)) {
        return
    }

    var slot models.AvailabilitySlot
    if err := json.NewDecoder(r.Body).Decode(&slot); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    // Validate time range
    if !slot.EndTime.After(slot.StartTime) {
        http.Error(w, "End time must be after start time", http.StatusBadRequest)
        return
    }

    // Check for overlapping slots
    var existingSlot models.AvailabilitySlot
    overlap := h.db.Where("expert_id = ? AND start_time < ? AND end_time > ?",
        expertID,
        slot.EndTime,
        slot.StartTime,
    ).First(&existingSlot)

    if overlap.Error != nil && !errors.Is(overlap.Error, gorm.ErrRecordNotFound) {
        http.Error(w, "Database error", http.StatusInternalServerError)
        return
    }
    if overlap.Error == nil {
        http.Error(w, "Time slot overlaps with existing availability", http.StatusConflict)
        return
    }

    slot.ExpertID = uint(expertID)
    slot.IsBooked = false

    if err := h.db.Create(&slot).Error; err != nil {
        http.Error(w, "Error creating availability slot", http.StatusInternalServerError)
        return
    }

    h.hub.Broadcast(ws.CalendarEvent{
        Type:     "slots_created",
        ExpertID: uint(expertID),
        Payload:  []models.AvailabilitySlot{slot},
    })

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(slot)
}


// CreateBulkSlots expands a working window into discrete slots, optionally
// recurring over selected weekdays for a number of weeks, and bulk-inserts
// them. Generated batches are not cross-checked against pre-existing rows.
func (h *AvailabilityHandler) CreateBulkSlots(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    expertID, err := strconv.ParseUint(vars["expertId"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid expert ID", http.StatusBadRequest)
        return
    }

    var bulkRequest struct {
        Date           string `json:"date"`
        StartTime      string `json:"start_time"`
        EndTime        string `json:"end_time"`
        SlotDuration   int    `json:"slot_duration"`
        Recurring      bool   `json:"recurring"`
        RecurringDays  []int  `json:"recurring_days,omitempty"`
        RecurringWeeks int    `json:"recurring_weeks,omitempty"`
    }
    if err := json.NewDecoder(r.Body).Decode(&bulkRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    date, err := time.Parse("2006-01-02", bulkRequest.Date)
    if err != nil {
        http.Error(w, "Invalid date format. Use YYYY-MM-DD", http.StatusBadRequest)
        return
    }

    if !h.requireOwner(w, r, uint(expertID)) {
        return
    }

    dates := []time.Time{date}
    if bulkRequest.Recurring {
        if len(bulkRequest.RecurringDays) == 0 {
            http.Error(w, "Recurring generation requires at least one weekday", http.StatusBadRequest)
            return
        }
        if bulkRequest.RecurringWeeks < 1 {
            http.Error(w, "Recurring generation requires at least one week", http.StatusBadRequest)
            return
        }
        weekdays := make([]time.Weekday, 0, len(bulkRequest.RecurringDays))
        for _, day := range bulkRequest.RecurringDays {
            if day < 0 || day > 6 {
                http.Error(w, "Weekdays must be between 0 (Sunday) and 6 (Saturday)", http.StatusBadRequest)
                return
            }
            weekdays = append(weekdays, time.Weekday(day))
        }
        dates = scheduling.RecurringDates(date, weekdays, bulkRequest.RecurringWeeks)
    }

    var slots []models.AvailabilitySlot
    for _, d := range dates {
        ranges, err := scheduling.SlotsForDay(d, bulkRequest.StartTime, bulkRequest.EndTime, bulkRequest.SlotDuration)
        if err != nil {
            http.Error(w, err.Error(), http.StatusBadRequest)
            return
        }
        for _, rng := range ranges {
            slots = append(slots, models.AvailabilitySlot{
                ExpertID:  uint(expertID),
                StartTime: rng.Start,
                EndTime:   rng.End,
                IsBooked:  false,
            })
        }
    }

    if len(slots) == 0 {
        http.Error(w, "No slots fit in the requested window", http.StatusBadRequest)
        return
    }

    if err := h.db.Create(&slots).Error; err != nil {
        http.Error(w, "Error creating availability slots", http.StatusInternalServerError)
        return
    }

    h.hub.Broadcast(ws.CalendarEvent{
        Type:     "slots_created",
        ExpertID: uint(expertID),
        Payload:  slots,
    })

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(map[string]interface{}{
        "slots":   slots,
        "created": len(slots),
    })
}


// CreateQuickSlots turns a dragged time range into slots: either one slot
// spanning the whole range or the range split by the cursor algorithm.
func (h *AvailabilityHandler) CreateQuickSlots(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    expertID, err := strconv.ParseUint(vars["expertId"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid expert ID", http.StatusBadRequest)
        return
    }

    var quickRequest struct {
        StartTime      time.Time `json:"start_time"`
        EndTime        time.Time `json:"end_time"`
        SlotDuration   int       `json:"slot_duration"`
        SplitIntoSlots bool      `json:"split_into_slots"`
    }
    if err := json.NewDecoder(r.Body).Decode(&quickRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    if !h.requireOwner(w, r, uint(expertID)) {
        return
    }

    ranges, err := scheduling.SplitRange(quickRequest.StartTime, quickRequest.EndTime, quickRequest.SlotDuration, quickRequest.SplitIntoSlots)
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }
    if len(ranges) == 0 {
        http.Error(w, "No slots fit in the selected range", http.StatusBadRequest)
        return
    }

    slots := make([]models.AvailabilitySlot, 0, len(ranges))
    for _, rng := range ranges {
        slots = append(slots, models.AvailabilitySlot{
            ExpertID:  uint(expertID),
            StartTime: rng.Start,
            EndTime:   rng.End,
            IsBooked:  false,
        })
    }

    if err := h.db.Create(&slots).Error; err != nil {
        http.Error(w, "Error creating availability slots", http.StatusInternalServerError)
        return
    }

    h.hub.Broadcast(ws.CalendarEvent{
        Type:     "slots_created",
        ExpertID: uint(expertID),
        Payload:  slots,
    })

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(map[string]interface{}{
        "slots":   slots,
        "created": len(slots),
    })
}


func (h *AvailabilityHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    expertID, err := strconv.ParseUint(vars["expertId"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid expert ID", http.StatusBadRequest)
        return
    }

    // Parse query parameters
    from := r.URL.Query().Get("from")
    to := r.URL.Query().Get("to")
    onlyOpen := r.URL.Query().Get("open") == "true"
    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    if page < 1 {
        page = 1
    }
    pageSize := 100

    query := h.db.Model(&models.AvailabilitySlot{}).Where("expert_id = ?", expertID)

    // Apply filters
    if from != "" {
        query = query.Where("start_time >= ?", from)
    }
    if to != "" {
        query = query.Where("start_time <= ?", to)
    }
    if onlyOpen {
        query = query.Where("is_booked = ? AND start_time > ?", false, time.Now())
    }

    var total int64
    query.Count(&total)

    var slots []models.AvailabilitySlot
    result := query.Order("start_time ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&slots)
    if result.Error != nil {
        http.Error(w, "Error retrieving availability slots", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "slots":       slots,
        "total":       total,
        "page":        page,
        "page_size":   pageSize,
        "total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
    })
}

func (h *AvailabilityHandler) GetSlotsByDate(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    expertID, err := strconv.ParseUint(vars["expertId"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid expert ID", http.StatusBadRequest)
        return
    }

    dateStr := vars["date"]
    date, err := time.Parse("2006-01-02", dateStr)
    if err != nil {
        http.Error(w, "Invalid date format. Use YYYY-MM-DD", http.StatusBadRequest)
        return
    }

    var slots []models.AvailabilitySlot
    if err := h.db.Where("expert_id = ? AND start_time >= ? AND start_time < ?",
        expertID, date, date.AddDate(0, 0, 1)).
        Order("start_time ASC").Find(&slots).Error; err != nil {
        http.Error(w, "Error retrieving availability slots", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(slots)
}

// DeleteSlot removes a slot. Booked slots are never deleted; the appointment
// referencing them stays valid.
func (h *AvailabilityHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    expertID, err := strconv.ParseUint(vars["expertId"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid expert ID", http.StatusBadRequest)
        return
    }

    slotID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        http.Error(w, "Invalid slot ID", http.StatusBadRequest)
        return
    }

    if !h.requireOwner(w, r, uint(expertID)) {
        return
    }

    var slot models.AvailabilitySlot
    if err := h.db.Where("id = ? AND expert_id = ?", slotID, expertID).First(&slot).Error; err != nil {
        http.Error(w, "Availability slot not found", http.StatusNotFound)
        return
    }

    if slot.IsBooked {
        http.Error(w, "Booked slots cannot be deleted", http.StatusConflict)
        return
    }

    result := h.db.Where("id = ? AND expert_id = ? AND is_booked = ?", slotID, expertID, false).
        Delete(&models.AvailabilitySlot{})
    if result.Error != nil {
        http.Error(w, "Error deleting availability slot", http.StatusInternalServerError)
        return
    }
    if result.RowsAffected == 0 {
        http.Error(w, "Availability slot no longer deletable", http.StatusConflict)
        return
    }

    h.hub.Broadcast(ws.CalendarEvent{
        Type:     "slot_deleted",
        ExpertID: uint(expertID),
        Payload:  map[string]interface{}{"slot_id": slot.ID},
    })

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]string{
        "message": "Availability slot deleted successfully",
    })
}
