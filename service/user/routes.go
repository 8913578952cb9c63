package user

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Arnack/wisely-2/cmd/models"
	"github.com/Arnack/wisely-2/cmd/utils"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var jwtSecretKey = []byte(os.Getenv("SECRET_KEY"))

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}


// RegisterRoutes sets up all user-related routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/login", h.handleLogin).Methods("POST")
	router.HandleFunc("/register", h.HandleRegister).Methods("POST")
	router.HandleFunc("/refresh", h.handleRefreshToken).Methods("POST")
	router.HandleFunc("/users/{id}", utils.AuthMiddleware(h.GetUser)).Methods("GET")
	router.HandleFunc("/users/{id}", utils.AuthMiddleware(h.UpdateUser)).Methods("PUT")
	router.HandleFunc("/users/{id}/avatar", utils.AuthMiddleware(h.UploadAvatar)).Methods("POST")
	router.HandleFunc("/experts", h.GetExperts).Methods("GET")
	router.HandleFunc("/experts/{id}", h.GetExpert).Methods("GET")
	router.HandleFunc("/experts/{id}", utils.AuthMiddleware(h.UpdateExpert)).Methods("PUT")

	fileServer := http.FileServer(http.Dir(utils.AvatarPath))
	router.PathPrefix("/avatars/").Handler(http.StripPrefix("/avatars/", fileServer))
}


func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
    var loginRequest struct {
        Email    string `json:"email"`
        Password string `json:"password"`
    }

    if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    var user models.User
    result := h.db.Where("email = ?", loginRequest.Email).First(&user)
    if result.Error != nil {
        http.Error(w, "User not found", http.StatusUnauthorized)
        return
    }

    // Verify password
    if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginRequest.Password)); err != nil {
        http.Error(w, "Invalid credentials", http.StatusUnauthorized)
        return
    }

    accessToken, err := generateJWT(user.ID, 24)
    if err != nil {
        http.Error(w, "Error generating access token", http.StatusInternalServerError)
        return
    }

    refreshToken, err := generateRefreshToken(user.ID)
    if err != nil {
        http.Error(w, "Error generating refresh token", http.StatusInternalServerError)
        return
    }

    if err := saveRefreshToken(h.db, user.ID, refreshToken); err != nil {
        http.Error(w, "Error saving refresh token", http.StatusInternalServerError)
        return
    }

    response := map[string]interface{}{
        "message":       "Login successful",
        "access_token":  accessToken,
        "refresh_token": refreshToken,
        "user_id":       user.ID,
        "role":          user.Role,
    }

    // If user is an expert, fetch and include expert_id
    if user.Role == models.RoleExpert {
        var expert models.ExpertProfile
        result := h.db.Where("user_id = ?", user.ID).First(&expert)
        if result.Error == nil {
            response["expert_id"] = expert.ID
        } else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
            http.Error(w, "Error fetching expert profile", http.StatusInternalServerError)
            return
        }
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(response)
}


func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
    var registerRequest struct {
        FullName      string   `json:"full_name"`
        Email         string   `json:"email"`
        Password      string   `json:"password"`
        Role          string   `json:"role"`
        Title         string   `json:"title"`
        Description   string   `json:"description"`
        ExpertiseTags []string `json:"expertise_tags"`
        HourlyRate    float64  `json:"hourly_rate"`
    }
    if err := json.NewDecoder(r.Body).Decode(&registerRequest); err != nil {
        http.Error(w, "Invalid JSON input", http.StatusBadRequest)
        return
    }

    // Validate required fields
    if registerRequest.FullName == "" || registerRequest.Email == "" || registerRequest.Password == "" {
        http.Error(w, "Missing required fields", http.StatusBadRequest)
        return
    }
    if registerRequest.Role != models.RoleCustomer && registerRequest.Role != models.RoleExpert {
        http.Error(w, "Role must be customer or expert", http.StatusBadRequest)
        return
    }

    // Validate unique constraints
    var existingUser models.User
    if result := h.db.Where("email = ?", registerRequest.Email).First(&existingUser); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
        if result.Error != nil {
            http.Error(w, "Database error", http.StatusInternalServerError)
            return
        }
        log.Printf("Registration attempt with duplicate email")
        http.Error(w, "Email is already in use", http.StatusConflict)
        return
    }

    // Hash password
    passwordHash, err := bcrypt.GenerateFromPassword([]byte(registerRequest.Password), bcrypt.DefaultCost)
    if err != nil {
        http.Error(w, "Error hashing password", http.StatusInternalServerError)
        return
    }

    tx := h.db.Begin()

    user := models.User{
        FullName:     registerRequest.FullName,
        Email:        registerRequest.Email,
        PasswordHash: string(passwordHash),
        Role:         registerRequest.Role,
    }

    if err := tx.Create(&user).Error; err != nil {
        if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
            tx.Rollback()
            http.Error(w, "Email is already in use", http.StatusConflict)
            return
        }
        tx.Rollback()
        http.Error(w, "Error registering user", http.StatusInternalServerError)
        return
    }

    var expertID uint
    if registerRequest.Role == models.RoleExpert {
        expert := models.ExpertProfile{
            UserID:        user.ID,
            Title:         registerRequest.Title,
            Description:   registerRequest.Description,
            ExpertiseTags: pq.StringArray(registerRequest.ExpertiseTags),
            HourlyRate:    registerRequest.HourlyRate,
            IsAvailable:   true,
        }

        if err := tx.Create(&expert).Error; err != nil {
            tx.Rollback()
            http.Error(w, "Error creating expert profile", http.StatusInternalServerError)
            return
        }
        expertID = expert.ID
    }

    if err := tx.Commit().Error; err != nil {
        http.Error(w, "Error committing transaction", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    response := map[string]interface{}{
        "message": "User registered successfully",
        "user_id": user.ID,
    }
    if expertID != 0 {
        response["expert_id"] = expertID
    }
    json.NewEncoder(w).Encode(response)
}


func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
    var refreshRequest struct {
        RefreshToken string `json:"refresh_token"`
    }
    if err := json.NewDecoder(r.Body).Decode(&refreshRequest); err != nil {
        http.Error(w, "Invalid request body", http.StatusBadRequest)
        return
    }

    if refreshRequest.RefreshToken == "" {
        http.Error(w, "Refresh token is required", http.StatusBadRequest)
        return
    }

    var user models.User
    result := h.db.Where("refresh_token = ?", refreshRequest.RefreshToken).First(&user)
    if result.Error != nil {
        http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
        return
    }

    if time.Now().After(user.RefreshTokenExpiredAt) {
        http.Error(w, "Refresh token expired", http.StatusUnauthorized)
        return
    }

    accessToken, err := generateJWT(user.ID, 24)
    if err != nil {
        http.Error(w, "Error generating access token", http.StatusInternalServerError)
        return
    }

    refreshToken, err := generateRefreshToken(user.ID)
    if err != nil {
        http.Error(w, "Error generating refresh token", http.StatusInternalServerError)
        return
    }

    if err := saveRefreshToken(h.db, user.ID, refreshToken); err != nil {
        http.Error(w, "Error saving refresh token", http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "access_token":  accessToken,
        "refresh_token": refreshToken,
    })
}


// GetUser retrieves a specific user by ID
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var user models.User
	result := h.db.Preload("Expert").First(&user, userID)
	if result.Error != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}


// UpdateUser updates the authenticated user's own record
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	callerID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if uint(userID) != callerID {
		http.Error(w, "Access denied", http.StatusForbidden)
		return
	}

	var updateData struct {
		FullName  string `json:"full_name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		http.Error(w, "Invalid JSON input", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	// Update fields. Role is immutable after signup.
	if updateData.FullName != "" {
		user.FullName = updateData.FullName
	}
	if updateData.AvatarURL != "" {
		user.AvatarURL = updateData.AvatarURL
	}

	if err := h.db.Save(&user).Error; err != nil {
		http.Error(w, "Error updating user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}


// UploadAvatar stores a profile picture and points the user record at it
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	callerID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	userID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if uint(userID) != callerID {
		http.Error(w, "Access denied", http.StatusForbidden)
		return
	}

	if err := r.ParseMultipartForm(utils.MaxAvatarSize); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		http.Error(w, "Avatar file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	avatarURL, err := utils.SaveAvatar(file, header)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if user.AvatarURL != "" {
		if err := utils.DeleteAvatar(user.AvatarURL); err != nil {
			log.Printf("Error deleting old avatar: %v", err)
		}
	}

	user.AvatarURL = avatarURL
	if err := h.db.Save(&user).Error; err != nil {
		http.Error(w, "Error updating user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"avatar_url": avatarURL,
	})
}


// GetExperts lists the expert directory with search, tag and availability
// filters
func (h *Handler) GetExperts(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	tag := r.URL.Query().Get("tag")
	onlyAvailable := r.URL.Query().Get("available") == "true"
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 20

	query := h.db.Model(&models.ExpertProfile{}).Preload("User")

	if search != "" {
		pattern := "%" + search + "%"
		query = query.Joins("JOIN users ON users.id = expert_profiles.user_id").
			Where("expert_profiles.title ILIKE ? OR expert_profiles.description ILIKE ? OR users.full_name ILIKE ?",
				pattern, pattern, pattern)
	}
	if tag != "" {
		query = query.Where("? = ANY(expertise_tags)", tag)
	}
	if onlyAvailable {
		query = query.Where("is_available = ?", true)
	}

	var total int64
	query.Count(&total)

	var experts []models.ExpertProfile
	if err := query.Order("average_rating DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&experts).Error; err != nil {
		http.Error(w, "Error retrieving experts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"experts":     experts,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}


// GetExpert retrieves one expert profile
func (h *Handler) GetExpert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	expertID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid expert ID", http.StatusBadRequest)
		return
	}

	var expert models.ExpertProfile
	if err := h.db.Preload("User").First(&expert, expertID).Error; err != nil {
		http.Error(w, "Expert not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(expert)
}


// UpdateExpert updates an expert profile; only the owning expert may do so
func (h *Handler) UpdateExpert(w http.ResponseWriter, r *http.Request) {
	callerID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	expertID, err := strconv.ParseUint(vars["id"], 10, 64)
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

	var updateData struct {
		Title         *string  `json:"title"`
		Description   *string  `json:"description"`
		ExpertiseTags []string `json:"expertise_tags"`
		HourlyRate    *float64 `json:"hourly_rate"`
		IsAvailable   *bool    `json:"is_available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		http.Error(w, "Invalid JSON input", http.StatusBadRequest)
		return
	}

	if updateData.Title != nil {
		expert.Title = *updateData.Title
	}
	if updateData.Description != nil {
		expert.Description = *updateData.Description
	}
	if updateData.ExpertiseTags != nil {
		expert.ExpertiseTags = pq.StringArray(updateData.ExpertiseTags)
	}
	if updateData.HourlyRate != nil {
		expert.HourlyRate = *updateData.HourlyRate
	}
	if updateData.IsAvailable != nil {
		expert.IsAvailable = *updateData.IsAvailable
	}

	if err := h.db.Save(&expert).Error; err != nil {
		http.Error(w, "Error updating expert profile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(expert)
}


func generateJWT(userID uint, expirationHours int) (string, error) {
    claims := &jwt.RegisteredClaims{
        Subject:   fmt.Sprint(userID),
        ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * time.Duration(expirationHours))),
    }
    token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return token.SignedString(jwtSecretKey)
}


func generateRefreshToken(userID uint) (string, error) {
    // Generate cryptographically secure random bytes
    b := make([]byte, 32)
    _, err := rand.Read(b)
    if err != nil {
        return "", err
    }

    // Use HMAC to create a token that's tied to the user
    mac := hmac.New(sha256.New, []byte(os.Getenv("SECRET_KEY")))
    mac.Write([]byte(fmt.Sprintf("%d", userID)))
    mac.Write(b)

    signature := mac.Sum(nil)
    return fmt.Sprintf("%d_%x_%x", userID, b, signature), nil
}

func saveRefreshToken(db *gorm.DB, userID uint, refreshToken string) error {
    expirationTime := time.Now().Add(30 * 24 * time.Hour) // 30 days
    return db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
        "refresh_token":            refreshToken,
        "refresh_token_expired_at": expirationTime,
    }).Error
}
