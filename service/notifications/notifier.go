package notification

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Arnack/wisely-2/cmd/models"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"gorm.io/gorm"
)

// Notifier pushes to all of a user's registered devices. Appointment and call
// flows use it for best-effort side effects; a push failure never fails the
// operation that triggered it.
type Notifier struct {
	db         *gorm.DB
	expoClient *expo.PushClient
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{
		db:         db,
		expoClient: expo.NewPushClient(nil),
	}
}

// NotifyUser sends a push to every device the user registered and records one
// history row. Errors are logged and swallowed.
func (n *Notifier) NotifyUser(userID uint, title, body string, data map[string]interface{}) {
	var devices []models.Device
	if err := n.db.Where("user_id = ?", userID).Find(&devices).Error; err != nil {
		log.Printf("Error loading devices for user %d: %v", userID, err)
		return
	}

	status := "sent"
	if len(devices) == 0 {
		status = "skipped"
	} else {
		tokens := make([]string, 0, len(devices))
		for _, device := range devices {
			tokens = append(tokens, device.Token)
		}
		if ok, err := n.send(tokens, title, body, data); !ok || err != nil {
			log.Printf("Error pushing notification to user %d: %v", userID, err)
			status = "failed"
		}
	}

	dataJSON, _ := json.Marshal(data)
	history := models.NotificationHistory{
		UserID: userID,
		Title:  title,
		Body:   body,
		Data:   string(dataJSON),
		Status: status,
		SentAt: time.Now(),
	}
	if err := n.db.Create(&history).Error; err != nil {
		log.Printf("Error creating notification history: %v", err)
	}
}

func (n *Notifier) send(tokenStrings []string, title, body string, data map[string]interface{}) (bool, error) {
	var validTokens []expo.ExponentPushToken
	var invalidTokens []string

	// Validate and convert tokens
	for _, tokenString := range tokenStrings {
		pushToken, err := expo.NewExponentPushToken(tokenString)
		if err != nil {
			log.Printf("Invalid push token format %s: %v", tokenString, err)
			invalidTokens = append(invalidTokens, tokenString)
			continue
		}
		validTokens = append(validTokens, pushToken)
	}

	if len(validTokens) == 0 {
		return false, fmt.Errorf("no valid push tokens found")
	}

	// Convert data to map[string]string
	var stringData map[string]string
	if data != nil {
		stringData = make(map[string]string)
		for key, value := range data {
			stringData[key] = fmt.Sprintf("%v", value)
		}
	}

	pushMessage := &expo.PushMessage{
		To:       validTokens,
		Body:     body,
		Title:    title,
		Sound:    "default",
		Priority: expo.DefaultPriority,
		Data:     stringData,
	}

	response, err := n.expoClient.Publish(pushMessage)
	if err != nil {
		return false, fmt.Errorf("failed to publish notification: %v", err)
	}

	if validationErr := response.ValidateResponse(); validationErr != nil {
		log.Printf("Push notification validation error: %v", validationErr)
		n.cleanupInvalidTokens(invalidTokens)
		return false, fmt.Errorf("notification validation failed: %v", validationErr)
	}

	if len(invalidTokens) > 0 {
		n.cleanupInvalidTokens(invalidTokens)
	}

	return true, nil
}

func (n *Notifier) cleanupInvalidTokens(tokens []string) {
	if len(tokens) == 0 {
		return
	}
	if err := n.db.Where("token IN ?", tokens).Delete(&models.Device{}).Error; err != nil {
		log.Printf("Error cleaning up invalid device tokens: %v", err)
	}
}
