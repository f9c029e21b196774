package entities

import "time"

type NotificationSettings struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

type UserPreferences struct {
	Language             string               `json:"language"`
	Timezone             string               `json:"timezone"`
	NotificationSettings NotificationSettings `json:"notification_settings"`
}

type User struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone,omitempty"`
	TelegramID  string          `json:"telegram_id,omitempty"`
	WhatsappID  string          `json:"whatsapp_id,omitempty"`
	Preferences UserPreferences `json:"preferences"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DefaultPreferences is what synthesized users get when a channel has no
// profile information to offer.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Language: "pt-BR",
		Timezone: "America/Sao_Paulo",
		NotificationSettings: NotificationSettings{
			Email: true,
			Push:  true,
			SMS:   false,
		},
	}
}
