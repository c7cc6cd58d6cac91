package domain

import "time"

// Device platforms.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// DeviceToken is a push-delivery endpoint for one user device. DeviceID is
// the client-supplied identifier and the table's partition key, so
// re-registration replaces the row instead of duplicating it.
type DeviceToken struct {
	DeviceID  string    `json:"device_id" dynamodbav:"device_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Token     string    `json:"token" dynamodbav:"token"`
	Platform  string    `json:"platform" dynamodbav:"platform"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

type RegisterDeviceRequest struct {
	DeviceID string `json:"device_id" validate:"required"`
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=android ios"`
}
