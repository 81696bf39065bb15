// Package auth issues and validates anonymous device tokens.
package auth

import "time"

// MaxDeviceIDLength bounds client supplied device ids.
const MaxDeviceIDLength = 128

// DeviceTokenRequest is the body of POST /v1/auth/device. An empty body
// registers a new device.
type DeviceTokenRequest struct {
	DeviceID string `json:"deviceId,omitempty"`
}

// TokenResponse carries a bearer token and the device it belongs to.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresIn   int64     `json:"expiresIn"`
	ExpiresAt   time.Time `json:"expiresAt"`
	DeviceID    string    `json:"deviceId"`
}
