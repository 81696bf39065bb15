package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidDeviceID is returned for device ids that are too long or
// contain characters outside [A-Za-z0-9._-].
var ErrInvalidDeviceID = errors.New("invalid device id")

// Service issues anonymous device tokens. A device asks once without an id,
// stores the id it is given and presents it again when its token expires.
// Saved routes are keyed on that id.
type Service struct {
	jwt *JWTService
}

type ServiceConfig struct {
	JWTService *JWTService
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{jwt: cfg.JWTService}
}

// IssueDeviceToken returns a token for deviceID, generating an id when it is empty.
func (s *Service) IssueDeviceToken(deviceID string) (*TokenResponse, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		deviceID = "dev_" + uuid.NewString()
	}
	if err := validateDeviceID(deviceID); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(deviceID)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwt.TTL().Seconds()),
		ExpiresAt:   expiresAt,
		DeviceID:    deviceID,
	}, nil
}

// ValidateAccessToken returns the device a token was issued to.
func (s *Service) ValidateAccessToken(token string) (string, error) {
	return s.jwt.ValidateAccessToken(token)
}

func validateDeviceID(id string) error {
	if len(id) > MaxDeviceIDLength {
		return fmt.Errorf("%w: must be at most %d characters", ErrInvalidDeviceID, MaxDeviceIDLength)
	}
	for _, c := range id {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '.' || c == '_' || c == '-') {
			return fmt.Errorf("%w: unexpected character %q", ErrInvalidDeviceID, c)
		}
	}
	return nil
}
