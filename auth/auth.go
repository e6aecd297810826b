// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/danielhkuo/chantier/models"
)

// bcrypt ignores everything past 72 bytes
const maxPasswordBytes = 72

var (
	ErrEmptyPassword    = errors.New("password must not be empty")
	ErrPasswordTooLong  = errors.New("password exceeds 72 bytes")
	ErrInvalidPassword  = errors.New("invalid email or password")
	ErrRoleNotPermitted = errors.New("role not permitted for this user")
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateActionID creates the unguessable id of a pending agent action
func GenerateActionID() (string, error) {
	b := make([]byte, 32) // 32 bytes = 256 bits of entropy
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate action id: %w", err)
	}
	// URL-safe base64 without padding
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// NewUserID returns an id of the form user-<12 hex chars>
func NewUserID() string {
	hexID := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "user-" + hexID[:12]
}

// NewProjectID returns an id of the form project-<unix ms>
func NewProjectID(now time.Time) string {
	return fmt.Sprintf("project-%d", now.UnixMilli())
}

// NewWorkerID returns an id of the form worker-<12 hex chars>
func NewWorkerID() (string, error) {
	hexID, err := GenerateID(6)
	if err != nil {
		return "", err
	}
	return "worker-" + hexID, nil
}

// NewJobID returns a random job id for worker assignments
func NewJobID() string {
	return "job-" + uuid.NewString()
}

// HashPassword bcrypt-hashes a password with the default cost
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword returns nil when password matches hash
func VerifyPassword(hash, password string) error {
	if hash == "" || password == "" || len(password) > maxPasswordBytes {
		return ErrInvalidPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// CanSetApproval reports whether a user with userRole may change the
// approval of approvalRole. An empty userRole is an internal caller.
func CanSetApproval(userRole, approvalRole string) error {
	role, ok := models.ParseRole(approvalRole)
	if !ok {
		return fmt.Errorf("%w: unknown approval role %q", ErrRoleNotPermitted, approvalRole)
	}

	switch strings.ToLower(strings.TrimSpace(userRole)) {
	case "", models.UserAdmin, models.UserContractor:
		return nil
	case models.UserClient:
		if role == models.RoleClient {
			return nil
		}
	}
	return ErrRoleNotPermitted
}
