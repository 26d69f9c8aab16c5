// NichePulse - Instagram Niche Analytics Service
// Copyright 2026 NichePulse contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nichepulse/nichepulse

package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/nichepulse/nichepulse/internal/config"
)

// AdminRole is the role granted to the configured admin account.
const AdminRole = "admin"

// ErrInvalidCredentials is returned for any authentication failure. The
// cause (unknown user vs wrong password) is deliberately not distinguished.
var ErrInvalidCredentials = errors.New("invalid username or password")

// CredentialChecker verifies login credentials against the configured admin
// account. Passwords are compared against a bcrypt hash.
type CredentialChecker struct {
	username     string
	passwordHash []byte
}

// NewCredentialChecker creates a checker for the configured admin account.
func NewCredentialChecker(cfg *config.SecurityConfig) *CredentialChecker {
	return &CredentialChecker{
		username:     cfg.AdminUsername,
		passwordHash: []byte(cfg.AdminPasswordHash),
	}
}

// Verify checks a username and password pair. Returns the role on success
// and ErrInvalidCredentials otherwise.
func (c *CredentialChecker) Verify(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1

	// Always run the bcrypt comparison so response timing does not reveal
	// whether the username exists.
	passErr := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password))

	if !userOK || passErr != nil {
		return "", ErrInvalidCredentials
	}
	return AdminRole, nil
}

// HashPassword produces a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
