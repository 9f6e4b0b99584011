// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/visitgrid/visitgrid/internal/config"
)

// RoleAdmin is the role carried by operator tokens; admin routes require it.
const RoleAdmin = "admin"

// CredentialChecker verifies the single configured operator account.
// Passwords are compared via bcrypt; a plaintext ADMIN_PASSWORD from the
// environment is hashed once at startup so runtime comparison is always
// hash-based.
type CredentialChecker struct {
	username     string
	passwordHash []byte
}

// NewCredentialChecker builds a checker from the security config. Exactly
// one of AdminPassword and AdminPasswordHash must be set, enforced at
// config validation.
func NewCredentialChecker(cfg *config.SecurityConfig) (*CredentialChecker, error) {
	if cfg.AdminUsername == "" {
		return nil, fmt.Errorf("ADMIN_USERNAME is required but was empty")
	}

	hash := []byte(cfg.AdminPasswordHash)
	if len(hash) == 0 {
		generated, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), 12)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
		hash = generated
	}

	return &CredentialChecker{
		username:     cfg.AdminUsername,
		passwordHash: hash,
	}, nil
}

// Verify reports whether the supplied credentials match the operator
// account. Both comparisons are timing-safe.
func (c *CredentialChecker) Verify(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}
