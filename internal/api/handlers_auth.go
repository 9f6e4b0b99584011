// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/visitgrid/visitgrid/internal/auth"
	"github.com/visitgrid/visitgrid/internal/logging"
)

// LoginRequest is the operator login payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Role      string    `json:"role"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req LoginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Malformed JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if !h.creds.Verify(req.Username, req.Password) {
		logging.Warn().Str("username", sanitizeLogValue(req.Username)).Msg("Failed login attempt")
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
		return
	}

	token, err := h.jwt.GenerateToken(req.Username, auth.RoleAdmin)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", err)
		return
	}

	respondSuccess(w, http.StatusOK, &LoginResponse{
		Token: token,
		Role:  auth.RoleAdmin,
	}, start)
}

// Refresh handles POST /api/v1/auth/refresh, exchanging a still-valid
// bearer token for a fresh one.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	authHeader := r.Header.Get("Authorization")
	tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found || tokenString == "" {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Expected bearer token", nil)
		return
	}

	refreshed, err := h.jwt.Refresh(tokenString)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired", nil)
		return
	}

	claims, _ := h.jwt.ValidateToken(refreshed)
	role := auth.RoleAdmin
	if claims != nil {
		role = claims.Role
	}

	respondSuccess(w, http.StatusOK, &LoginResponse{
		Token: refreshed,
		Role:  role,
	}, start)
}
