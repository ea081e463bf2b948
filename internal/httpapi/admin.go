// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/BCSkins-com/bcskins-inspect/internal/logging"
)

// adminTokenTTL bounds how long an issued admin token stays valid.
const adminTokenTTL = time.Hour

// AdminToken serves POST /admin/token: exchanges the operator secret for
// a short-lived bearer token. ADMIN_TOKEN_SECRET holds a bcrypt hash of
// the secret, never the secret itself.
func (h *Handler) AdminToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Secret string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed body"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.cfg.AdminTokenSecret), []byte(body.Secret)); err != nil {
		logging.Warn().Str("remote", r.RemoteAddr).Msg("Admin token request rejected")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenTTL)),
	})
	signed, err := token.SignedString(h.signingKey())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token signing failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": signed})
}

// adminAuth guards the reconnect endpoints with a bearer-token check.
func (h *Handler) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			return
		}

		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return h.signingKey(), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ReconnectBot serves POST /admin/reconnect/{username}.
func (h *Handler) ReconnectBot(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing username"})
		return
	}
	h.fleet.ReconnectBot(username)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reconnect requested"})
}

// ReconnectAll serves POST /admin/reconnect-all.
func (h *Handler) ReconnectAll(w http.ResponseWriter, r *http.Request) {
	h.fleet.ReconnectAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reconnect-all requested"})
}

// signingKey derives the JWT HMAC key from the configured secret hash;
// rotating the admin secret invalidates outstanding tokens with it.
func (h *Handler) signingKey() []byte {
	return []byte(h.cfg.AdminTokenSecret)
}
