package token

// Package token decodes bearer credentials into advisory claims.
//
// Decoding is deliberately unverified: signature validation is the backend's
// responsibility, and downstream code must treat the claims as a UX hint only
// (pre-rendering role-gated navigation), never as an authorization decision.

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/brightline/console-auth/internal/apperrors"
	domainauth "github.com/brightline/console-auth/internal/domain/auth"
)

// rawClaims mirrors the directory token payload shape.
type rawClaims struct {
	Subject     string   `json:"sub"`
	TenantID    string   `json:"tid"`
	Email       string   `json:"email"`
	UPN         string   `json:"preferred_username"`
	DisplayName string   `json:"name"`
	Roles       []string `json:"roles"`
	jwt.RegisteredClaims
}

// Decode extracts TokenClaims from a bearer string without verifying its
// signature. A malformed token (not three dot-separated base64url segments,
// or a non-JSON payload) yields a decode AppError; Decode never panics.
func Decode(tokenString string) (domainauth.TokenClaims, error) {
	if tokenString == "" {
		return domainauth.TokenClaims{}, apperrors.Decode("empty token")
	}

	var raw rawClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &raw); err != nil {
		return domainauth.TokenClaims{}, apperrors.Wrap(err, apperrors.ErrCodeDecode, "parse token")
	}

	email := raw.Email
	if email == "" {
		email = raw.UPN
	}

	return domainauth.TokenClaims{
		SubjectID:   raw.Subject,
		TenantID:    raw.TenantID,
		Email:       email,
		DisplayName: raw.DisplayName,
		Roles:       raw.Roles,
	}, nil
}
