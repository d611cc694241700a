// Package models defines data structures used throughout the survey backend.
package models

import (
	"database/sql"
	"time"
)

// User represents an account that owns surveys
type User struct {
	ID           int       `json:"id" yaml:"id"`
	Username     string    `json:"username" yaml:"username"`
	PasswordHash string    `json:"-" yaml:"-"` // Omit from JSON responses
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

// NullStringFromPointer converts an optional string into its nullable column form
func NullStringFromPointer(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
