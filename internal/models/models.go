// Package models holds the shared record types persisted by the store and
// exchanged with API clients.
package models

import "time"

// Roles a user can hold.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// Work-from-home request states.
const (
	WFHPending  = "pending"
	WFHApproved = "approved"
	WFHRejected = "rejected"
)

// User is an account record. PasswordHash and the OTP fields are storage
// details; Redacted strips them before a record leaves the server.
type User struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	IsActive     bool      `json:"is_active"`
	OTP          string    `json:"otp,omitempty"`
	OTPExpiry    time.Time `json:"otp_expiry,omitempty"`
}

// Redacted returns a copy safe to return to API callers.
func (u User) Redacted() User {
	u.PasswordHash = ""
	u.OTP = ""
	u.OTPExpiry = time.Time{}
	return u
}

// FileMetadata describes one stored file. EncryptionKey holds the
// base64-encoded per-file key; it lives only alongside the metadata and is
// never transmitted to a file-consuming caller.
type FileMetadata struct {
	FileID        string    `json:"file_id"`
	Filename      string    `json:"filename"`
	UploadedBy    string    `json:"uploaded_by"`
	UploadedAt    time.Time `json:"uploaded_at"`
	Size          int64     `json:"size"`
	Encrypted     bool      `json:"encrypted"`
	EncryptionKey string    `json:"encryption_key,omitempty"`
}

// WithoutKey returns a copy with the key material stripped for listings.
func (m FileMetadata) WithoutKey() FileMetadata {
	m.EncryptionKey = ""
	return m
}

// WFHRequest is a work-from-home exemption request. An approved request is
// the override grant that bypasses the contextual access checks; at most one
// request exists per employee at a time.
type WFHRequest struct {
	Username     string     `json:"employee_username"`
	Reason       string     `json:"reason"`
	Status       string     `json:"status"`
	AdminComment string     `json:"admin_comment,omitempty"`
	RequestedAt  time.Time  `json:"requested_at"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
}
