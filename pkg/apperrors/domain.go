package apperrors

import (
	"net/http"
)

/*
Factories and predefined variables for the dealroom domain.
Repository sentinel errors get wrapped through these before they
reach a handler.
*/

// ErrNotFound converts a repository miss (gorm.ErrRecordNotFound) into a 404.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrConflict is the generic conflict factory.
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidTransition rejects a stage action that the lifecycle rules
// do not permit from the room's current state.
func ErrInvalidTransition(message string) *AppError {
	return New(CodeInvalidTransition, "dealroom", message, http.StatusConflict)
}

// --- Dealrooms ---

var ErrNotParticipant = New(
	CodeForbidden,
	"dealroom",
	"You are not a participant of this dealroom",
	http.StatusForbidden,
)

var ErrDealroomClosed = New(
	CodeInvalidTransition,
	"dealroom",
	"Dealroom is closed",
	http.StatusConflict,
)

var ErrSelfDealroom = New(
	CodeValidationFailed,
	"dealroom",
	"Cannot open a dealroom with yourself",
	http.StatusBadRequest,
)

var ErrNotAContact = New(
	CodeForbidden,
	"dealroom",
	"User is not in your contact list",
	http.StatusForbidden,
)

var ErrContractMissing = New(
	CodeInvalidTransition,
	"dealroom",
	"No contract has been built yet",
	http.StatusConflict,
)

// --- Messaging ---

var ErrConversationAccessDenied = New(
	CodeForbidden,
	"messaging",
	"Access to conversation denied",
	http.StatusForbidden,
)

var ErrEmptyMessage = New(
	CodeValidationFailed,
	"messaging",
	"Message content must not be empty",
	http.StatusBadRequest,
)

var ErrAmbiguousTarget = New(
	CodeValidationFailed,
	"messaging",
	"Exactly one message target must be provided",
	http.StatusBadRequest,
)

// --- Auth ---

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already in use",
	http.StatusConflict,
)

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)
