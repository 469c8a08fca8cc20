package app

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// The service taxonomy. Storage failures surface server-side; everything a
// commenter can cause on their own surfaces client-side so injection attempts
// and replays are not rewarded with retries.
func errStorageRead(err error) *DomainError {
	return domainError(http.StatusInternalServerError, "STORAGE_READ", "Storage read failed", err.Error())
}

func errInsertFailed(err error) *DomainError {
	return domainError(http.StatusInternalServerError, "INSERT_FAILED", "Comment insert failed", err.Error())
}

func errPathRejected(path string) *DomainError {
	return domainError(http.StatusBadRequest, "PATH_REJECTED", "Path does not exist on the configured host", map[string]string{"path": path})
}

func errUnauthorized() *DomainError {
	return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Identity hash mismatch or edit window elapsed", nil)
}

func errAlreadyVoted() *DomainError {
	return domainError(http.StatusConflict, "ALREADY_VOTED", "This fingerprint already voted on the comment", nil)
}

func errRateLimited() *DomainError {
	return domainError(http.StatusTooManyRequests, "RATE_LIMITED", "Too many comments from this address, slow down", nil)
}

func errDataIntegrity(message string) *DomainError {
	return domainError(http.StatusInternalServerError, "DATA_INTEGRITY", message, nil)
}
