package core

// # Error Codes Reference
//
// This file maps technical errors to user-facing messages with a code that
// can be quoted to support. Codes are grouped by category:
//
//	VAL001-VAL099  Rule, definition and cell validation
//	FILE001-FILE099  Uploaded file handling
//	RUN001-RUN099  Cleaning runs and their artifacts
//	DB001-DB099  Run store connectivity
//	ERR000  Anything not recognised
//
// Matching is a case-insensitive substring search over err.Error(), first
// match wins, so more specific patterns must come first.

import (
	"fmt"
	"strings"
)

// UserMessage is a user-friendly rendering of an error.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Validation Errors (VAL001-VAL006)
	// =========================================================================
	{
		pattern: "invalid rule",
		msg: UserMessage{
			Message: "A consistency rule is malformed",
			Action:  "Check operator, columns and repair mode in the rule file",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid dataset definition",
		msg: UserMessage{
			Message: "A dataset definition is malformed",
			Action:  "Check the dataset entry in the rule file",
			Code:    "VAL002",
		},
	},
	{
		pattern: "missing expected columns",
		msg: UserMessage{
			Message: "The file is missing expected columns",
			Action:  "Compare the CSV header with the dataset definition",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use YYYY-MM-DD or DD-MM-YYYY",
			Code:    "VAL004",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Remove units and use a plain decimal format",
			Code:    "VAL005",
		},
	},
	{
		pattern: "must be within [0,1]",
		msg: UserMessage{
			Message: "Threshold must be a fraction between 0 and 1",
			Action:  "Use e.g. 0.2 for a 20% inconsistency threshold",
			Code:    "VAL006",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "wrong number of fields",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure every row has the same number of columns as the header",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File could not be decoded with any supported encoding",
			Action:  "Save the file as UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with a header and data rows",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Run Errors (RUN001-RUN007)
	// =========================================================================
	{
		pattern: "unknown dataset",
		msg: UserMessage{
			Message: "Dataset is not registered",
			Action:  "List available datasets and check the name",
			Code:    "RUN001",
		},
	},
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "Cleaning run not found",
			Action:  "The run may have been pruned. Start a new run",
			Code:    "RUN002",
		},
	},
	{
		pattern: "too many cleaning runs",
		msg: UserMessage{
			Message: "System is busy with other cleaning runs",
			Action:  "Please wait a moment and try again",
			Code:    "RUN003",
		},
	},
	{
		pattern: "quarantine batch not found",
		msg: UserMessage{
			Message: "This run has no quarantined rows for that reason",
			Action:  "Check the run summary for available reasons",
			Code:    "RUN004",
		},
	},
	{
		pattern: "dataset is nil",
		msg: UserMessage{
			Message: "No data was loaded",
			Action:  "Check that the file has a header row",
			Code:    "RUN005",
		},
	},

	// =========================================================================
	// Store Errors (DB001-DB004)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the run store",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Run store connection was interrupted",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB003",
		},
	},
	{
		pattern: "database not open",
		msg: UserMessage{
			Message: "Run store is closed",
			Action:  "Restart the service",
			Code:    "DB004",
		},
	},

	// =========================================================================
	// Request lifecycle (RUN006-RUN007)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "RUN006",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "RUN007",
		},
	},
}

// defaultMessage is returned for errors that match no pattern.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
