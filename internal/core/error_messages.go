package core

// error_messages.go turns technical errors into messages a user can act on.
// Each message carries a code that can be quoted to support.
//
// # Record Errors (REC001-REC099)
//
//	REC001 - Empty input: the CSV had no header row
//	REC002 - Format: row/field count mismatch, unknown field or invalid value
//	REC003 - Not found: no record has the requested key
//	REC004 - Index: a record position was out of range (an internal bug)
//
// # Dataset Errors (DS001-DS099)
//
//	DS001 - Unknown dataset: no dataset is registered under that key
//	DS002 - Nothing to undo: the dataset has no earlier contents in memory
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - No file provided
//	FILE003 - Request cancelled or timed out
//	FILE004 - Too many imports running; retry shortly
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused
//	DB002 - Connection reset
//	DB003 - Timeout
//	DB004 - Deadlock or busy database
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error; check the logs for the technical error
//
// Sentinel errors are matched first with errors.Is. Anything else falls back
// to case-insensitive substring patterns; the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrEmptyInput, UserMessage{
		Message: "The file has no header row",
		Action:  "Upload a CSV whose first line names the columns",
		Code:    "REC001",
	}},
	{ErrFormat, UserMessage{
		Message: "The data does not match the dataset's columns",
		Action:  "Check the column names and that every row has the same number of fields",
		Code:    "REC002",
	}},
	{ErrNotFound, UserMessage{
		Message: "No record has that key",
		Action:  "Pick an existing record and try again",
		Code:    "REC003",
	}},
	{ErrIndex, UserMessage{
		Message: "The record position is out of range",
		Action:  "Reload the page and try again",
		Code:    "REC004",
	}},
	{ErrUnknownDataset, UserMessage{
		Message: "Unknown dataset",
		Action:  "Choose one of the datasets listed on the dashboard",
		Code:    "DS001",
	}},
	{ErrNothingToUndo, UserMessage{
		Message: "There is nothing to undo",
		Action:  "Only the most recent import, add or edit can be undone",
		Code:    "DS002",
	}},
	{ErrTooManyImports, UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "FILE004",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "FILE003",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "FILE003",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns is ordered specific before general.
var errorPatterns = []errorPattern{
	{"file too large", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{"request body too large", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE002",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to the database",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB002",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Try again later",
		Code:    "DB003",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB004",
	}},
	{"database is locked", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB004",
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(fmt.Errorf("open %q: %w", key, ErrNotFound))
//	// msg.Code == "REC003"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
