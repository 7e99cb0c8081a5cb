package core

// errors.go maps internal errors to user-facing messages with stable
// codes. Operators quote the code when filing an issue; the technical
// error stays in the server log.
//
// Code groups:
//
//	CFG001-CFG099 - configuration problems (mapping, format, zone)
//	ING001-ING099 - ingest stream problems
//	SYS001-SYS099 - system and capacity problems

import (
	"context"
	"errors"
	"fmt"

	"github.com/rsgrizz/chat-engine/internal/ingest"
	"github.com/rsgrizz/chat-engine/internal/store"
)

// UserMessage is a user-friendly rendering of an internal error.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// MapError converts an internal error to a UserMessage. Unrecognized
// errors get a generic message; the caller logs the original.
func MapError(err error) UserMessage {
	var typeErr *ingest.UnsupportedTypeError
	if errors.As(err, &typeErr) {
		return UserMessage{
			Message: fmt.Sprintf("Unsupported file type %q", typeErr.Ext),
			Action:  "Export the data as .csv or .xlsx and try again",
			Code:    "CFG001",
		}
	}

	var encErr *ingest.UnsupportedEncodingError
	if errors.As(err, &encErr) {
		return UserMessage{
			Message: fmt.Sprintf("Unknown text encoding %q", encErr.Name),
			Action:  "Use utf-8, latin-1 or windows-1252",
			Code:    "CFG002",
		}
	}

	switch {
	case errors.Is(err, ingest.ErrWorkbookSupport):
		return UserMessage{
			Message: "Spreadsheet support is not available on this server",
			Action:  "Convert the workbook to CSV before uploading",
			Code:    "CFG003",
		}

	case errors.Is(err, ErrUnknownMapping):
		return UserMessage{
			Message: "The requested column mapping is not registered",
			Action:  "List available mappings via GET /api/mappings",
			Code:    "CFG004",
		}

	case errors.Is(err, store.ErrRunNotFound):
		return UserMessage{
			Message: "Ingest run not found",
			Action:  "It may have been rolled back already",
			Code:    "ING001",
		}

	case errors.Is(err, ErrTooManyRuns):
		return UserMessage{
			Message: "System is busy processing other ingests",
			Action:  "Please wait a moment and try again",
			Code:    "SYS001",
		}

	case errors.Is(err, context.Canceled):
		return UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "SYS002",
		}

	case errors.Is(err, context.DeadlineExceeded):
		return UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or raise INGEST_TIMEOUT",
			Code:    "SYS003",
		}
	}

	return UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Check the server logs for details",
		Code:    "SYS999",
	}
}
