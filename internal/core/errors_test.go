package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rsgrizz/chat-engine/internal/ingest"
	"github.com/rsgrizz/chat-engine/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "unsupported file type",
			err:      &ingest.UnsupportedTypeError{Ext: ".txt"},
			wantCode: "CFG001",
		},
		{
			name:     "unsupported encoding",
			err:      &ingest.UnsupportedEncodingError{Name: "utf-16"},
			wantCode: "CFG002",
		},
		{
			name:     "no workbook support",
			err:      ingest.ErrWorkbookSupport,
			wantCode: "CFG003",
		},
		{
			name:     "unknown mapping",
			err:      fmt.Errorf("%w: %q", ErrUnknownMapping, "nope"),
			wantCode: "CFG004",
		},
		{
			name:     "run not found",
			err:      store.ErrRunNotFound,
			wantCode: "ING001",
		},
		{
			name:     "too many runs",
			err:      ErrTooManyRuns,
			wantCode: "SYS001",
		},
		{
			name:     "cancelled",
			err:      fmt.Errorf("ingest cancelled at row 100: %w", context.Canceled),
			wantCode: "SYS002",
		},
		{
			name:     "timed out",
			err:      context.DeadlineExceeded,
			wantCode: "SYS003",
		},
		{
			name:     "unknown error",
			err:      errors.New("something else"),
			wantCode: "SYS999",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := MapError(tt.err)
			if msg.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", msg.Code, tt.wantCode)
			}
			if msg.Message == "" {
				t.Error("empty user message")
			}
		})
	}
}
