package core

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateObject(t *testing.T) {
	tests := []struct {
		name    string
		object  *ContentObject
		wantErr error
	}{
		{
			name: "valid object",
			object: &ContentObject{
				Id:     1,
				Type:   ObjectTypeBookmark,
				Status: StatusParsed,
				Title:  "Example",
			},
			wantErr: nil,
		},
		{
			name: "valid object with ID 0",
			object: &ContentObject{
				Type:   ObjectTypeEmail,
				Status: StatusNew,
			},
			wantErr: nil,
		},
		{
			name:    "nil object",
			object:  nil,
			wantErr: ErrInvalidObject,
		},
		{
			name: "invalid type",
			object: &ContentObject{
				Type:   ObjectType(999),
				Status: StatusParsed,
			},
			wantErr: ErrInvalidObjectType,
		},
		{
			name: "invalid status",
			object: &ContentObject{
				Type:   ObjectTypeBookmark,
				Status: ObjectStatus(999),
			},
			wantErr: ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObject(tt.object)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateObject() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateObject() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	longEnough := strings.Repeat("semantic content ", 5)

	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name: "valid chunk",
			chunk: &Chunk{
				ObjectId: 1,
				Seq:      0,
				Content:  longEnough,
			},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name: "missing object id",
			chunk: &Chunk{
				Content: longEnough,
			},
			wantErr: ErrInvalidChunk,
		},
		{
			name: "empty content",
			chunk: &Chunk{
				ObjectId: 1,
				Content:  "",
			},
			wantErr: ErrEmptyContent,
		},
		{
			name: "content below minimum length",
			chunk: &Chunk{
				ObjectId: 1,
				Content:  "too short",
			},
			wantErr: ErrChunkTooShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateJob(t *testing.T) {
	if err := ValidateJob(&IngestionJob{ObjectId: 1, Status: JobStatusPending}); err != nil {
		t.Errorf("ValidateJob() error = %v, want nil", err)
	}
	if err := ValidateJob(nil); !errors.Is(err, ErrInvalidJob) {
		t.Errorf("ValidateJob(nil) error = %v, want %v", err, ErrInvalidJob)
	}
	if err := ValidateJob(&IngestionJob{}); !errors.Is(err, ErrInvalidJob) {
		t.Errorf("ValidateJob(no object) error = %v, want %v", err, ErrInvalidJob)
	}
}

func TestTruncateErrorText(t *testing.T) {
	short := "vector count mismatch: expected 3, received 2"
	if got := TruncateErrorText(short); got != short {
		t.Errorf("TruncateErrorText() modified a short message")
	}

	long := strings.Repeat("x", MaxErrorTextLength+500)
	got := TruncateErrorText(long)
	if len([]rune(got)) != MaxErrorTextLength {
		t.Errorf("TruncateErrorText() length = %d, want %d", len([]rune(got)), MaxErrorTextLength)
	}

	// Rune-safe truncation on multi-byte input
	multibyte := strings.Repeat("é", MaxErrorTextLength+10)
	got = TruncateErrorText(multibyte)
	if len([]rune(got)) != MaxErrorTextLength {
		t.Errorf("TruncateErrorText() rune length = %d, want %d", len([]rune(got)), MaxErrorTextLength)
	}
}
