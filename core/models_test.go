package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "https://example.com/article",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "https://example.com/a/very/long/path?with=query&parameters=that&should=still&hash=consistently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("https://example.com/one")
	id2 := IDFromContent("https://example.com/two")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestObjectType_String(t *testing.T) {
	tests := []struct {
		objType ObjectType
		want    string
	}{
		{ObjectTypeBookmark, "bookmark"},
		{ObjectTypePDF, "pdf"},
		{ObjectTypeEmail, "email"},
		{ObjectTypeNotebook, "notebook"},
		{ObjectTypeNote, "note"},
		{ObjectType(0), "unknown"},
		{ObjectType(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.objType.String(); got != tt.want {
				t.Errorf("ObjectType.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObjectType_Prechunked(t *testing.T) {
	if !ObjectTypePDF.Prechunked() {
		t.Errorf("ObjectTypePDF.Prechunked() = false, want true")
	}
	for _, objType := range []ObjectType{ObjectTypeBookmark, ObjectTypeEmail, ObjectTypeNotebook, ObjectTypeNote} {
		if objType.Prechunked() {
			t.Errorf("%s.Prechunked() = true, want false", objType)
		}
	}
}
