package models

import "time"

// FileKind separates authored test sources from question images.
type FileKind string

const (
	FileKindTestSource FileKind = "test-source"
	FileKindImage      FileKind = "image"
)

// FileInfo represents metadata about an uploaded file.
type FileInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       FileKind  `json:"kind"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
	Status     string    `json:"status"` // "uploaded", "parsing", "parsed", "error"
}
