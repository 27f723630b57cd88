package models

import "io"

type UploadInput struct {
	File        io.Reader `json:"file,omitempty"`
	Key         string    `json:"key"`
	BucketName  string    `json:"bucket_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
}
