package infrastructure

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"mesaYaReviews/internal/modules/restaurants/application/port"
)

const (
	photoFileField    = "file"
	photoCaptionField = "caption"
	defaultPhotoName  = "photo"
)

// encodePhotoUpload buffers the multipart form for a photo upload so the request can be
// rebuilt on replay. The file part is sent as application/octet-stream and the caption
// field is left out when empty.
func encodePhotoUpload(upload port.PhotoUpload) ([]byte, string, error) {
	if upload.Content == nil {
		return nil, "", fmt.Errorf("photo upload without content")
	}
	filename := filepath.Base(strings.TrimSpace(upload.Filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		filename = defaultPhotoName
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(photoFileField, filename)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return nil, "", fmt.Errorf("copy photo content: %w", err)
	}
	if caption := strings.TrimSpace(upload.Caption); caption != "" {
		if err := writer.WriteField(photoCaptionField, caption); err != nil {
			return nil, "", fmt.Errorf("write caption: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}
