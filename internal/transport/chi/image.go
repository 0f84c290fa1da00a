package chi

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"

	"github.com/kailas-cloud/vitrine/internal/domain"
)

const (
	// MaxImageBytes is the largest accepted upload.
	MaxImageBytes = 10 << 20
	imageFormField = "file"
	// multipart framing around the file part
	multipartOverhead = 1 << 20
)

var errImageTooLarge = errors.New("image too large")

// allowedImageFormats maps image.DecodeConfig format names to MIME types.
var allowedImageFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// readImageUpload reads the multipart "file" part and verifies it decodes as a supported image.
// The returned MIME type comes from the decoded content, not the client's header.
func readImageUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes+multipartOverhead)

	file, header, err := r.FormFile(imageFormField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, "", errImageTooLarge
		}
		return nil, "", fmt.Errorf("%w: multipart field %q is required", domain.ErrInvalidImage, imageFormField)
	}
	defer file.Close()

	if header.Size > MaxImageBytes {
		return nil, "", errImageTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", errImageTooLarge
	}

	mime, err := detectImage(data)
	if err != nil {
		return nil, "", err
	}
	return data, mime, nil
}

func detectImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", domain.ErrInvalidImage)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidImage, err)
	}
	mime, ok := allowedImageFormats[format]
	if !ok {
		return "", fmt.Errorf("%w: unsupported format %q", domain.ErrInvalidImage, format)
	}
	return mime, nil
}
