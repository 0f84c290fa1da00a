package indexer

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/vitrine/internal/domain/product"
)

// ErrImageMissing is returned by an ImageSource when a row has no image file.
var ErrImageMissing = errors.New("image file missing")

// ImageSource loads the image bytes for a record and reports their MIME type.
type ImageSource func(rec *Record) ([]byte, string, error)

// DirImages reads images from root. Both the flat layout (root/<Image>) and the
// dataset layout (root/<Category>/<Gender>/Images/images_with_product_ids/<Image>) are tried.
func DirImages(root string) ImageSource {
	return func(rec *Record) ([]byte, string, error) {
		if rec.ImageName == "" {
			return nil, "", ErrImageMissing
		}
		name := filepath.Base(rec.ImageName)
		candidates := []string{
			filepath.Join(root, rec.Product.Attribute(product.Category), rec.Product.Attribute(product.Gender),
				"Images", "images_with_product_ids", name),
			filepath.Join(root, name),
		}
		for _, path := range candidates {
			data, err := os.ReadFile(filepath.Clean(path))
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, "", fmt.Errorf("read %s: %w", path, err)
			}
			return data, imageMIME(path, data), nil
		}
		return nil, "", fmt.Errorf("%w: %s", ErrImageMissing, name)
	}
}

func imageMIME(path string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}
