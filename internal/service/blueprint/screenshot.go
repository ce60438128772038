package blueprint

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"coipond/internal/config"
	"coipond/internal/domain"
	bpSvc "coipond/internal/domain/services/blueprint"
)

var screenshotExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// validateScreenshot checks size and type and returns the normalized content type.
// The declared type is ignored in favour of what the bytes look like.
func validateScreenshot(upload *bpSvc.ScreenshotUpload) (string, error) {
	if len(upload.Data) == 0 {
		return "", fmt.Errorf("%w: screenshot is empty", domain.ErrValidation)
	}
	if len(upload.Data) > config.MaxScreenshotSize {
		return "", fmt.Errorf("%w: screenshot exceeds %d MB", domain.ErrValidation, config.MaxScreenshotSize>>20)
	}

	contentType := http.DetectContentType(upload.Data)
	if _, ok := screenshotExtensions[contentType]; !ok {
		return "", fmt.Errorf("%w: screenshot must be a PNG, JPEG, WebP or GIF image (got %s)", domain.ErrValidation, contentType)
	}
	return contentType, nil
}

// screenshotKey is the object key of a blueprint's screenshot: blueprints/<id>.<ext>.
// The extension follows the uploaded file name when it is a known image type.
func screenshotKey(id, filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
	default:
		ext = screenshotExtensions[contentType]
	}
	return "blueprints/" + id + ext
}
