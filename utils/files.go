package utils

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// GenerateUniqueFilename returns a collision-free name for a stored upload,
// keeping the original extension so the file type stays recognizable.
func GenerateUniqueFilename(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return uuid.NewString() + ext
}
