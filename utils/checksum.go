package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// FileChecksum returns the hex-encoded SHA-256 of the file content.
// Used for duplicate-import detection on uploaded returns files.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ContentChecksum hashes an in-memory payload the same way FileChecksum does.
func ContentChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
