package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "Milimani", SanitizeInput("  Milimani  "))
	assert.Equal(t, "HCCC/E123", SanitizeInput("HCCC/E123\x00"))
	assert.Equal(t, "", SanitizeInput("   "))
}
