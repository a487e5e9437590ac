package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskMetadata(t *testing.T) {
	out := MaskMetadata(map[string]any{
		"email":  "jane@example.com",
		"phone":  "+15551234567",
		"status": "active",
		"nested": map[string]any{"password": "hunter22"},
	})

	assert.Equal(t, "j****@example.com", out["email"])
	assert.Equal(t, "****4567", out["phone"])
	assert.Equal(t, "active", out["status"])
	assert.Equal(t, map[string]any{"password": "****er22"}, out["nested"])
}

func TestMaskSecretShort(t *testing.T) {
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "", MaskSecret("  "))
}
