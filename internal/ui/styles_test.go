package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultStyles_ReturnsStyles(t *testing.T) {
	styles := DefaultStyles()

	assert.NotNil(t, styles.Header)
	assert.NotNil(t, styles.Success)
	assert.NotNil(t, styles.Warning)
	assert.NotNil(t, styles.Error)
	assert.NotNil(t, styles.Dim)
}

func TestNoColorStyles_ReturnsEmptyStyles(t *testing.T) {
	styles := NoColorStyles()

	// We test by rendering empty string - should work without panic
	_ = styles.Header.Render("")
	_ = styles.Success.Render("")
	_ = styles.Warning.Render("")
	_ = styles.Error.Render("")
	_ = styles.Dim.Render("")
}

func TestDefaultStyles_HeaderIsBold(t *testing.T) {
	styles := DefaultStyles()

	rendered := styles.Header.Render("Test")

	assert.Contains(t, rendered, "Test")
}

func TestGetStyles_WithNoColor(t *testing.T) {
	styles := GetStyles(true)

	text := styles.Success.Render("test")
	assert.Equal(t, "test", text)
}

func TestGetStyles_WithColor(t *testing.T) {
	styles := GetStyles(false)

	// Note: exact ANSI codes depend on terminal, but text should be present
	text := styles.Success.Render("test")
	assert.Contains(t, text, "test")
}
