//go:build tools

package tools

// Tool dependencies were previously tracked here with blank imports.
// This module currently tracks none and has no generated mocks.
