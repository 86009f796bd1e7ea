package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrConfiguration", ErrConfiguration},
		{"ErrTransientRequest", ErrTransientRequest},
		{"ErrFatalRequest", ErrFatalRequest},
		{"ErrMalformedResponse", ErrMalformedResponse},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrAuthInvalid", ErrAuthInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Wrapping(t *testing.T) {
	wrapped := fmt.Errorf("stream issues: %w", ErrFatalRequest)

	assert.True(t, errors.Is(wrapped, ErrFatalRequest))
	assert.False(t, errors.Is(wrapped, ErrTransientRequest))
}

func TestErrors_Distinct(t *testing.T) {
	assert.False(t, errors.Is(ErrConfiguration, ErrMalformedResponse))
	assert.False(t, errors.Is(ErrTransientRequest, ErrFatalRequest))
}
