package service_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/shahadathhs/service-media/apps/default/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := service.NewAppError(http.StatusTeapot, "short and stout")
	assert.Equal(t, "short and stout", err.Error())
	assert.Equal(t, http.StatusTeapot, err.Status)
}

func TestAsAppError(t *testing.T) {
	t.Run("direct app error", func(t *testing.T) {
		appErr, ok := service.AsAppError(service.ErrFileNotFound)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, appErr.Status)
	})

	t.Run("wrapped app error", func(t *testing.T) {
		wrapped := fmt.Errorf("looking up file: %w", service.ErrFileNotFound)
		appErr, ok := service.AsAppError(wrapped)
		require.True(t, ok)
		assert.Equal(t, "File not found", appErr.Message)
	})

	t.Run("plain error is not an app error", func(t *testing.T) {
		_, ok := service.AsAppError(fmt.Errorf("disk on fire"))
		assert.False(t, ok)
	})
}

func TestErrInvalidVideoTypes(t *testing.T) {
	err := service.ErrInvalidVideoTypes([]string{"image/png", "application/pdf"})
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Contains(t, err.Message, "image/png, application/pdf")
}
