package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBase(t *testing.T) {
	t.Run("Should return versioned API base path", func(t *testing.T) {
		assert.Equal(t, "/api/v1", Base())
	})
}

func TestResourceRoutes(t *testing.T) {
	t.Run("Should mount resources under the API base", func(t *testing.T) {
		assert.Equal(t, "/api/v1/triggers", Triggers())
		assert.Equal(t, "/api/v1/events", Events())
		assert.Equal(t, "/api/v1/jobs", Jobs())
	})
	t.Run("Should keep hooks and health outside the API base", func(t *testing.T) {
		assert.Equal(t, "/hooks", Hooks())
		assert.Equal(t, "/healthz", Health())
	})
}
