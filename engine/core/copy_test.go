package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMap(t *testing.T) {
	t.Run("Should deep copy nested values", func(t *testing.T) {
		src := map[string]any{"entity": map[string]any{"id": "e1"}, "tags": []any{"a"}}
		out := CloneMap(src)
		out["entity"].(map[string]any)["id"] = "changed"
		out["tags"].([]any)[0] = "b"
		assert.Equal(t, "e1", src["entity"].(map[string]any)["id"])
		assert.Equal(t, "a", src["tags"].([]any)[0])
	})
	t.Run("Should keep nil as nil", func(t *testing.T) {
		assert.Nil(t, CloneMap(nil))
	})
}
