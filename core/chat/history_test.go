package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/siherrmann/newsgraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryHistory(t *testing.T) {
	t.Run("Keeps the newest messages", func(t *testing.T) {
		h := NewMemoryHistory(3)
		for i := range 5 {
			h.Append("c1", model.Message{Role: model.RoleUser, Content: fmt.Sprint(i)})
		}

		messages := h.Messages("c1")
		require.Len(t, messages, 3)
		assert.Equal(t, "2", messages[0].Content)
		assert.Equal(t, "4", messages[2].Content)
	})

	t.Run("Default limit", func(t *testing.T) {
		h := NewMemoryHistory(0)
		for i := range 30 {
			h.Append("c1", model.Message{Content: fmt.Sprint(i)})
		}
		assert.Len(t, h.Messages("c1"), DefaultHistoryLimit)
	})

	t.Run("Messages returns a copy", func(t *testing.T) {
		h := NewMemoryHistory(5)
		h.Append("c1", model.Message{Content: "original"})

		messages := h.Messages("c1")
		messages[0].Content = "changed"
		assert.Equal(t, "original", h.Messages("c1")[0].Content)
	})

	t.Run("Unknown and deleted conversations are empty", func(t *testing.T) {
		h := NewMemoryHistory(5)
		assert.Empty(t, h.Messages("missing"))

		h.Append("c1", model.Message{Content: "x"})
		h.Delete("c1")
		assert.Empty(t, h.Messages("c1"))
	})

	t.Run("Concurrent appends", func(t *testing.T) {
		h := NewMemoryHistory(100)
		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range 10 {
					h.Append(fmt.Sprintf("c%d", i%2), model.Message{Content: fmt.Sprint(j)})
					h.Messages("c0")
				}
			}()
		}
		wg.Wait()

		assert.Len(t, h.Messages("c0"), 50)
		assert.Len(t, h.Messages("c1"), 50)
	})
}
