package chat

import (
	"sync"

	"github.com/siherrmann/newsgraph/model"
)

// DefaultHistoryLimit is the number of messages kept per conversation.
const DefaultHistoryLimit = 20

// HistoryStore keeps the messages of conversations. Implementations must be
// safe for concurrent use and keep at most their limit of messages per
// conversation, dropping the oldest first.
type HistoryStore interface {
	Append(conversationID string, messages ...model.Message)
	Messages(conversationID string) []model.Message
	Delete(conversationID string)
}

// MemoryHistory is a process local HistoryStore.
type MemoryHistory struct {
	conversations map[string][]model.Message
	limit         int
	mu            sync.RWMutex
}

// NewMemoryHistory creates a new in-memory history keeping limit messages
// per conversation. A limit below one selects DefaultHistoryLimit.
func NewMemoryHistory(limit int) *MemoryHistory {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	return &MemoryHistory{
		conversations: make(map[string][]model.Message),
		limit:         limit,
	}
}

func (h *MemoryHistory) Append(conversationID string, messages ...model.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conversation := append(h.conversations[conversationID], messages...)
	if len(conversation) > h.limit {
		conversation = append([]model.Message(nil), conversation[len(conversation)-h.limit:]...)
	}
	h.conversations[conversationID] = conversation
}

// Messages returns a copy of the conversation, oldest message first.
func (h *MemoryHistory) Messages(conversationID string) []model.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return append([]model.Message{}, h.conversations[conversationID]...)
}

func (h *MemoryHistory) Delete(conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conversations, conversationID)
}
