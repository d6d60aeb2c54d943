package repo

import (
	"context"
	"sync"

	"github.com/FinMentor-core-poc-v1/server/internal/advisor/model"
)

// MemoryConversationStore is the default store when no Redis URL is
// configured, and the test double. It deep-copies on both Save and Get so
// callers never alias the stored record.
type MemoryConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*model.Conversation
}

func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{
		conversations: make(map[string]*model.Conversation),
	}
}

func (s *MemoryConversationStore) Get(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	return conv.Clone(), nil
}

func (s *MemoryConversationStore) Save(ctx context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[conv.ID] = conv.Clone()
	return nil
}

func (s *MemoryConversationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, id)
	return nil
}

// Len reports the number of stored conversations.
func (s *MemoryConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

var _ model.ConversationStore = (*MemoryConversationStore)(nil)
