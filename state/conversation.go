package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/deepnoodle-ai/taskloop/llm"
)

// ErrConversationNotFound is returned when no conversation exists for the
// requested workflow id.
var ErrConversationNotFound = errors.New("conversation not found")

// Conversation is the message history for one workflow execution.
type Conversation struct {
	WorkflowID string
	Messages   []*llm.Message
	UpdatedAt  time.Time
}

// ConversationStore keeps conversations in memory, keyed by workflow id.
// Safe for concurrent use.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
}

// NewConversationStore creates an empty store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: map[string]*Conversation{},
	}
}

// Append adds messages to the conversation for the given workflow id,
// creating the conversation if needed.
func (s *ConversationStore) Append(ctx context.Context, workflowID string, messages ...*llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[workflowID]
	if !ok {
		conv = &Conversation{WorkflowID: workflowID}
		s.conversations[workflowID] = conv
	}
	conv.Messages = append(conv.Messages, messages...)
	conv.UpdatedAt = time.Now()
	return nil
}

// Get returns a copy of the conversation for the given workflow id.
func (s *ConversationStore) Get(ctx context.Context, workflowID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[workflowID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	messages := make([]*llm.Message, len(conv.Messages))
	for i, msg := range conv.Messages {
		messages[i] = msg.Copy()
	}
	return &Conversation{
		WorkflowID: conv.WorkflowID,
		Messages:   messages,
		UpdatedAt:  conv.UpdatedAt,
	}, nil
}

// Replace swaps the full message history for the given workflow id. Used
// when restoring a conversation from a snapshot.
func (s *ConversationStore) Replace(ctx context.Context, workflowID string, messages []*llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[workflowID] = &Conversation{
		WorkflowID: workflowID,
		Messages:   append([]*llm.Message(nil), messages...),
		UpdatedAt:  time.Now(),
	}
	return nil
}

// Delete removes the conversation for the given workflow id. Deleting a
// missing conversation is not an error.
func (s *ConversationStore) Delete(ctx context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, workflowID)
	return nil
}
