package cache

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/antoto2021/nexus/internal/proto"
)

// Conversations keeps the message history of each conversation.
type Conversations struct {
	cache *Cache[proto.Conversation]
}

// NewConversations creates a new conversation cache.
func NewConversations(dir string) (*Conversations, error) {
	cache, err := New[proto.Conversation](dir, ConversationCache)
	if err != nil {
		return nil, err
	}
	return &Conversations{
		cache: cache,
	}, nil
}

// Read loads the history of conversation id into messages.
func (c *Conversations) Read(id string, messages *proto.Conversation) error {
	return c.cache.Read(id, func(r io.Reader) error {
		return decode(r, messages)
	})
}

// Write stores the history of conversation id.
func (c *Conversations) Write(id string, messages *proto.Conversation) error {
	return c.cache.Write(id, func(w io.Writer) error {
		return encode(w, messages)
	})
}

// Delete a conversation.
func (c *Conversations) Delete(id string) error {
	return c.cache.Delete(id)
}

func encode(w io.Writer, v any) error {
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func decode(r io.Reader, v any) error {
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
