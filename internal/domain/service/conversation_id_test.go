package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationIDIsOrderIndependent(t *testing.T) {
	pairs := [][2]string{
		{"u1", "u2"},
		{"zed", "alpha"},
		{"same", "same"},
		{"Abc", "abc"},
	}
	for _, p := range pairs {
		assert.Equal(t, ConversationID(p[0], p[1]), ConversationID(p[1], p[0]), "pair %v", p)
	}
}

func TestConversationIDSortsPair(t *testing.T) {
	assert.Equal(t, "dm_u1_u2", ConversationID("u2", "u1"))
	assert.Equal(t, "dm_u1_u2", ConversationID("u1", "u2"))
}

func TestConversationIDDistinguishesPartners(t *testing.T) {
	assert.NotEqual(t, ConversationID("a", "b"), ConversationID("a", "c"))
	assert.NotEqual(t, GeneralChatID, ConversationID("general", "chat"))
}
