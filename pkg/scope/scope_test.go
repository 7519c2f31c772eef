package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MintsConversationID(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ConversationID)
}

func TestEnrich_SetsWhenAbsent(t *testing.T) {
	s := Scope{}
	enriched := s.Enrich("conv-123")
	assert.Equal(t, "conv-123", enriched.ConversationID)
	assert.Empty(t, s.ConversationID, "original must not be mutated")
}

func TestEnrich_PreservesExisting(t *testing.T) {
	s := Scope{ConversationID: "original"}
	enriched := s.Enrich("conv-123")
	assert.Equal(t, "original", enriched.ConversationID)
}
