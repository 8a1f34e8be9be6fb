package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPairKey_OrderIndependent(t *testing.T) {
	req := require.New(t)

	k1, p1 := PairKey("seeker-9", "employer-3")
	k2, p2 := PairKey("employer-3", "seeker-9")

	req.Equal(k1, k2)
	req.Equal("employer-3|seeker-9", k1)
	req.Equal(p1, p2)
	req.Equal([]string{"employer-3", "seeker-9"}, p1)
}

func TestConversation_Participants(t *testing.T) {
	req := require.New(t)
	_, pair := PairKey("bob", "alice")
	c := &Conversation{Participants: pair}

	req.True(c.HasParticipant("alice"))
	req.True(c.HasParticipant("bob"))
	req.False(c.HasParticipant("carol"))

	req.Equal("bob", c.PeerOf("alice"))
	req.Equal("alice", c.PeerOf("bob"))
	req.Equal("", c.PeerOf("carol"))
}

func TestMessage_ReadBy(t *testing.T) {
	req := require.New(t)
	m := &Message{Readers: []string{"alice"}}

	req.True(m.ReadBy("alice"))
	req.False(m.ReadBy("bob"))
}

func TestNotification_ValidType(t *testing.T) {
	req := require.New(t)

	for _, typ := range []string{
		NotifyApplicationReceived, NotifyInterviewScheduled,
		NotifyNewMessage, NotifyJobApproved,
	} {
		req.True(ValidType(typ), typ)
	}
	req.False(ValidType("marketing-blast"))
	req.False(ValidType(""))
}
