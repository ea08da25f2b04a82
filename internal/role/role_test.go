package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjakob/caspaxos/internal/ballot"
	"github.com/arjakob/caspaxos/internal/envelope"
)

func TestNewContainerStartsAsAcceptor(t *testing.T) {
	c := NewContainer()
	c.Lock()
	defer c.Unlock()
	_, ok := c.Current().(Acceptor)
	assert.True(t, ok)
}

func TestBeginProposeFromAcceptorStartsWithZeroLastAccept(t *testing.T) {
	c := NewContainer()
	op := envelope.Envelope{Src: "client", Body: envelope.Body{Inner: envelope.Read{Key: 1}}}

	c.Lock()
	p := c.BeginPropose(op)
	c.Unlock()

	assert.True(t, p.LastAcceptBroadcast.IsZero())
	assert.Empty(t, p.Promises)
	assert.Empty(t, p.Acceptances)
}

func TestBeginProposeCarriesOverLastAcceptBroadcast(t *testing.T) {
	c := NewContainer()
	op1 := envelope.Envelope{Src: "client", Body: envelope.Body{Inner: envelope.Read{Key: 1}}}

	c.Lock()
	p1 := c.BeginPropose(op1)
	p1.LastAcceptBroadcast = ballot.Ballot{Number: 3, NodeID: "n1"}
	c.Unlock()

	op2 := envelope.Envelope{Src: "client", Body: envelope.Body{Inner: envelope.Write{Key: 1, Value: 9}}}
	c.Lock()
	p2 := c.BeginPropose(op2)
	c.Unlock()

	require.NotSame(t, p1, p2, "a fresh propose must replace the bookkeeping struct")
	assert.Equal(t, ballot.Ballot{Number: 3, NodeID: "n1"}, p2.LastAcceptBroadcast,
		"last_accept_broadcast must carry over so a stale promise can't re-trigger Accept")
	assert.Empty(t, p2.Promises, "promises must reset on a fresh round")
	assert.Empty(t, p2.Acceptances, "acceptances must reset on a fresh round")
}
