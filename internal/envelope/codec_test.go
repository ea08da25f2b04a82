package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTripWrite(t *testing.T) {
	env := Envelope{
		Src:  "c1",
		Dest: "n1",
		Body: Body{
			MsgID: 7,
			Inner: Write{Key: 1, Value: 42},
		},
	}

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"write"`)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, env, decoded)
}

func TestEnvelopeRoundTripPromiseWithValue(t *testing.T) {
	env := Envelope{
		Src:  "n2",
		Dest: "n1",
		Body: Body{
			MsgID: 3,
			Inner: Promise{
				BallotNumber: 5,
				BallotNode:   "n1",
				Value:        map[string]int64{"1": 42, "2": 7},
			},
		},
	}

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, env, decoded)
}

func TestProxyEnvelopeRoundTrip(t *testing.T) {
	inner := Envelope{
		Src:  "client",
		Dest: "n2",
		Body: Body{MsgID: 1, Inner: Read{Key: 1}},
	}
	env := Envelope{
		Src:  "n1",
		Dest: "n2",
		Body: Body{MsgID: 2, Inner: Proxy{ProxiedMsg: inner}},
	}

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, env, decoded)
}

func TestUnmarshalUnknownType(t *testing.T) {
	var body Body
	err := json.Unmarshal([]byte(`{"type":"nonsense"}`), &body)
	assert.Error(t, err)
}

func TestMsgIDOmittedWhenZero(t *testing.T) {
	data, err := json.Marshal(Body{Inner: InitOk{}})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "msg_id")
	assert.NotContains(t, string(data), "in_reply_to")
}
