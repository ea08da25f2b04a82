package caspaxos

import (
	"errors"
	"fmt"

	"github.com/arjakob/caspaxos/internal/envelope"
	"github.com/arjakob/caspaxos/internal/statemachine"
)

// apply is §4.7's operation application: it mutates s in place to S' and
// returns the reply body for the client. in_reply_to is stamped by the
// caller, not here.
func apply(op envelope.Message, s *statemachine.KV) envelope.Message {
	switch o := op.(type) {
	case envelope.Read:
		if v, ok := s.Read(o.Key); ok {
			return envelope.ReadOk{Value: v}
		}
		return envelope.Error{Code: envelope.KeyDoesNotExist, Text: statemachine.ErrKeyDoesNotExist.Error()}

	case envelope.Write:
		s.Write(o.Key, o.Value)
		return envelope.WriteOk{}

	case envelope.Cas:
		err := s.CompareAndSwap(o.Key, o.From, o.To)
		switch {
		case err == nil:
			return envelope.CasOk{}
		case errors.Is(err, statemachine.ErrKeyDoesNotExist):
			return envelope.Error{Code: envelope.KeyDoesNotExist, Text: err.Error()}
		case errors.Is(err, statemachine.ErrPreconditionFailed):
			return envelope.Error{Code: envelope.PreconditionFailed, Text: err.Error()}
		default:
			panic(fmt.Sprintf("caspaxos: unexpected apply error: %v", err))
		}

	default:
		panic(fmt.Sprintf("caspaxos: apply called with non-operation body %T", op))
	}
}
