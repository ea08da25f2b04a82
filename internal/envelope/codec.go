package envelope

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON flattens msg_id/in_reply_to/type alongside the inner
// message's own fields into a single JSON object, matching the
// discriminated-union-over-JSON convention the Rust original's
// externally-tagged body enum used on the wire.
func (b Body) MarshalJSON() ([]byte, error) {
	innerJSON, err := json.Marshal(b.Inner)
	if err != nil {
		return nil, fmt.Errorf("marshal body inner: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(innerJSON, &fields); err != nil {
		return nil, fmt.Errorf("flatten body inner: %w", err)
	}

	fields["type"], err = json.Marshal(b.Inner.Kind())
	if err != nil {
		return nil, err
	}
	if b.MsgID != 0 {
		fields["msg_id"], err = json.Marshal(b.MsgID)
		if err != nil {
			return nil, err
		}
	}
	if b.InReplyTo != 0 {
		fields["in_reply_to"], err = json.Marshal(b.InReplyTo)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(fields)
}

// UnmarshalJSON dispatches on the "type" discriminator to build the
// correctly typed Inner message.
func (b *Body) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Type      string `json:"type"`
		MsgID     int64  `json:"msg_id"`
		InReplyTo int64  `json:"in_reply_to"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("decode body header: %w", err)
	}

	inner, err := newMessage(envelope.Type)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, inner); err != nil {
		return fmt.Errorf("decode body %q: %w", envelope.Type, err)
	}

	b.MsgID = envelope.MsgID
	b.InReplyTo = envelope.InReplyTo
	b.Inner = derefMessage(inner)
	return nil
}

// newMessage allocates the zero value for a given wire "type" string.
func newMessage(kind string) (interface{}, error) {
	switch kind {
	case "init":
		return &Init{}, nil
	case "init_ok":
		return &InitOk{}, nil
	case "read":
		return &Read{}, nil
	case "read_ok":
		return &ReadOk{}, nil
	case "write":
		return &Write{}, nil
	case "write_ok":
		return &WriteOk{}, nil
	case "cas":
		return &Cas{}, nil
	case "cas_ok":
		return &CasOk{}, nil
	case "proxy":
		return &Proxy{}, nil
	case "propose":
		return &Propose{}, nil
	case "promise":
		return &Promise{}, nil
	case "accept":
		return &Accept{}, nil
	case "accepted":
		return &Accepted{}, nil
	case "error":
		return &Error{}, nil
	default:
		return nil, fmt.Errorf("unknown body type %q", kind)
	}
}

// derefMessage converts the pointer newMessage returned into the
// value-typed Message the rest of the codebase switches on.
func derefMessage(ptr interface{}) Message {
	switch m := ptr.(type) {
	case *Init:
		return *m
	case *InitOk:
		return *m
	case *Read:
		return *m
	case *ReadOk:
		return *m
	case *Write:
		return *m
	case *WriteOk:
		return *m
	case *Cas:
		return *m
	case *CasOk:
		return *m
	case *Proxy:
		return *m
	case *Propose:
		return *m
	case *Promise:
		return *m
	case *Accept:
		return *m
	case *Accepted:
		return *m
	case *Error:
		return *m
	default:
		panic(fmt.Sprintf("envelope: unreachable message type %T", ptr))
	}
}
