// Package envelope defines the wire envelope and body kinds exchanged
// between replicas and clients (spec §6). The envelope itself is listed
// as an external collaborator in spec.md, but — matching the teacher's
// habit of shipping a reference Transport/Storage alongside the
// protocol it serves — this package ships a JSON codec so the core is
// runnable end-to-end without a real wire format being handed to it.
package envelope

import "fmt"

// Envelope is the outer frame: who sent it, who it's for, and the body.
type Envelope struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
	Body Body   `json:"body"`
}

// Body carries correlation metadata plus the typed inner message.
type Body struct {
	MsgID      int64   `json:"msg_id,omitempty"`
	InReplyTo  int64   `json:"in_reply_to,omitempty"`
	Inner      Message `json:"-"`
}

// Message is implemented by every body kind listed in spec.md §6.
type Message interface {
	Kind() string
}

// String renders an envelope for logs.
func (e Envelope) String() string {
	return fmt.Sprintf("%s->%s %s(msg_id=%d)", e.Src, e.Dest, e.Body.Inner.Kind(), e.Body.MsgID)
}
