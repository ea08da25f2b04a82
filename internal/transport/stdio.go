package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arjakob/caspaxos/internal/envelope"
)

// StdioTransport is the Maelstrom-style reference Transport for cmd/node:
// one JSON envelope per line on stdin, one per line on stdout. Node
// identity and peer membership come from the handshake Init envelope
// Maelstrom always sends first — grounded on the Rust original's node
// lifecycle (main.rs/cas_paxos.rs's Init handling note: "its content was
// already used ... to store the node ids provided by the msg").
type StdioTransport struct {
	nodeID string
	peers  []string

	inbox chan envelope.Envelope

	out     io.Writer
	writeMu sync.Mutex
}

// NewStdio blocks on the first line of in for the Init handshake, then
// starts reading the remainder of in on a background goroutine. The Init
// envelope itself is also pushed onto Inbound() so the replica's normal
// dispatch path still produces the InitOk reply (spec §4.3).
func NewStdio(in io.Reader, out io.Writer) (*StdioTransport, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !scanner.Scan() {
		return nil, fmt.Errorf("stdio transport: stdin closed before an init message arrived")
	}
	var initEnv envelope.Envelope
	if err := json.Unmarshal(scanner.Bytes(), &initEnv); err != nil {
		return nil, fmt.Errorf("stdio transport: decode init envelope: %w", err)
	}
	init, ok := initEnv.Body.Inner.(envelope.Init)
	if !ok {
		return nil, fmt.Errorf("stdio transport: expected init, got %q", initEnv.Body.Inner.Kind())
	}

	peers := make([]string, 0, len(init.NodeIDs))
	for _, id := range init.NodeIDs {
		if id != init.NodeID {
			peers = append(peers, id)
		}
	}

	t := &StdioTransport{
		nodeID: init.NodeID,
		peers:  peers,
		inbox:  make(chan envelope.Envelope, inboxBufferSize),
		out:    out,
	}

	go t.readLoop(scanner)
	t.inbox <- initEnv
	return t, nil
}

func (t *StdioTransport) readLoop(scanner *bufio.Scanner) {
	defer close(t.inbox)
	for scanner.Scan() {
		var env envelope.Envelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			continue
		}
		t.inbox <- env
	}
}

func (t *StdioTransport) NodeID() string { return t.nodeID }

// Peers returns the cluster membership learned from the Init handshake.
func (t *StdioTransport) Peers() []string { return t.peers }

func (t *StdioTransport) Send(dest string, body envelope.Body) error {
	env := envelope.Envelope{Src: t.nodeID, Dest: dest, Body: body}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("stdio transport: marshal envelope: %w", err)
	}
	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err = t.out.Write(data)
	return err
}

// Broadcast writes to every node in the cluster, itself included —
// Maelstrom's network loops self-addressed messages back to the same
// process's stdin, so this is the same "broadcast always reaches self"
// convention as ChannelTransport.
func (t *StdioTransport) Broadcast(body envelope.Body) error {
	targets := make([]string, 0, len(t.peers)+1)
	targets = append(targets, t.nodeID)
	targets = append(targets, t.peers...)

	var g errgroup.Group
	for _, dest := range targets {
		dest := dest
		g.Go(func() error {
			return t.Send(dest, body)
		})
	}
	return g.Wait()
}

func (t *StdioTransport) Inbound() <-chan envelope.Envelope {
	return t.inbox
}

func (t *StdioTransport) Close() error { return nil }
