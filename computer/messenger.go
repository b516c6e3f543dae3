// Copyright 2026, Square, Inc.

package computer

import (
	"github.com/orcaman/concurrent-map"

	"github.com/square/vertigo/graph"
)

// Messenger is a vertex's view of the message board during Execute.
type Messenger interface {
	// SendMessage queues msg for delivery at the next superstep.
	SendMessage(scope MessageScope, msg interface{}) error

	// ReceiveMessages returns the messages delivered to this vertex this
	// superstep on the scopes the program declares for it. With a combiner,
	// each scope yields at most one message.
	ReceiveMessages() ([]interface{}, error)
}

// MessageBoard holds the messages sent during the current superstep (send) and
// the ones being delivered (receive). Both are sharded concurrent maps keyed by
// scope key and vertex id; appends to the same mailbox are atomic.
type MessageBoard struct {
	combiner MessageCombiner
	send     *mailboxes
	receive  *mailboxes
}

type mailboxes struct {
	queues cmap.ConcurrentMap // mailboxKey(scope, vertex) => []interface{}
}

func newMailboxes() *mailboxes {
	return &mailboxes{
		queues: cmap.New(),
	}
}

func NewMessageBoard(combiner MessageCombiner) *MessageBoard {
	return &MessageBoard{
		combiner: combiner,
		send:     newMailboxes(),
		receive:  newMailboxes(),
	}
}

func mailboxKey(scopeKey, vertexId string) string {
	return scopeKey + "\x00" + vertexId
}

// post appends msg to the (scope, vertex) mailbox, folding it into the queued
// message when there is a combiner.
func (b *MessageBoard) post(scope MessageScope, vertexId string, msg interface{}) {
	combiner := b.combiner
	b.send.queues.Upsert(mailboxKey(scope.Key(), vertexId), msg, func(exist bool, old, nv interface{}) interface{} {
		if !exist {
			return []interface{}{nv}
		}
		queue := old.([]interface{})
		if combiner != nil {
			return []interface{}{combiner.Combine(queue[0], nv)}
		}
		return append(queue, nv)
	})
}

// queued returns the messages delivered to vertexId on scopeKey.
func (b *MessageBoard) queued(scopeKey, vertexId string) []interface{} {
	v, ok := b.receive.queues.Get(mailboxKey(scopeKey, vertexId))
	if !ok {
		return nil
	}
	return v.([]interface{})
}

// Pending returns the number of mailboxes holding messages for the next superstep.
func (b *MessageBoard) Pending() int {
	return b.send.queues.Count()
}

// completeIteration delivers everything sent this superstep. Only called by
// the master after the superstep barrier.
func (b *MessageBoard) completeIteration() {
	b.receive = b.send
	b.send = newMailboxes()
}

// --------------------------------------------------------------------------

type messenger struct {
	board  *MessageBoard
	vertex graph.Vertex
	scopes []MessageScope // MessageScopes of the current superstep
}

var _ Messenger = messenger{}

func newMessenger(board *MessageBoard, v graph.Vertex, scopes []MessageScope) messenger {
	return messenger{board: board, vertex: v, scopes: scopes}
}

func (m messenger) SendMessage(scope MessageScope, msg interface{}) error {
	switch s := scope.(type) {
	case Local:
		if s.Incident == nil {
			return errNoIncident
		}
		// Receivers pull from the sender's mailbox.
		m.board.post(s, m.vertex.ID(), msg)
	case Global:
		for _, id := range s.Vertices {
			m.board.post(s, id, msg)
		}
	default:
		return errUnknownScope(scope)
	}
	return nil
}

func (m messenger) ReceiveMessages() ([]interface{}, error) {
	var msgs []interface{}
	seen := map[string]bool{}
	for _, scope := range m.scopes {
		if seen[scope.Key()] {
			continue
		}
		seen[scope.Key()] = true
		switch s := scope.(type) {
		case Global:
			msgs = append(msgs, m.board.queued(s.Key(), m.vertex.ID())...)
		case Local:
			in, err := m.receiveLocal(s)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, in...)
		}
	}
	return msgs, nil
}

// receiveLocal walks the reverse of the scope's incident traversal from this
// vertex. Each edge reached leads back to a sender: the vertex at the end given
// by the original direction, or the other end for BOTH. With a combiner, the
// messages of all senders are folded into one.
func (m messenger) receiveLocal(s Local) ([]interface{}, error) {
	incident := s.Incident
	edges, err := incident.Reverse().Edges(m.vertex)
	if err != nil {
		return nil, err
	}
	dir := incident.Direction()
	var msgs []interface{}
	for _, e := range edges {
		var sender graph.Vertex
		if dir == graph.BOTH {
			sender = graph.OtherVertex(e, m.vertex.ID())
		} else {
			sender = graph.EdgeVertex(e, dir)
		}
		for _, msg := range m.board.queued(s.Key(), sender.ID()) {
			if s.EdgeFunc != nil {
				msg = s.EdgeFunc(msg, e)
			}
			if msg != nil {
				msgs = append(msgs, msg)
			}
		}
	}
	if combiner := m.board.combiner; combiner != nil && len(msgs) > 1 {
		folded := msgs[0]
		for _, msg := range msgs[1:] {
			folded = combiner.Combine(folded, msg)
		}
		msgs = []interface{}{folded}
	}
	return msgs, nil
}
