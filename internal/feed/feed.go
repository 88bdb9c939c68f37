package feed

import (
	"context"

	"github.com/DoyleJ11/maze-team-client/pkg/types"
)

// backlog is how many recent events a new subscriber is replayed.
const backlog = 64

type Msg interface{ isFeedMsg() }

type Publish struct {
	Event types.Event
}

func (Publish) isFeedMsg() {}

type Join struct {
	ClientID string
	Outbox   chan types.Event // where this client wants to receive events
}

func (Join) isFeedMsg() {}

type Leave struct{ ClientID string }

func (Leave) isFeedMsg() {}

type Shutdown struct{}

func (Shutdown) isFeedMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isFeedMsg() {}

type View struct {
	Published  int
	NumClients int
	Recent     []types.Event
}

// Feed broadcasts agent events to subscribers, such as websocket clients.
// All state lives on the loop goroutine.
type Feed struct {
	inbox     chan Msg
	published int
	recent    []types.Event
	clients   map[string]chan types.Event
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(parent context.Context) *Feed {
	ctx, cancel := context.WithCancel(parent)

	f := &Feed{
		inbox:   make(chan Msg, 256),
		clients: make(map[string]chan types.Event),
		ctx:     ctx,
		cancel:  cancel,
	}

	go f.loop()
	return f
}

func (f *Feed) loop() {
	for {
		select {
		case <-f.ctx.Done():
			f.shutdown()
			return

		case m := <-f.inbox:
			switch msg := m.(type) {
			case Join:
				f.clients[msg.ClientID] = msg.Outbox
				// catch the client up with whatever fits in its outbox
			replay:
				for _, e := range f.recent {
					select {
					case msg.Outbox <- e:
					default:
						break replay
					}
				}

			case Leave:
				if ch, ok := f.clients[msg.ClientID]; ok {
					close(ch)
					delete(f.clients, msg.ClientID)
				}

			case Publish:
				f.published++
				f.recent = append(f.recent, msg.Event)
				if len(f.recent) > backlog {
					f.recent = f.recent[len(f.recent)-backlog:]
				}
				f.broadcast(msg.Event)

			case GetState:
				msg.Reply <- View{
					Published:  f.published,
					NumClients: len(f.clients),
					Recent:     append([]types.Event(nil), f.recent...),
				}

			case Shutdown:
				f.shutdown()
				return
			}
		}
	}
}

func (f *Feed) shutdown() {
	for id, ch := range f.clients {
		close(ch) // no more events
		delete(f.clients, id)
	}
	f.cancel()
}

func (f *Feed) broadcast(e types.Event) {
	for id, ch := range f.clients {
		select {
		case ch <- e:
		default:
			// slow client, drop it
			close(ch)
			delete(f.clients, id)
		}
	}
}

// Publish queues e without blocking. It reports false when the feed is
// stopped or its inbox is full.
func (f *Feed) Publish(e types.Event) bool {
	if f.ctx.Err() != nil {
		return false
	}
	select {
	case f.inbox <- Publish{Event: e}:
		return true
	default:
		return false
	}
}

// Done is closed once the feed has shut down.
func (f *Feed) Done() <-chan struct{} { return f.ctx.Done() }

// Inbox exposes the loop so the websocket layer and tests can talk to it.
func (f *Feed) Inbox() chan<- Msg { return f.inbox }
