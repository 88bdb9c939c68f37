package hub

import (
	"context"
	"sort"

	"github.com/DoyleJ11/maze-team-client/internal/feed"
	"github.com/DoyleJ11/maze-team-client/pkg/types"
)

type HubMsg interface{ isHubMsg() }

// Update replaces a player's latest snapshot.
type Update struct {
	Snapshot types.PlayerSnapshot
}

// Record forwards an event to the feed and remembers it as the player's last.
type Record struct {
	Event types.Event
}

type GetPlayer struct {
	Name  string
	Reply chan *PlayerView // nil when unknown
}

type ListPlayers struct {
	Reply chan []PlayerView
}

type ShutdownHub struct{}

func (Update) isHubMsg()      {}
func (Record) isHubMsg()      {}
func (GetPlayer) isHubMsg()   {}
func (ListPlayers) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

// PlayerView is what the hub knows about one player.
type PlayerView struct {
	Snapshot  types.PlayerSnapshot
	LastEvent *types.Event
	Events    int
}

// Hub keeps the latest snapshot of every player. Agents report to it
// through the Observer methods; the status API reads from it.
type Hub struct {
	inbox   chan HubMsg
	players map[string]*PlayerView
	feed    *feed.Feed
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewHub starts the hub. f may be nil when nobody streams events.
func NewHub(parent context.Context, f *feed.Feed) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 256),
		players: make(map[string]*PlayerView),
		feed:    f,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Update:
				p := h.player(msg.Snapshot.Player)
				p.Snapshot = msg.Snapshot

			case Record:
				p := h.player(msg.Event.Player)
				e := msg.Event
				p.LastEvent = &e
				p.Events++
				if h.feed != nil {
					h.feed.Publish(e)
				}

			case GetPlayer:
				p, ok := h.players[msg.Name]
				if !ok {
					msg.Reply <- nil
					break
				}
				v := *p
				msg.Reply <- &v

			case ListPlayers:
				out := make([]PlayerView, 0, len(h.players))
				for _, p := range h.players {
					out = append(out, *p)
				}
				sort.Slice(out, func(i, j int) bool { return out[i].Snapshot.Player < out[j].Snapshot.Player })
				msg.Reply <- out

			case ShutdownHub:
				if h.feed != nil {
					select {
					case h.feed.Inbox() <- feed.Shutdown{}:
					case <-h.feed.Done():
					}
				}
				clear(h.players)
				h.cancel()
			}
		}
	}
}

func (h *Hub) player(name string) *PlayerView {
	p, ok := h.players[name]
	if !ok {
		p = &PlayerView{Snapshot: types.PlayerSnapshot{Player: name}}
		h.players[name] = p
	}
	return p
}

// Event records e. It blocks only while the inbox is full.
func (h *Hub) Event(e types.Event) { h.send(Record{Event: e}) }

// Snapshot records s as the player's latest state.
func (h *Hub) Snapshot(s types.PlayerSnapshot) { h.send(Update{Snapshot: s}) }

func (h *Hub) send(m HubMsg) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	}
}

// Player asks the loop for one player. ok is false when the player is
// unknown or the hub has stopped.
func (h *Hub) Player(ctx context.Context, name string) (PlayerView, bool) {
	reply := make(chan *PlayerView, 1)
	select {
	case h.inbox <- GetPlayer{Name: name, Reply: reply}:
	case <-ctx.Done():
		return PlayerView{}, false
	case <-h.ctx.Done():
		return PlayerView{}, false
	}
	select {
	case p := <-reply:
		if p == nil {
			return PlayerView{}, false
		}
		return *p, true
	case <-ctx.Done():
		return PlayerView{}, false
	case <-h.ctx.Done():
		return PlayerView{}, false
	}
}

// Players lists every known player sorted by name.
func (h *Hub) Players(ctx context.Context) []PlayerView {
	reply := make(chan []PlayerView, 1)
	select {
	case h.inbox <- ListPlayers{Reply: reply}:
	case <-ctx.Done():
		return nil
	case <-h.ctx.Done():
		return nil
	}
	select {
	case ps := <-reply:
		return ps
	case <-ctx.Done():
		return nil
	case <-h.ctx.Done():
		return nil
	}
}
