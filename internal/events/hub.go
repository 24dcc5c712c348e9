package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ArcticSubmarine/smart-contracts/internal/domain"
)

// HubConfig configures the websocket event hub.
type HubConfig struct {
	// WriteTimeout is the deadline for writing a frame to a subscriber.
	WriteTimeout time.Duration
	// SendBuffer is the per-subscriber outbound queue length. A subscriber
	// that falls behind by more than this many events is disconnected.
	SendBuffer int
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout: 10 * time.Second,
		SendBuffer:   256,
	}
}

// wireEvent is the frame sent to subscribers.
type wireEvent struct {
	Kind domain.EventKind `json:"kind"`
	Data domain.Event     `json:"data"`
}

// Hub fans ledger events out to websocket subscribers.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	log      *logrus.Entry

	mu    sync.Mutex
	subs  map[*subscriber]struct{}
	done  chan struct{}
	once  sync.Once
	count int // total subscribers ever attached, for logging
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub with the given configuration.
func NewHub(config *HubConfig, log *logrus.Entry) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		log:  log,
		subs: make(map[*subscriber]struct{}),
		done: make(chan struct{}),
	}
}

// Emit serializes ev and queues it to every subscriber. Subscribers whose
// queue is full are dropped rather than blocking the ledger.
func (h *Hub) Emit(ev domain.Event) {
	frame, err := json.Marshal(wireEvent{Kind: ev.Kind(), Data: ev})
	if err != nil {
		h.log.WithError(err).Warn("failed to marshal event frame")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.send <- frame:
		default:
			h.log.Warn("dropping slow event subscriber")
			h.detachLocked(sub)
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades the request to a websocket and streams events until the
// client disconnects or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
	}

	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		conn.Close()
		return
	default:
	}
	h.subs[sub] = struct{}{}
	h.count++
	h.mu.Unlock()

	go h.writeLoop(sub)
	h.readLoop(sub)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for sub := range h.subs {
			h.detachLocked(sub)
		}
	})
}

// writeLoop drains the subscriber queue onto the wire.
func (h *Hub) writeLoop(sub *subscriber) {
	for {
		select {
		case frame, ok := <-sub.send:
			if !ok {
				sub.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(h.config.WriteTimeout))
				return
			}
			sub.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.detach(sub)
				return
			}
		case <-h.done:
			return
		}
	}
}

// readLoop consumes (and ignores) client frames so pings are answered and
// disconnects are noticed.
func (h *Hub) readLoop(sub *subscriber) {
	defer h.detach(sub)
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) detach(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detachLocked(sub)
}

func (h *Hub) detachLocked(sub *subscriber) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.send)
	sub.conn.Close()
}

var _ Sink = (*Hub)(nil)
