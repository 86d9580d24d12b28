// Package client is the room-watching counterpart of the server: it fetches
// the bootstrap snapshot over HTTP, holds the room's realtime stream open,
// reconciles incoming deltas into a local player list and reconnects with
// jittered backoff when the stream drops.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

// Player is the client-side view of a room participant.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// ErrGaveUp is returned by Run when every reconnect attempt failed.
var ErrGaveUp = errors.New("gave up reconnecting")

const (
	defaultMaxAttempts  = 5
	defaultMinBackoff   = 500 * time.Millisecond
	defaultMaxBackoff   = 15 * time.Second
	defaultRecentWindow = 1100 * time.Millisecond
)

// Options configures a Session.
type Options struct {
	// BaseURL is the server root, e.g. "http://localhost:8080".
	BaseURL string
	// RoomID is the room code to watch.
	RoomID string

	// OnPlayers is invoked with a copy of the reconciled player list after
	// every change. Optional.
	OnPlayers func(players []Player)
	// OnConnection reports stream up/down transitions. Optional.
	OnConnection func(online bool)
	// OnRoomStatus reports room lifecycle transitions ("started"). Optional.
	OnRoomStatus func(status string)

	// MaxAttempts bounds consecutive failed reconnects before Run gives up.
	MaxAttempts int
	// MinBackoff and MaxBackoff bound the jittered reconnect delay.
	MinBackoff time.Duration
	MaxBackoff time.Duration
	// RecentWindow is how long a freshly joined player keeps the recent
	// flag. Purely cosmetic.
	RecentWindow time.Duration

	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Session watches one room. Create with New, drive with Run, stop with
// Close or by cancelling the Run context.
type Session struct {
	opts  Options
	httpc *http.Client
	log   *zerolog.Logger

	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	players []Player
	recent  map[string]bool
	timers  []*time.Timer
}

// New validates options and builds a session.
func New(opts Options) (*Session, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base URL required")
	}
	if strings.TrimSpace(opts.RoomID) == "" {
		return nil, errors.New("room id required")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = defaultMinBackoff
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = defaultRecentWindow
	}

	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Session{
		opts:   opts,
		httpc:  httpc,
		log:    logger,
		closed: make(chan struct{}),
		recent: make(map[string]bool),
	}, nil
}

// Run connects and keeps the session alive until the context is cancelled,
// Close is called, or the reconnect budget is exhausted. Each successful
// connection resets the budget; after every reconnect the full state is
// re-fetched, so events missed while offline are recovered.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	var lastErr error
	attempts := 0
	backoff := s.opts.MinBackoff

	for {
		if attempts > 0 {
			if attempts >= s.opts.MaxAttempts {
				return fmt.Errorf("%w after %d attempts: %v", ErrGaveUp, attempts, lastErr)
			}
			select {
			case <-ctx.Done():
				return s.exitErr(ctx)
			case <-time.After(jitter(backoff)):
			}
			backoff = min(backoff*2, s.opts.MaxBackoff)
		}

		if err := s.bootstrap(ctx); err != nil {
			if ctx.Err() != nil {
				return s.exitErr(ctx)
			}
			s.log.Warn().Err(err).Str("room_id", s.opts.RoomID).Msg("bootstrap failed")
			lastErr = err
			attempts++
			continue
		}

		connected, err := s.stream(ctx)
		if ctx.Err() != nil {
			return s.exitErr(ctx)
		}
		s.log.Warn().Err(err).Str("room_id", s.opts.RoomID).Msg("stream dropped, reconnecting")
		lastErr = err
		if connected {
			// A live connection resets the reconnect budget.
			attempts = 1
			backoff = s.opts.MinBackoff
		} else {
			attempts++
		}
	}
}

// Close stops the session deterministically. Safe to call more than once
// and from any goroutine.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.mu.Lock()
		for _, t := range s.timers {
			t.Stop()
		}
		s.timers = nil
		s.mu.Unlock()
	})
	return nil
}

// Players returns a copy of the reconciled player list.
func (s *Session) Players() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Player, len(s.players))
	copy(out, s.players)
	return out
}

// Recent reports whether the player joined within the recent window.
func (s *Session) Recent(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent[playerID]
}

// exitErr maps a deliberate close to a clean exit.
func (s *Session) exitErr(ctx context.Context) error {
	select {
	case <-s.closed:
		return nil
	default:
		return ctx.Err()
	}
}

// bootstrap fetches the current room state over HTTP. An unknown room is
// not an error: the player list is simply empty until the room appears.
func (s *Session) bootstrap(ctx context.Context) error {
	url := strings.TrimRight(s.opts.BaseURL, "/") + "/api/iquiz/room/" + s.opts.RoomID + "/state"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build state request: %w", err)
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("fetch room state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch room state: status %d", resp.StatusCode)
	}

	var state struct {
		Exists  bool     `json:"exists"`
		Players []Player `json:"players"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return fmt.Errorf("decode room state: %w", err)
	}

	s.replacePlayers(state.Players)
	return nil
}

// stream dials the room's realtime endpoint and consumes frames until the
// connection dies. The bool reports whether the dial succeeded at all.
func (s *Session) stream(ctx context.Context) (bool, error) {
	wsURL := httpToWS(strings.TrimRight(s.opts.BaseURL, "/")) + "/api/iquiz/ws/" + s.opts.RoomID

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return false, fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "closing")

	s.setOnline(true)
	defer s.setOnline(false)

	if err := wsjson.Write(ctx, conn, map[string]string{"type": "ping"}); err != nil {
		return true, fmt.Errorf("send ping: %w", err)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return true, err
		}
		s.handleFrame(data)
	}
}

// frame is the union of every outbound shape the server may send, old or
// new. RawPlayers distinguishes "players present" from "players empty".
type frame struct {
	Type       string          `json:"type"`
	RawPlayers json.RawMessage `json:"players"`
	Player     *Player         `json:"player"`
	Name       string          `json:"name"`
	Avatar     string          `json:"avatar"`
	Status     string          `json:"status"`
}

// handleFrame reconciles one inbound frame into local state. Malformed or
// unrecognized frames are ignored.
func (s *Session) handleFrame(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		s.log.Debug().Str("room_id", s.opts.RoomID).Msg("ignoring malformed frame")
		return
	}

	switch {
	case f.Type == "pong":
		return

	case f.RawPlayers != nil:
		// Snapshot semantics: replace the list wholesale.
		var players []Player
		if err := json.Unmarshal(f.RawPlayers, &players); err != nil {
			return
		}
		s.replacePlayers(players)

	case f.Type == "player_joined":
		p := Player{Name: f.Name, Avatar: f.Avatar}
		if f.Player != nil && f.Player.ID != "" {
			p = *f.Player
		}
		if strings.TrimSpace(p.Name) == "" && p.ID == "" {
			return
		}
		s.appendPlayer(p)

	case f.Type == "status_changed":
		if s.opts.OnRoomStatus != nil && f.Status != "" {
			s.opts.OnRoomStatus(f.Status)
		}
	}
}

func (s *Session) replacePlayers(players []Player) {
	if players == nil {
		players = []Player{}
	}
	s.mu.Lock()
	s.players = players
	s.mu.Unlock()
	s.notify()
}

// appendPlayer adds a player if not already present. The dedupe key is the
// server-assigned id; legacy payloads without an id fall back to the name.
func (s *Session) appendPlayer(p Player) {
	s.mu.Lock()
	for _, existing := range s.players {
		if p.ID != "" && existing.ID == p.ID {
			s.mu.Unlock()
			return
		}
		if p.ID == "" && existing.Name == p.Name {
			s.mu.Unlock()
			return
		}
	}
	s.players = append(s.players, p)

	key := p.ID
	if key == "" {
		key = p.Name
	}
	s.recent[key] = true
	timer := time.AfterFunc(s.opts.RecentWindow, func() {
		s.mu.Lock()
		delete(s.recent, key)
		s.mu.Unlock()
		s.notify()
	})
	s.timers = append(s.timers, timer)
	s.mu.Unlock()

	s.notify()
}

func (s *Session) setOnline(online bool) {
	if s.opts.OnConnection != nil {
		s.opts.OnConnection(online)
	}
}

func (s *Session) notify() {
	if s.opts.OnPlayers != nil {
		s.opts.OnPlayers(s.Players())
	}
}

// jitter spreads reconnects so a restarted server is not hammered by every
// client at once.
func jitter(d time.Duration) time.Duration {
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func httpToWS(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
