// Package gateway owns the streaming session to the Hiven swarm: the
// connect and auth handshake, the heartbeat timer, the inbound message
// loop feeding the dispatch engine, the reconnect policy and the close
// sequence.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/frostbytespace/hiven-go/config"
	"github.com/frostbytespace/hiven-go/errors"
	"github.com/frostbytespace/hiven-go/events"
	"github.com/frostbytespace/hiven-go/metric"
	"github.com/frostbytespace/hiven-go/pkg/retry"
	"github.com/frostbytespace/hiven-go/storage"
)

// State of the gateway connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateInitializing
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateInitializing:
		return "initializing"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

const dialTimeout = 30 * time.Second

// Gateway is the websocket connection state machine.
type Gateway struct {
	cfg    *config.Config
	token  string
	cache  *storage.Cache
	parser *events.Parsers
	engine *events.Engine
	log    *slog.Logger

	dialer *websocket.Dialer

	connMu sync.Mutex
	conn   *websocket.Conn

	state  atomic.Int32
	closed atomic.Bool

	connectionStart atomic.Int64 // unix nanos
	startupTime     atomic.Int64 // nanos from connect to ready

	metrics *gatewayMetrics
}

// New builds a gateway over the given cache and dispatch engine. The
// token is validated on Run, not here.
func New(cfg *config.Config, token string, cache *storage.Cache, engine *events.Engine, logger *slog.Logger, registry *metric.Registry) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		cfg:    cfg,
		token:  token,
		cache:  cache,
		parser: events.NewParsers(cache, logger),
		engine: engine,
		log:    logger.With("component", "gateway"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: dialTimeout,
		},
		metrics: newGatewayMetrics(registry),
	}
}

// State returns the current connection state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

func (g *Gateway) setState(s State) {
	g.state.Store(int32(s))
	if g.metrics != nil {
		g.metrics.state.Set(float64(s))
	}
	g.log.Debug("state changed", "state", s.String())
}

// Ready reports whether the session finished its startup sequence.
func (g *Gateway) Ready() bool {
	return g.State() == StateOpen
}

// StartupTime returns how long the last session took from connect to
// ready, or zero before the first ready.
func (g *Gateway) StartupTime() time.Duration {
	return time.Duration(g.startupTime.Load())
}

// ValidateToken checks the credential shape before any connect attempt.
// Hiven issues fixed-length tokens; anything else fails fast.
func (g *Gateway) ValidateToken() error {
	if g.token == "" {
		return errors.WrapFatal(
			fmt.Errorf("%w: token is empty", errors.ErrInvalidToken),
			"gateway", "ValidateToken", "check token")
	}
	if !g.cfg.ValidTokenLength(len(g.token)) {
		return errors.WrapFatal(
			fmt.Errorf("%w: token has length %d", errors.ErrInvalidToken, len(g.token)),
			"gateway", "ValidateToken", "check token")
	}
	return nil
}

// Run connects to the swarm and blocks until the session ends. A failed
// session is reconnected with exponential backoff when restart is
// enabled; credential failures and deliberate closes are never retried.
// When retries are exhausted or restart is disabled the last failure is
// wrapped as a connection error.
func (g *Gateway) Run(ctx context.Context) error {
	if err := g.ValidateToken(); err != nil {
		return err
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = g.cfg.MaxReconnectTries
	if !g.cfg.Restart {
		retryCfg.MaxAttempts = 0
	}

	attempt := 0
	err := retry.Do(ctx, retryCfg, func() error {
		if attempt > 0 {
			if g.metrics != nil {
				g.metrics.reconnects.Inc()
			}
			g.log.Info("reconnecting", "attempt", attempt)
		}
		attempt++

		err := g.runSession(ctx)
		switch {
		case err == nil:
			return nil
		case g.closed.Load():
			// Deliberate close; not a failure.
			return nil
		case errors.Is(err, errors.ErrInvalidToken):
			return retry.NonRetryable(err)
		case !g.cfg.Restart:
			return retry.NonRetryable(err)
		default:
			return err
		}
	})
	if err != nil {
		return errors.WrapFatal(
			fmt.Errorf("%w: %w", errors.ErrConnection, err),
			"gateway", "Run", "keep session alive")
	}
	return nil
}

// runSession performs one full connect-auth-listen cycle.
func (g *Gateway) runSession(ctx context.Context) error {
	g.setState(StateConnecting)
	defer g.setState(StateDisconnected)

	conn, _, err := g.dialer.DialContext(ctx, g.cfg.WSEndpoint, nil)
	if err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrWebSocketFailed, err),
			"gateway", "runSession", "dial "+g.cfg.WSEndpoint)
	}
	g.connMu.Lock()
	g.conn = conn
	g.connMu.Unlock()
	g.connectionStart.Store(time.Now().UnixNano())
	defer func() {
		g.connMu.Lock()
		g.conn = nil
		g.connMu.Unlock()
		conn.Close()
	}()

	g.setState(StateAuthenticating)
	if err := g.sendAuth(); err != nil {
		return err
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(sessionCtx)
	group.Go(func() error {
		return g.readLoop(groupCtx)
	})
	group.Go(func() error {
		return g.keepAlive(groupCtx)
	})

	err = group.Wait()
	g.cache.Reset()
	if err != nil && !g.closed.Load() {
		g.log.Warn("session ended", "error", err)
	}
	return err
}

// Close performs the close handshake and ends the session. It is bounded
// by the configured close timeout and safe to call from any goroutine.
func (g *Gateway) Close() error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}
	g.setState(StateClosing)

	g.connMu.Lock()
	conn := g.conn
	g.connMu.Unlock()
	if conn == nil {
		return nil
	}

	deadline := time.Now().Add(g.cfg.CloseTimeout)
	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)
	if err != nil {
		// The read loop exits on the dropped connection either way.
		g.log.Debug("close frame not delivered", "error", err)
	}
	_ = conn.SetReadDeadline(deadline)
	return conn.Close()
}

func (g *Gateway) sendAuth() error {
	data, _ := json.Marshal(authPayload{Token: g.token})
	if err := g.writeFrame(envelope{Op: opAuth, Data: data}); err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrWebSocketFailed, err),
			"gateway", "sendAuth", "send auth frame")
	}
	return nil
}

func (g *Gateway) writeFrame(e envelope) error {
	g.connMu.Lock()
	defer g.connMu.Unlock()
	if g.conn == nil {
		return errors.ErrSessionNotActive
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if g.cfg.LogWebSocket {
		g.log.Debug("frame sent", "frame", string(data))
	}
	return g.conn.WriteMessage(websocket.TextMessage, data)
}

// keepAlive sends a heartbeat frame every interval. Consecutive send
// failures beyond the miss budget end the session with a restart error.
func (g *Gateway) keepAlive(ctx context.Context) error {
	ticker := time.NewTicker(g.cfg.Heartbeat)
	defer ticker.Stop()

	misses := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.writeFrame(envelope{Op: opHeartbeat}); err != nil {
				misses++
				g.log.Warn("heartbeat failed", "misses", misses, "error", err)
				if misses > g.cfg.HeartbeatMissBudget {
					return errors.WrapTransient(
						fmt.Errorf("%w: heartbeat budget exhausted: %w", errors.ErrRestartSession, err),
						"gateway", "keepAlive", "send heartbeat")
				}
				continue
			}
			misses = 0
			if g.metrics != nil {
				g.metrics.heartbeats.Inc()
			}
		}
	}
}

// readLoop consumes frames until the connection drops or the context is
// cancelled. A close frame from the server converts into a restart
// request; a local close converts into a session-closed error.
func (g *Gateway) readLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, raw, err := g.connRead()
		if err != nil {
			if g.closed.Load() {
				return errors.WrapFatal(
					fmt.Errorf("%w: %w", errors.ErrSessionClosed, err),
					"gateway", "readLoop", "read frame")
			}
			return errors.WrapTransient(
				fmt.Errorf("%w: %w", errors.ErrRestartSession, err),
				"gateway", "readLoop", "read frame")
		}
		if err := g.handleFrame(ctx, raw); err != nil {
			return err
		}
	}
}

func (g *Gateway) connRead() (int, []byte, error) {
	g.connMu.Lock()
	conn := g.conn
	g.connMu.Unlock()
	if conn == nil {
		return 0, nil, errors.ErrSessionNotActive
	}
	return conn.ReadMessage()
}

// handleFrame routes one inbound frame by op-code. Event frames flow
// through the parser table into the dispatch engine; a malformed payload
// is logged and dropped, never fatal to the loop.
func (g *Gateway) handleFrame(ctx context.Context, raw []byte) error {
	if g.cfg.LogWebSocket {
		g.log.Debug("frame received", "frame", string(raw))
	}
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		g.log.Warn("undecodable frame dropped", "error", err)
		return nil
	}
	if g.metrics != nil {
		g.metrics.frames.Inc()
	}

	switch e.Op {
	case opConnectionStart:
		// The server acknowledged the connection; INIT_STATE follows.
		return nil
	case opEvent:
		if e.Event == "INIT_STATE" {
			return g.handleInitState(ctx, &e)
		}
		g.dispatchEvent(ctx, &e)
		return nil
	default:
		g.log.Warn("unknown op-code frame dropped", "op", e.Op)
		return nil
	}
}

// dispatchEvent parses and dispatches a single event frame. Parser and
// listener failures are contained here: one malformed server payload or
// one failing callback must not end the session.
func (g *Gateway) dispatchEvent(ctx context.Context, e *envelope) {
	data, err := e.decodeData()
	if err != nil {
		g.log.Warn("event payload undecodable, dropping", "event", e.Event, "error", err)
		return
	}
	name, args, err := g.parser.Parse(e.Event, data)
	if err != nil {
		g.log.Warn("event dropped", "event", e.Event, "error", err)
		return
	}
	if name == "" {
		return
	}
	if err := g.engine.Dispatch(ctx, name, args...); err != nil {
		g.log.Warn("listener failed during dispatch", "event", name, "error", err)
	}
}

// handleInitState seeds the cache from the initial session payload and
// shields normal processing until every promised house arrived. HOUSE_JOIN
// frames received meanwhile are applied directly; everything else is
// buffered and replayed afterwards. The init and ready events fire
// synchronously around the sequence.
func (g *Gateway) handleInitState(ctx context.Context, e *envelope) error {
	g.setState(StateInitializing)

	if err := g.engine.Dispatch(ctx, events.EventInit); err != nil {
		g.log.Warn("init listener failed", "error", err)
	}

	data, err := e.decodeData()
	if err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: undecodable INIT_STATE: %w", errors.ErrRestartSession, err),
			"gateway", "handleInitState", "decode session payload")
	}
	if err := g.cache.ReplaceSessionState(data); err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrRestartSession, err),
			"gateway", "handleInitState", "seed session state")
	}

	expected := g.cache.ExpectedHouseCount()
	var buffered []envelope
	received := 0
	for received < expected {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, raw, err := g.connRead()
		if err != nil {
			return errors.WrapTransient(
				fmt.Errorf("%w: %w", errors.ErrRestartSession, err),
				"gateway", "handleInitState", "read startup frame")
		}
		var frame envelope
		if err := json.Unmarshal(raw, &frame); err != nil {
			g.log.Warn("undecodable startup frame dropped", "error", err)
			continue
		}
		if frame.Op != opEvent {
			continue
		}
		if frame.Event == "HOUSE_JOIN" {
			houseData, err := frame.decodeData()
			if err != nil {
				g.log.Warn("house payload undecodable, dropping", "error", err)
				received++
				continue
			}
			if _, err := g.cache.UpsertHouse(houseData); err != nil {
				g.log.Warn("house rejected during startup", "error", err)
			}
			received++
			continue
		}
		buffered = append(buffered, frame)
	}

	started := time.Unix(0, g.connectionStart.Load())
	g.startupTime.Store(int64(time.Since(started)))
	g.setState(StateOpen)
	g.log.Info("session ready",
		"houses", received, "startup_time", g.StartupTime().String())

	if err := g.engine.Dispatch(ctx, events.EventReady); err != nil {
		g.log.Warn("ready listener failed", "error", err)
	}

	// Replay the frames held back during startup, in receive order.
	for i := range buffered {
		g.dispatchEvent(ctx, &buffered[i])
	}
	return nil
}
