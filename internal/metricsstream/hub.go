// Package metricsstream fans simulation metrics out to connected
// dashboard clients over WebSocket, broadcasting a filtered,
// delta-annotated snapshot at each client's own requested cadence. It is
// grounded on the teacher's metrics WebSocket hub: a register/unregister
// channel pair guarding a client map, and a single goroutine owning both
// the ticker and the map so no lock is ever held across a client write.
package metricsstream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/llmsimlab/simcore/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const defaultClientInterval = 500 * time.Millisecond

// inboundMessage is the only shape a client ever sends: a subscribe
// request naming the dimensions it wants, an unsubscribe reset, or a
// heartbeat ping. The server never initiates pings itself.
type inboundMessage struct {
	Type    string            `json:"type"`
	Filters *subscribeFilters `json:"filters,omitempty"`
}

type subscribeFilters struct {
	Endpoint   string  `json:"endpoint,omitempty"`
	Model      string  `json:"model,omitempty"`
	MetricType string  `json:"metric_type,omitempty"`
	Interval   float64 `json:"interval,omitempty"` // seconds
}

type outboundEnvelope struct {
	Type      string    `json:"type"`
	Snapshot  any       `json:"snapshot,omitempty"`
	Deltas    any       `json:"deltas,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// deltas is the per-field change since the client's previous snapshot.
type deltas struct {
	TotalRequests int64 `json:"total_requests"`
	TotalTokens   int64 `json:"total_tokens"`
	TotalSuccess  int64 `json:"total_success"`
	TotalFailed   int64 `json:"total_failed"`
}

// clientFilters is the union of every filter set this client has
// subscribed with; a subsequent subscribe widens the set rather than
// replacing it, per the documented "subscriptions union" semantics.
// Empty sets mean "no restriction on this dimension".
type clientFilters struct {
	endpoints   map[string]bool
	models      map[string]bool
	metricTypes map[string]bool
	interval    time.Duration
}

func defaultFilters() clientFilters {
	return clientFilters{interval: defaultClientInterval}
}

func (f *clientFilters) union(in subscribeFilters) {
	if in.Endpoint != "" {
		if f.endpoints == nil {
			f.endpoints = make(map[string]bool)
		}
		f.endpoints[in.Endpoint] = true
	}
	if in.Model != "" {
		if f.models == nil {
			f.models = make(map[string]bool)
		}
		f.models[in.Model] = true
	}
	if in.MetricType != "" && in.MetricType != "all" {
		if f.metricTypes == nil {
			f.metricTypes = make(map[string]bool)
		}
		f.metricTypes[in.MetricType] = true
	}
	if in.Interval > 0 {
		f.interval = time.Duration(in.Interval * float64(time.Second))
	}
}

// Client is a single connected dashboard WebSocket.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Owned exclusively by the Hub's Run goroutine; readPump only ever
	// forwards subscribe/unsubscribe requests through the hub's channel,
	// never touches these fields directly.
	filters clientFilters
	prev    *metrics.Snapshot
	nextDue time.Time
}

type subscribeRequest struct {
	client      *Client
	filters     *subscribeFilters
	unsubscribe bool
}

// Hub owns the client set and the broadcast loop.
type Hub struct {
	registry *metrics.Registry
	tick     time.Duration

	mu      sync.Mutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	subscribe  chan subscribeRequest
}

// New builds a Hub that broadcasts snapshots from registry every tick.
func New(registry *metrics.Registry, tick time.Duration) *Hub {
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	return &Hub{
		registry:   registry,
		tick:       tick,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscribeRequest),
	}
}

// Run drives the broadcast loop until stop fires. Call it once, in its
// own goroutine, at server startup.
func (h *Hub) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.pushHistorical(c)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case req := <-h.subscribe:
			if req.unsubscribe {
				req.client.filters = defaultFilters()
				continue
			}
			if req.filters != nil {
				req.client.filters.union(*req.filters)
			}

		case now := <-ticker.C:
			h.tickClients(now)
		}
	}
}

// pushHistorical sends the full current snapshot immediately on
// connect, before any tick-driven delta broadcast.
func (h *Hub) pushHistorical(c *Client) {
	snap := h.registry.Snapshot()
	c.prev = &snap
	c.nextDue = time.Now().Add(c.filters.interval)
	payload := applyFilters(snap, c.filters)
	h.deliver(c, outboundEnvelope{Type: "historical_data", Snapshot: payload, Timestamp: snap.Timestamp})
}

// tickClients visits every connected client and, for those whose
// next_due has elapsed, sends a filtered snapshot plus the deltas
// against their own previously-sent snapshot, then reschedules them at
// their own requested interval.
func (h *Hub) tickClients(now time.Time) {
	h.mu.Lock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if !c.nextDue.After(now) {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	snap := h.registry.Snapshot()
	for _, c := range targets {
		d := computeDeltas(c.prev, &snap)
		payload := applyFilters(snap, c.filters)
		h.deliver(c, outboundEnvelope{Type: "metrics_update", Snapshot: payload, Deltas: d, Timestamp: snap.Timestamp})
		prevCopy := snap
		c.prev = &prevCopy
		c.nextDue = now.Add(c.filters.interval)
	}
}

func computeDeltas(prev, cur *metrics.Snapshot) deltas {
	if prev == nil {
		return deltas{}
	}
	return deltas{
		TotalRequests: cur.TotalRequests - prev.TotalRequests,
		TotalTokens:   cur.TotalTokens - prev.TotalTokens,
		TotalSuccess:  cur.TotalSuccess - prev.TotalSuccess,
		TotalFailed:   cur.TotalFailed - prev.TotalFailed,
	}
}

// applyFilters narrows a snapshot by model (subsetting ModelStats) and
// by metric_type (keeping only the requested top-level groups). There
// is no per-endpoint breakdown in metrics.Snapshot today, so the
// endpoint filter is accepted but does not yet narrow anything.
func applyFilters(snap metrics.Snapshot, f clientFilters) map[string]any {
	out := map[string]any{
		"uptime_seconds": snap.UptimeSeconds,
	}

	want := func(kind string) bool {
		if len(f.metricTypes) == 0 {
			return true
		}
		return f.metricTypes[kind]
	}

	if want("throughput") {
		out["rpm"] = snap.RPM
		out["tpm"] = snap.TPM
		out["tps"] = snap.TPS
	}
	if want("latency") {
		out["p50_latency_ms"] = snap.P50LatencyMs
		out["p90_latency_ms"] = snap.P90LatencyMs
		out["p99_latency_ms"] = snap.P99LatencyMs
	}
	if want("streaming") {
		out["avg_ttft_ms"] = snap.AvgTTFTMs
	}
	if want("error") {
		out["total_failed"] = snap.TotalFailed
		out["success_rate"] = snap.SuccessRate
	}
	if want("queue") || want("cache") || want("all") || len(f.metricTypes) == 0 {
		out["total_requests"] = snap.TotalRequests
		out["total_tokens"] = snap.TotalTokens
		out["total_success"] = snap.TotalSuccess
	}

	modelStats := snap.ModelStats
	if len(f.models) > 0 {
		filtered := make(map[string]metrics.ModelMetric, len(f.models))
		for name, m := range modelStats {
			if f.models[name] {
				filtered[name] = m
			}
		}
		modelStats = filtered
	}
	out["model_stats"] = modelStats

	return out
}

func (h *Hub) deliver(c *Client, env outboundEnvelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		// Slow client: drop the tick rather than block the broadcaster.
		log.Debug("metricsstream: dropping tick for slow client")
	}
}

// ServeWS upgrades an HTTP request to a dashboard WebSocket connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{conn: conn, send: make(chan []byte, 16), hub: h, filters: defaultFilters()}
	h.register <- c

	go c.writePump()
	c.readPump()
	return nil
}

// readPump handles the client's subscribe/unsubscribe/ping messages.
// Subscribe and unsubscribe messages are forwarded to the Hub's single
// owning goroutine so per-client filter state is never mutated
// concurrently with a broadcast tick; ping is answered with a pong on the
// client's own send channel.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "subscribe":
			req := subscribeRequest{client: c, filters: msg.Filters}
			select {
			case c.hub.subscribe <- req:
			case <-time.After(time.Second):
			}
		case "unsubscribe":
			req := subscribeRequest{client: c, unsubscribe: true}
			select {
			case c.hub.subscribe <- req:
			case <-time.After(time.Second):
			}
		case "ping":
			pong, _ := json.Marshal(outboundEnvelope{Type: "pong", Timestamp: time.Now()})
			select {
			case c.send <- pong:
			default:
			}
		}
	}
}

// writePump only ever sends what readPump/the broadcaster enqueue on
// send; it never initiates a ping frame of its own, matching the
// documented client-driven heartbeat.
func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
