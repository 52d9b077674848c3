package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"windrose/pkg/compass"
	"windrose/pkg/geo"
	"windrose/pkg/heading"
	"windrose/pkg/layout"
	"windrose/pkg/locate"
	"windrose/pkg/sensor"
)

const writeTimeout = 5 * time.Second

// StreamHandler runs one compass session per websocket connection: the
// client relays consent, raw heading samples, and position; the server
// streams back layout frames at a fixed rate.
type StreamHandler struct {
	provider      BuildingSearcher
	resolver      *locate.Resolver
	mgr           *compass.Manager
	engine        *layout.Engine
	estCfg        heading.Config
	frameInterval time.Duration
	defaultRadius float64
	upgrader      websocket.Upgrader
	newSource     func() sensor.Source
}

func NewStreamHandler(provider BuildingSearcher, resolver *locate.Resolver, mgr *compass.Manager, engine *layout.Engine, estCfg heading.Config, frameInterval time.Duration, defaultRadius float64) *StreamHandler {
	if frameInterval <= 0 {
		frameInterval = 16 * time.Millisecond
	}
	return &StreamHandler{
		provider:      provider,
		resolver:      resolver,
		mgr:           mgr,
		engine:        engine,
		estCfg:        estCfg,
		frameInterval: frameInterval,
		defaultRadius: defaultRadius,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		newSource: func() sensor.Source { return sensor.NewRemoteSource() },
	}
}

// UseMockSensor makes every new session read from a simulated sweeping
// sensor instead of the client relay. Consent and heading messages are then
// ignored; position and locate still work. For local runs without a device.
func (h *StreamHandler) UseMockSensor(start, rate float64, interval time.Duration) {
	h.newSource = func() sensor.Source {
		return sensor.NewMockSource(start, rate, interval)
	}
}

// clientMessage is the inbound websocket message envelope.
type clientMessage struct {
	Type      string  `json:"type"`
	Granted   *bool   `json:"granted,omitempty"`
	Supported *bool   `json:"supported,omitempty"`
	Degrees   float64 `json:"degrees,omitempty"`
	Lat       float64 `json:"lat,omitempty"`
	Lng       float64 `json:"lng,omitempty"`
	Radius    float64 `json:"radius,omitempty"`
}

func (h *StreamHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade stream connection", "error", err)
		return
	}

	src := h.newSource()
	sess := compass.NewSession(heading.New(src, h.estCfg), h.engine)
	h.mgr.Add(sess)

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		sess.Close()
		h.mgr.Remove(sess.ID())
		conn.Close()
		slog.Debug("Stream session closed", "session", sess.ID())
	}()

	slog.Info("Stream session opened", "session", sess.ID())

	remote, _ := src.(*sensor.RemoteSource)
	if remote == nil {
		// Simulated sensor, no consent handshake to wait for.
		if err := sess.StartHeading(ctx); err != nil {
			slog.Warn("Failed to start simulated sensor", "session", sess.ID(), "error", err)
		}
	}

	go h.writeFrames(ctx, cancel, conn, sess)
	h.readMessages(ctx, conn, sess, remote)
}

// readMessages consumes client messages until the connection drops. src is
// nil when the session reads from a simulated sensor.
func (h *StreamHandler) readMessages(ctx context.Context, conn *websocket.Conn, sess *compass.Session, src *sensor.RemoteSource) {
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("Stream read failed", "session", sess.ID(), "error", err)
			}
			return
		}

		switch msg.Type {
		case "consent":
			if src == nil {
				break
			}
			if msg.Supported != nil && !*msg.Supported {
				src.SetUnsupported()
			} else {
				src.SetConsent(msg.Granted != nil && *msg.Granted)
			}
			if err := sess.StartHeading(ctx); err != nil {
				// Surfaced to the client via frame notices.
				slog.Debug("Heading start refused", "session", sess.ID(), "error", err)
			}

		case "heading":
			if src == nil {
				break
			}
			src.Push(msg.Degrees)

		case "position":
			origin := geo.Point{Lat: msg.Lat, Lon: msg.Lng}
			sess.SetOrigin(origin, false, "")
			go h.fetchBuildings(ctx, sess, origin, msg.Radius)

		case "locate":
			p, err := h.resolver.Resolve(ctx)
			if err != nil {
				sess.SetOrigin(p, true, err.Error())
			} else {
				sess.SetOrigin(p, false, "")
			}
			go h.fetchBuildings(ctx, sess, p, msg.Radius)

		default:
			slog.Debug("Unknown stream message", "session", sess.ID(), "type", msg.Type)
		}
	}
}

// fetchBuildings runs after a coordinate is known; a failure is recorded on
// the session, never fatal to the stream.
func (h *StreamHandler) fetchBuildings(ctx context.Context, sess *compass.Session, origin geo.Point, radius float64) {
	if radius <= 0 {
		radius = h.defaultRadius
	}
	buildings, err := h.provider.Search(ctx, origin, radius)
	if err != nil {
		slog.Warn("Building fetch failed", "session", sess.ID(), "error", err)
		sess.SetFetchError(err)
		return
	}
	sess.SetBuildings(buildings)
}

// writeFrames pushes layout frames at the configured rate until the
// connection or context ends.
func (h *StreamHandler) writeFrames(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sess *compass.Session) {
	ticker := time.NewTicker(h.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				cancel()
				return
			}
			if err := conn.WriteJSON(sess.Frame()); err != nil {
				cancel()
				return
			}
		}
	}
}
