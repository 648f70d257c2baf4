package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Snapshot is one frame of the /ws stream.
type Snapshot struct {
	Time        time.Time           `json:"time"`
	Summary     ledger.Summary      `json:"summary"`
	Instruments []market.Instrument `json:"instruments"`
	Positions   []ledger.Position   `json:"positions"`
	Orders      []ledger.Order      `json:"orders"`
}

func (s *Server) snapshot() Snapshot {
	st := s.session.Engine.Snapshot()
	return Snapshot{
		Time:        time.Now().UTC(),
		Summary:     ledger.Summarize(st, s.session.Registry),
		Instruments: s.session.Registry.List(),
		Positions:   st.Positions,
		Orders:      st.Orders,
	}
}

// handleStream pushes a snapshot on connect and then every StreamInterval
// until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade")
		return
	}
	defer conn.Close()

	log := s.logger.WithField("remote", r.RemoteAddr)
	log.Debug("stream client connected")

	// Reads only serve to notice the client closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(s.snapshot()); err != nil {
		log.WithError(err).Debug("stream write")
		return
	}

	ticker := time.NewTicker(s.StreamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Debug("stream client disconnected")
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(s.snapshot()); err != nil {
				log.WithError(err).Debug("stream write")
				return
			}
		}
	}
}
