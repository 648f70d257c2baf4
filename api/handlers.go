package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Engine.Snapshot())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Engine.Summary(s.session.Registry))
}

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Registry.List())
}

type addInstrumentRequest struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

func (s *Server) handleAddInstrument(w http.ResponseWriter, r *http.Request) {
	var req addInstrumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Exchange == "" {
		req.Exchange = string(market.NSE)
	}
	ex, err := market.ParseExchange(req.Exchange)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	inst, err := s.session.AddInstrument(req.Symbol, ex)
	switch {
	case errors.Is(err, market.ErrDuplicate):
		s.writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.persist()
	s.writeJSON(w, http.StatusCreated, inst)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.session.Engine.Snapshot().Orders
	if r.URL.Query().Get("group") == "day" {
		s.writeJSON(w, http.StatusOK, ledger.GroupOrdersByDay(orders, time.Local))
		return
	}
	s.writeJSON(w, http.StatusOK, orders)
}

// orderRequest is a market order at the instrument's latest price.
type orderRequest struct {
	InstrumentID    string                 `json:"instrumentId"`
	TransactionType ledger.TransactionType `json:"transactionType"`
	Quantity        int64                  `json:"quantity"`
	ProductType     ledger.ProductType     `json:"productType"`
	StopLoss        float64                `json:"stopLoss,omitempty"`
	TakeProfit      float64                `json:"takeProfit,omitempty"`
}

type orderResponse struct {
	Order ledger.Order `json:"order"`
	State ledger.State `json:"state"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ProductType == "" {
		req.ProductType = ledger.Delivery
	}

	in, err := s.session.Intent(req.InstrumentID, req.TransactionType, req.Quantity, req.ProductType, req.StopLoss, req.TakeProfit)
	if errors.Is(err, market.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	st, err := s.session.Trade(in)
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.persist()
	s.writeJSON(w, http.StatusCreated, orderResponse{Order: st.Orders[0], State: st})
}

func (s *Server) handleClearOrders(w http.ResponseWriter, r *http.Request) {
	st := s.session.Engine.ClearOrderLog()
	s.persist()
	s.writeJSON(w, http.StatusOK, st)
}

// positionView is a position with its live valuation.
type positionView struct {
	ledger.Position
	LastPrice float64 `json:"lastPrice"`
	Pnl       float64 `json:"pnl"`
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions := s.session.Engine.Snapshot().Positions
	out := make([]positionView, 0, len(positions))
	for _, p := range positions {
		out = append(out, positionView{
			Position:  p,
			LastPrice: ledger.MarkPrice(p, s.session.Registry),
			Pnl:       ledger.PositionPnl(p, s.session.Registry),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExitPosition(w http.ResponseWriter, r *http.Request) {
	st, err := s.session.Engine.ExitPosition(r.PathValue("id"), s.session.Registry)
	if errors.Is(err, ledger.ErrNoPosition) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.persist()
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSquareOff(w http.ResponseWriter, r *http.Request) {
	st := s.session.Engine.SquareOff(s.session.Registry)
	s.persist()
	s.writeJSON(w, http.StatusOK, st)
}

type resetRequest struct {
	Balance float64 `json:"balance"`
}

// handleReset starts over with a new balance, or with the current initial
// balance when none is given.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if req.Balance < 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("balance must not be negative, got %.2f", req.Balance))
		return
	}
	if req.Balance == 0 {
		req.Balance = s.session.Engine.Snapshot().Wallet.InitialBalance
	}

	st := s.session.Engine.ResetWallet(req.Balance)
	s.persist()
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	text, _ := s.commentary.Insight(r.Context(), r.PathValue("symbol"))
	s.writeJSON(w, http.StatusOK, map[string]string{"insight": text})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	news, _ := s.commentary.News(r.Context())
	s.writeJSON(w, http.StatusOK, map[string][]string{"headlines": news})
}
