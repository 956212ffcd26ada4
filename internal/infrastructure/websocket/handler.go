package websocket

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
	"github.com/viru4/CraftCurio-sub000/internal/services"
	"github.com/viru4/CraftCurio-sub000/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Handler upgrades subscriber connections and runs their read loop. A
// subscriber joins one auction per connection; the read loop accepts bids
// over the socket and an explicit leave message, and unregisters on
// disconnect.
type Handler struct {
	bidService  *services.BidService
	auctionMgr  *services.AuctionManager
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewHandler(bidService *services.BidService, auctionMgr *services.AuctionManager,
	connManager domain.ConnectionManager, log logger.Logger) *Handler {
	return &Handler{
		bidService:  bidService,
		auctionMgr:  auctionMgr,
		connManager: connManager,
		log:         log,
	}
}

func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	auctionID := vars["auctionID"]

	snapshot, err := h.auctionMgr.Snapshot(r.Context(), auctionID)
	if err != nil {
		if errors.Is(err, domain.ErrAuctionNotFound) {
			http.Error(w, "auction not found", http.StatusNotFound)
			return
		}
		h.log.Error("Failed to load auction", "auction_id", auctionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewConnection(conn, userID, auctionID, h.log)

	if err := h.connManager.RegisterConnection(userID, auctionID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return
	}

	// New joiners get the authoritative snapshot up front; events carry
	// deltas only.
	if err := wsConn.Send(map[string]interface{}{"type": "snapshot", "snapshot": snapshot}); err != nil {
		h.log.Error("Failed to send snapshot", "auction_id", auctionID, "error", err)
	}

	go h.readLoop(wsConn, userID, auctionID)
}

func (h *Handler) readLoop(conn *Connection, userID, auctionID string) {
	defer func() {
		h.connManager.UnregisterConnection(userID, auctionID)
		conn.Close()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.conn.ReadJSON(&msg); err != nil {
			return
		}

		msgType, ok := msg["type"].(string)
		if !ok {
			continue
		}

		switch msgType {
		case "place_bid":
			h.handleBidMessage(conn, userID, auctionID, msg)
		case "ping":
			conn.Send(map[string]string{"type": "pong"})
		case "leave":
			return
		}
	}
}

func (h *Handler) handleBidMessage(conn *Connection, userID, auctionID string, msg map[string]interface{}) {
	amount, ok := msg["amount"].(float64)
	if !ok {
		conn.Send(map[string]string{"type": "error", "message": "invalid amount"})
		return
	}

	result, err := h.bidService.PlaceBid(context.Background(), auctionID, userID, amount)
	if err != nil {
		conn.Send(bidErrorMessage(err))
		return
	}

	conn.Send(map[string]interface{}{
		"type":        "bid_result",
		"current_bid": result.CurrentBid,
		"total_bids":  result.TotalBids,
		"finalized":   result.Finalized,
	})
}

func bidErrorMessage(err error) map[string]interface{} {
	var tooLow *domain.BidTooLowError
	if errors.As(err, &tooLow) {
		return map[string]interface{}{
			"type":        "bid_rejected",
			"reason":      "bid_too_low",
			"current_bid": tooLow.CurrentBid,
			"minimum_bid": tooLow.MinimumBid,
		}
	}

	reason := "internal_error"
	switch {
	case errors.Is(err, domain.ErrAuctionNotLive):
		reason = "auction_not_live"
	case errors.Is(err, domain.ErrAuctionNotFound):
		reason = "auction_not_found"
	case errors.Is(err, domain.ErrVersionConflict):
		reason = "conflict_retry"
	}
	return map[string]interface{}{"type": "bid_rejected", "reason": reason}
}
