package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/viru4/CraftCurio-sub000/internal/domain"
	"github.com/viru4/CraftCurio-sub000/internal/services"
	"github.com/viru4/CraftCurio-sub000/pkg/logger"
)

// AuctionHandler exposes the engine's operations over REST. Validation
// errors return enough context to retry (current minimum bid, status);
// conflict errors tell the caller to re-fetch the snapshot first.
type AuctionHandler struct {
	bidService    *services.BidService
	auctionMgr    *services.AuctionManager
	notifications domain.NotificationStore
	log           logger.Logger
}

func NewAuctionHandler(bidService *services.BidService, auctionMgr *services.AuctionManager,
	notifications domain.NotificationStore, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{
		bidService:    bidService,
		auctionMgr:    auctionMgr,
		notifications: notifications,
		log:           log,
	}
}

func (h *AuctionHandler) Register(api *echo.Group) {
	api.POST("/auctions", h.CreateAuction)
	api.GET("/auctions/:id", h.GetAuction)
	api.POST("/auctions/:id/bids", h.PlaceBid)
	api.POST("/auctions/:id/buy-now", h.BuyNow)
	api.POST("/auctions/:id/cancel", h.CancelAuction)
	api.POST("/auctions/:id/relist", h.RelistAuction)
	api.GET("/users/:id/notifications", h.ListNotifications)
	api.POST("/notifications/:id/read", h.MarkNotificationRead)
}

type CreateAuctionRequest struct {
	Seller       string    `json:"seller"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	StartingBid  float64   `json:"starting_bid"`
	ReservePrice float64   `json:"reserve_price"`
	BuyNowPrice  float64   `json:"buy_now_price"`
	MinIncrement float64   `json:"min_increment"`
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	var req CreateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if req.Seller == "" {
		return c.JSON(http.StatusBadRequest, errorBody("seller required"))
	}

	auction, err := h.auctionMgr.CreateAuction(c.Request().Context(), services.CreateAuctionParams{
		Seller:       req.Seller,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		StartingBid:  req.StartingBid,
		ReservePrice: req.ReservePrice,
		BuyNowPrice:  req.BuyNowPrice,
		MinIncrement: req.MinIncrement,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"auction_id": auction.ID,
		"status":     auction.Status.String(),
		"start_time": auction.StartTime,
		"end_time":   auction.EndTime,
	})
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	snapshot, err := h.auctionMgr.Snapshot(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

type PlaceBidRequest struct {
	BidderID string  `json:"bidder_id"`
	Amount   float64 `json:"amount"`
}

func (h *AuctionHandler) PlaceBid(c echo.Context) error {
	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if req.BidderID == "" {
		return c.JSON(http.StatusBadRequest, errorBody("bidder_id required"))
	}

	result, err := h.bidService.PlaceBid(c.Request().Context(), c.Param("id"), req.BidderID, req.Amount)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

type BuyNowRequest struct {
	BuyerID string `json:"buyer_id"`
}

func (h *AuctionHandler) BuyNow(c echo.Context) error {
	var req BuyNowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if req.BuyerID == "" {
		return c.JSON(http.StatusBadRequest, errorBody("buyer_id required"))
	}

	result, err := h.bidService.BuyNow(c.Request().Context(), c.Param("id"), req.BuyerID)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *AuctionHandler) CancelAuction(c echo.Context) error {
	if err := h.auctionMgr.Cancel(c.Request().Context(), c.Param("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": domain.AuctionCancelled.String()})
}

type RelistAuctionRequest struct {
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	StartingBid  float64   `json:"starting_bid"`
	ReservePrice float64   `json:"reserve_price"`
	MinIncrement float64   `json:"min_increment"`
}

func (h *AuctionHandler) RelistAuction(c echo.Context) error {
	var req RelistAuctionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	successor, err := h.auctionMgr.Relist(c.Request().Context(), c.Param("id"), services.RelistParams{
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		StartingBid:  req.StartingBid,
		ReservePrice: req.ReservePrice,
		MinIncrement: req.MinIncrement,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]string{"new_auction_id": successor.ID})
}

func (h *AuctionHandler) ListNotifications(c echo.Context) error {
	notifications, err := h.notifications.ListForRecipient(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"notifications": notifications})
}

func (h *AuctionHandler) MarkNotificationRead(c echo.Context) error {
	if err := h.notifications.MarkRead(c.Request().Context(), c.Param("id")); err != nil {
		return h.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuctionHandler) writeError(c echo.Context, err error) error {
	var tooLow *domain.BidTooLowError
	if errors.As(err, &tooLow) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":       "bid_too_low",
			"current_bid": tooLow.CurrentBid,
			"minimum_bid": tooLow.MinimumBid,
		})
	}

	switch {
	case errors.Is(err, domain.ErrAuctionNotFound):
		return c.JSON(http.StatusNotFound, errorBody("auction_not_found"))
	case errors.Is(err, domain.ErrAuctionNotLive):
		return c.JSON(http.StatusConflict, errorBody("auction_not_live"))
	case errors.Is(err, domain.ErrAuctionFinalized):
		return c.JSON(http.StatusConflict, errorBody("auction_already_finalized"))
	case errors.Is(err, domain.ErrBuyNowUnavailable):
		return c.JSON(http.StatusUnprocessableEntity, errorBody("buy_now_unavailable"))
	case errors.Is(err, domain.ErrCannotCancelWithBids):
		return c.JSON(http.StatusConflict, errorBody("cannot_cancel_active_bids"))
	case errors.Is(err, domain.ErrNotEligibleForRelist):
		return c.JSON(http.StatusConflict, errorBody("not_eligible_for_relist"))
	case errors.Is(err, domain.ErrAlreadyRelisted):
		return c.JSON(http.StatusConflict, errorBody("already_relisted"))
	case errors.Is(err, domain.ErrInvalidTimeRange):
		return c.JSON(http.StatusBadRequest, errorBody("invalid_time_range"))
	case errors.Is(err, domain.ErrVersionConflict):
		// Client should re-fetch the snapshot before retrying.
		return c.JSON(http.StatusConflict, errorBody("conflict_retry"))
	}

	h.log.Error("Request failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, errorBody("internal_error"))
}

func errorBody(code string) map[string]string {
	return map[string]string{"error": code}
}
