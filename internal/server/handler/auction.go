package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

// AuctionService defines the methods the auction handler requires from the
// service layer.
type AuctionService interface {
	CreateAuction(ctx context.Context, caller domain.Account, poolID, bidDuration, revealDuration uint64) (uint64, error)
	CommitBid(ctx context.Context, caller domain.Account, auctionID uint64, commit domain.CommitHash) error
	RevealBid(ctx context.Context, caller domain.Account, auctionID uint64, amount fixed.Num, secret string) error
	CloseAuction(ctx context.Context, caller domain.Account, auctionID uint64) error
	Auction(ctx context.Context, auctionID uint64) (domain.Auction, domain.AuctionPhase, error)
}

// AuctionHandler serves auction lifecycle HTTP endpoints.
type AuctionHandler struct {
	auctions AuctionService
	logger   *slog.Logger
}

// NewAuctionHandler creates an AuctionHandler with the given service and
// logger.
func NewAuctionHandler(auctions AuctionService, logger *slog.Logger) *AuctionHandler {
	return &AuctionHandler{
		auctions: auctions,
		logger:   logger,
	}
}

type createAuctionRequest struct {
	PoolID         uint64 `json:"pool_id"`
	BidDuration    uint64 `json:"bid_duration"`
	RevealDuration uint64 `json:"reveal_duration"`
}

// CreateAuction opens a new auction on a pool operated by the caller.
// POST /api/auctions
func (h *AuctionHandler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	operator, ok := caller(w, r)
	if !ok {
		return
	}
	var req createAuctionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := h.auctions.CreateAuction(r.Context(), operator, req.PoolID, req.BidDuration, req.RevealDuration)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"auction_id": id})
}

type commitBidRequest struct {
	Commit string `json:"commit"`
}

// CommitBid stores the caller's sealed bid hash. Re-committing before the
// bidding deadline replaces the previous hash.
// POST /api/auctions/{id}/commits
func (h *AuctionHandler) CommitBid(w http.ResponseWriter, r *http.Request) {
	bidder, ok := caller(w, r)
	if !ok {
		return
	}
	auctionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req commitBidRequest
	if !decodeBody(w, r, &req) {
		return
	}
	raw, err := decodeHash(req.Commit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid commit hash")
		return
	}

	if err := h.auctions.CommitBid(r.Context(), bidder, auctionID, raw); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

type revealBidRequest struct {
	Amount string `json:"amount"`
	Secret string `json:"secret"`
}

// RevealBid discloses the caller's bid; it must hash to the stored commit.
// POST /api/auctions/{id}/reveals
func (h *AuctionHandler) RevealBid(w http.ResponseWriter, r *http.Request) {
	bidder, ok := caller(w, r)
	if !ok {
		return
	}
	auctionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req revealBidRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, ok := parseAmountField(w, "amount", req.Amount)
	if !ok {
		return
	}

	if err := h.auctions.RevealBid(r.Context(), bidder, auctionID, amount, req.Secret); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revealed"})
}

// CloseAuction settles an auction after its reveal window has passed.
// POST /api/auctions/{id}/close
func (h *AuctionHandler) CloseAuction(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	auctionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.auctions.CloseAuction(r.Context(), from, auctionID); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}

	auction, phase, err := h.auctions.Auction(r.Context(), auctionID)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, auctionView(auction, phase))
}

// GetAuction returns one auction by id, including its derived phase.
// GET /api/auctions/{id}
func (h *AuctionHandler) GetAuction(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	auction, phase, err := h.auctions.Auction(r.Context(), auctionID)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, auctionView(auction, phase))
}

// auctionResponse is the JSON view of an auction. Commit hashes stay
// hidden until the auction closes.
type auctionResponse struct {
	ID            uint64              `json:"id"`
	PoolID        uint64              `json:"pool_id"`
	Phase         domain.AuctionPhase `json:"phase"`
	BidEnd        domain.Timestamp    `json:"bid_end"`
	RevealEnd     domain.Timestamp    `json:"reveal_end"`
	Bidders       []string            `json:"bidders"`
	Winner        string              `json:"winner,omitempty"`
	WinningAmount string              `json:"winning_amount,omitempty"`
	BonusPaid     bool                `json:"bonus_paid"`
}

func auctionView(a domain.Auction, phase domain.AuctionPhase) auctionResponse {
	resp := auctionResponse{
		ID:        a.ID,
		PoolID:    a.PoolID,
		Phase:     phase,
		BidEnd:    a.BidEnd,
		RevealEnd: a.RevealEnd,
		Bidders:   make([]string, 0, len(a.Bidders)),
		BonusPaid: a.BonusPaid,
	}
	for _, b := range a.Bidders {
		resp.Bidders = append(resp.Bidders, b.Hex())
	}
	if a.Winner != nil {
		resp.Winner = a.Winner.Hex()
		resp.WinningAmount = a.WinningAmount.Dec()
	}
	return resp
}

// decodeHash parses a 0x-prefixed 32-byte hex string.
func decodeHash(s string) (domain.CommitHash, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return domain.CommitHash{}, err
	}
	if len(raw) != common.HashLength {
		return domain.CommitHash{}, fmt.Errorf("hash must be %d bytes", common.HashLength)
	}
	return common.BytesToHash(raw), nil
}
