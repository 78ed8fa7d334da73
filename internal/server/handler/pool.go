package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

// PoolService defines the methods the pool handler requires from the
// service layer.
type PoolService interface {
	CreatePool(ctx context.Context, caller domain.Account, size fixed.Num, rating uint8) (uint64, error)
	DepositPremium(ctx context.Context, caller domain.Account, poolID uint64, value fixed.Num) error
	Pool(ctx context.Context, poolID uint64) (domain.Pool, error)
}

// PoolHandler serves pool-related HTTP endpoints.
type PoolHandler struct {
	pools  PoolService
	logger *slog.Logger
}

// NewPoolHandler creates a PoolHandler with the given service and logger.
func NewPoolHandler(pools PoolService, logger *slog.Logger) *PoolHandler {
	return &PoolHandler{
		pools:  pools,
		logger: logger,
	}
}

type createPoolRequest struct {
	Size   string `json:"size"`
	Rating uint8  `json:"rating"`
}

// CreatePool registers a new pool operated by the caller.
// POST /api/pools
func (h *PoolHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	operator, ok := caller(w, r)
	if !ok {
		return
	}
	var req createPoolRequest
	if !decodeBody(w, r, &req) {
		return
	}
	size, ok := parseAmountField(w, "size", req.Size)
	if !ok {
		return
	}

	id, err := h.pools.CreatePool(r.Context(), operator, size, req.Rating)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"pool_id": id})
}

type depositRequest struct {
	Value string `json:"value"`
}

// DepositPremium credits a premium payment to a pool.
// POST /api/pools/{id}/deposits
func (h *PoolHandler) DepositPremium(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	poolID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req depositRequest
	if !decodeBody(w, r, &req) {
		return
	}
	value, ok := parseAmountField(w, "value", req.Value)
	if !ok {
		return
	}

	if err := h.pools.DepositPremium(r.Context(), from, poolID, value); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deposited"})
}

// poolResponse is the JSON view of a pool.
type poolResponse struct {
	ID             uint64           `json:"id"`
	Operator       string           `json:"operator"`
	Size           string           `json:"size"`
	Rating         uint8            `json:"rating"`
	PremiumBalance string           `json:"premium_balance"`
	CreatedAt      domain.Timestamp `json:"created_at"`
}

// GetPool returns one pool by id.
// GET /api/pools/{id}
func (h *PoolHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	poolID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	pool, err := h.pools.Pool(r.Context(), poolID)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{
		ID:             pool.ID,
		Operator:       pool.Operator.Hex(),
		Size:           pool.Size.Dec(),
		Rating:         pool.Rating,
		PremiumBalance: pool.PremiumBalance.Dec(),
		CreatedAt:      pool.CreatedAt,
	})
}
