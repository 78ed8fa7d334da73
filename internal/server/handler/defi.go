package handler

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

// DefiService defines the methods the defi handler requires from the
// service layer.
type DefiService interface {
	TradeTokens(ctx context.Context, caller, to domain.Account, amount fixed.Num) error
	IntegrateWithDefi(ctx context.Context, caller, protocol domain.Account, payload []byte) ([]byte, error)
}

// DefiHandler serves token-trade and external-protocol endpoints.
type DefiHandler struct {
	defi   DefiService
	logger *slog.Logger
}

// NewDefiHandler creates a DefiHandler with the given service and logger.
func NewDefiHandler(defi DefiService, logger *slog.Logger) *DefiHandler {
	return &DefiHandler{
		defi:   defi,
		logger: logger,
	}
}

type tradeRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// TradeTokens moves tokens from the caller to another account through the
// external ledger.
// POST /api/tokens/trade
func (h *DefiHandler) TradeTokens(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req tradeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	to, ok := parseAccountField(w, "to", req.To)
	if !ok {
		return
	}
	amount, ok := parseAmountField(w, "amount", req.Amount)
	if !ok {
		return
	}

	if err := h.defi.TradeTokens(r.Context(), from, to, amount); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "traded"})
}

type defiCallRequest struct {
	Protocol string `json:"protocol"`
	Payload  string `json:"payload"` // base64
}

// Call forwards an opaque payload to an allowlisted protocol and returns
// the raw response.
// POST /api/defi/call
func (h *DefiHandler) Call(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req defiCallRequest
	if !decodeBody(w, r, &req) {
		return
	}
	protocol, ok := parseAccountField(w, "protocol", req.Protocol)
	if !ok {
		return
	}
	payload, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "payload must be base64")
		return
	}

	result, err := h.defi.IntegrateWithDefi(r.Context(), from, protocol, payload)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"result": base64.StdEncoding.EncodeToString(result),
	})
}
