package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

// OracleService defines the methods the oracle handler requires from the
// service layer.
type OracleService interface {
	SetTrust(ctx context.Context, caller, to domain.Account, weight fixed.Num) error
	RecordOutcome(ctx context.Context, caller, account domain.Account, success bool) error
	RecordPaymentStats(ctx context.Context, caller, account domain.Account, onTime bool, delaySeconds uint64) error
	Score(ctx context.Context, account domain.Account) (domain.ScoreSnapshot, error)
	TrustWeight(ctx context.Context, from, to domain.Account) (fixed.Num, error)
	OutWeightSum(ctx context.Context, from domain.Account) (fixed.Num, error)
	InboundTrusters(ctx context.Context, to domain.Account) ([]domain.Account, error)
}

// OracleHandler serves trust-graph and reputation endpoints.
type OracleHandler struct {
	oracle OracleService
	logger *slog.Logger
}

// NewOracleHandler creates an OracleHandler with the given service and logger.
func NewOracleHandler(oracle OracleService, logger *slog.Logger) *OracleHandler {
	return &OracleHandler{
		oracle: oracle,
		logger: logger,
	}
}

type setTrustRequest struct {
	To     string `json:"to"`
	Weight string `json:"weight"`
}

// SetTrust records a trust edge from the caller to another account.
// POST /api/trust
func (h *OracleHandler) SetTrust(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req setTrustRequest
	if !decodeBody(w, r, &req) {
		return
	}
	to, ok := parseAccountField(w, "to", req.To)
	if !ok {
		return
	}
	weight, ok := parseAmountField(w, "weight", req.Weight)
	if !ok {
		return
	}

	if err := h.oracle.SetTrust(r.Context(), from, to, weight); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type recordOutcomeRequest struct {
	Account string `json:"account"`
	Success bool   `json:"success"`
}

// RecordOutcome records one settled obligation outcome for an account.
// POST /api/outcomes
func (h *OracleHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req recordOutcomeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, ok := parseAccountField(w, "account", req.Account)
	if !ok {
		return
	}

	if err := h.oracle.RecordOutcome(r.Context(), from, account, req.Success); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

type recordPaymentRequest struct {
	Account      string `json:"account"`
	OnTime       bool   `json:"on_time"`
	DelaySeconds uint64 `json:"delay_seconds"`
}

// RecordPayment records one observed payment for an account.
// POST /api/payments
func (h *OracleHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req recordPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, ok := parseAccountField(w, "account", req.Account)
	if !ok {
		return
	}

	if err := h.oracle.RecordPaymentStats(r.Context(), from, account, req.OnTime, req.DelaySeconds); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// GetScore returns the full credit-score breakdown for an account.
// GET /api/score/{account}
func (h *OracleHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAccountField(w, "account", pathParam(r, "account"))
	if !ok {
		return
	}

	snap, err := h.oracle.Score(r.Context(), account)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetTrustEdge returns the trust weight between two accounts.
// GET /api/trust/{from}/{to}
func (h *OracleHandler) GetTrustEdge(w http.ResponseWriter, r *http.Request) {
	from, ok := parseAccountField(w, "from", pathParam(r, "from"))
	if !ok {
		return
	}
	to, ok := parseAccountField(w, "to", pathParam(r, "to"))
	if !ok {
		return
	}

	weight, err := h.oracle.TrustWeight(r.Context(), from, to)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"from":   from.Hex(),
		"to":     to.Hex(),
		"weight": weight.Dec(),
	})
}

// GetTrustProfile returns an account's outgoing weight sum and inbound
// trusters.
// GET /api/trust/{account}
func (h *OracleHandler) GetTrustProfile(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAccountField(w, "account", pathParam(r, "account"))
	if !ok {
		return
	}

	outSum, err := h.oracle.OutWeightSum(r.Context(), account)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	inbound, err := h.oracle.InboundTrusters(r.Context(), account)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}

	trusters := make([]string, 0, len(inbound))
	for _, a := range inbound {
		trusters = append(trusters, a.Hex())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":          account.Hex(),
		"out_weight_sum":   outSum.Dec(),
		"inbound_trusters": trusters,
	})
}
