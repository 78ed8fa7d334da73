// Package handler contains the HTTP handlers for the engine API. Command
// handlers identify the caller through the X-Account header; authorization
// itself is enforced by the engine's access gate.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

// callerHeader carries the acting account for command endpoints.
const callerHeader = "X-Account"

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps an engine error onto an HTTP status and sends it.
// Unrecognized errors are logged and reported as a generic 500.
func writeEngineError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, ok := statusFor(err)
	if !ok {
		logger.ErrorContext(r.Context(), "handler: internal error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// statusFor translates the engine's sentinel errors into HTTP status codes.
// Capability failures are 401, eligibility and allowlist failures 403,
// state-machine conflicts 409, semantic input failures 422, and external
// ledger failures 502.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, true
	case errors.Is(err, domain.ErrRatingTooLow),
		errors.Is(err, domain.ErrOperatorCreditLow),
		errors.Is(err, domain.ErrProtocolNotAllowed):
		return http.StatusForbidden, true
	case errors.Is(err, domain.ErrPoolNotFound),
		errors.Is(err, domain.ErrAuctionNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, domain.ErrBiddingOver),
		errors.Is(err, domain.ErrNotInRevealWindow),
		errors.Is(err, domain.ErrAlreadyRevealed),
		errors.Is(err, domain.ErrRevealOngoing),
		errors.Is(err, domain.ErrAlreadyClosed):
		return http.StatusConflict, true
	case errors.Is(err, domain.ErrInvalidWeight),
		errors.Is(err, domain.ErrZeroSize),
		errors.Is(err, domain.ErrNoValue),
		errors.Is(err, domain.ErrNoCommit),
		errors.Is(err, domain.ErrCommitMismatch),
		errors.Is(err, domain.ErrOverflow):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, domain.ErrTokenTransferFailed):
		return http.StatusBadGateway, true
	}
	return 0, false
}

// caller extracts the acting account from the X-Account header. Returns
// false (after writing a 400) when the header is missing or malformed.
func caller(w http.ResponseWriter, r *http.Request) (domain.Account, bool) {
	raw := r.Header.Get(callerHeader)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing "+callerHeader+" header")
		return domain.Account{}, false
	}
	acct, err := domain.ParseAccount(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+callerHeader+" header")
		return domain.Account{}, false
	}
	return acct, true
}

// parseAccountField parses a hex address from a request body field,
// writing a 400 on failure.
func parseAccountField(w http.ResponseWriter, name, raw string) (domain.Account, bool) {
	acct, err := domain.ParseAccount(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name+" address")
		return domain.Account{}, false
	}
	return acct, true
}

// parseAmountField parses a decimal fixed-point amount from a request body
// field, writing a 400 on failure.
func parseAmountField(w http.ResponseWriter, name, raw string) (fixed.Num, bool) {
	n, err := fixed.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name+" amount")
		return fixed.Num{}, false
	}
	return n, true
}

// decodeBody decodes the request body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// pathID parses a numeric {id} path parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	raw := pathParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
