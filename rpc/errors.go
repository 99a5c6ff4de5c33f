package rpc

import (
	"errors"
	"log/slog"
	"net/http"

	"liquidstake/core"
	coreerrors "liquidstake/core/errors"
	"liquidstake/native/staking"
	"liquidstake/native/token"
	"liquidstake/native/validator"
)

// classify maps domain errors onto an HTTP status, a JSON-RPC code and a
// stable message. The full error text travels in the error data.
func classify(err error) (int, int, string) {
	switch {
	case errors.Is(err, coreerrors.ErrModulePaused):
		return http.StatusServiceUnavailable, codeModulePaused, "module paused"
	case errors.Is(err, coreerrors.ErrUnauthorized):
		return http.StatusForbidden, codeForbidden, "sender not authorised"
	case errors.Is(err, coreerrors.ErrNotFound), errors.Is(err, token.ErrUnknownSymbol):
		return http.StatusNotFound, codeNotFound, "not found"
	case errors.Is(err, coreerrors.ErrInsufficientLiquidity):
		return http.StatusConflict, codeInsufficient, "insufficient liquidity"
	case errors.Is(err, coreerrors.ErrInsufficientFunds), errors.Is(err, validator.ErrInsufficientBond):
		return http.StatusConflict, codeInsufficient, "insufficient funds"
	case errors.Is(err, coreerrors.ErrNothingToClaim):
		return http.StatusBadRequest, codeInvalidParams, "nothing to claim"
	case errors.Is(err, coreerrors.ErrNothingToRemove):
		return http.StatusBadRequest, codeInvalidParams, "nothing to remove"
	case errors.Is(err, coreerrors.ErrEmptyBalance):
		return http.StatusBadRequest, codeInvalidParams, "no funds attached"
	case errors.Is(err, coreerrors.ErrOrderTooSmall):
		return http.StatusBadRequest, codeInvalidParams, "order too small"
	case errors.Is(err, coreerrors.ErrInvalidAmount):
		return http.StatusBadRequest, codeInvalidParams, "invalid amount"
	case errors.Is(err, staking.ErrLiquidTokenUnset):
		return http.StatusConflict, codeInvalidParams, "liquid token not configured"
	case errors.Is(err, core.ErrUnknownMessage):
		return http.StatusBadRequest, codeInvalidRequest, "unsupported operation"
	case errors.Is(err, coreerrors.ErrArithmeticOverflow),
		errors.Is(err, coreerrors.ErrArithmeticUnderflow),
		errors.Is(err, coreerrors.ErrDivisionByZero):
		return http.StatusUnprocessableEntity, codeArithmetic, "arithmetic error"
	default:
		return http.StatusInternalServerError, codeServerError, "internal error"
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, req *RPCRequest, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("rpc request failed",
			slog.String("method", req.Method),
			slog.String("request_id", requestID(r.Context())),
			slog.Any("error", err))
	}
	writeError(w, status, req.ID, code, message, err.Error())
}
