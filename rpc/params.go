package rpc

import (
	"net/http"
	"strings"

	"github.com/holiman/uint256"

	"liquidstake/core"
	"liquidstake/core/types"
	"liquidstake/crypto"
	"liquidstake/native/common"
)

func parseAddress(field, raw string) (crypto.Address, *RPCError) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return crypto.Address{}, &RPCError{Code: codeInvalidParams, Message: "invalid " + field + " address", Data: err.Error()}
	}
	return addr, nil
}

func parseAmount(raw string) (*uint256.Int, *RPCError) {
	amount, err := common.ParseAmount(raw)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: "invalid amount", Data: err.Error()}
	}
	if amount.IsZero() {
		return nil, &RPCError{Code: codeInvalidParams, Message: "amount must be positive"}
	}
	return amount, nil
}

// apply submits msg to the node and writes the receipt, converting the
// engine result with format when given.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, req *RPCRequest, msg types.Msg, format func(interface{}) interface{}) {
	receipt, err := s.node.Apply(r.Context(), msg)
	if err != nil {
		s.writeDomainError(w, r, req, err)
		return
	}
	var result interface{}
	if format != nil {
		result = format(receipt.Result)
	}
	writeResult(w, req.ID, txResultFrom(receipt, result))
}

// query runs fn against committed state and writes its result.
func (s *Server) query(w http.ResponseWriter, r *http.Request, req *RPCRequest, fn func(*core.Modules) (interface{}, error)) {
	var result interface{}
	err := s.node.Query(func(m *core.Modules) error {
		var err error
		result, err = fn(m)
		return err
	})
	if err != nil {
		s.writeDomainError(w, r, req, err)
		return
	}
	writeResult(w, req.ID, result)
}

func amountOut(result interface{}) interface{} {
	amount, _ := result.(*uint256.Int)
	return AmountResult{Amount: formatAmount(amount)}
}

func queueIDOut(result interface{}) interface{} {
	id, _ := result.(uint64)
	return QueueIDResult{ID: id}
}
