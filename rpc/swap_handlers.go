package rpc

import (
	"net/http"
	"strings"

	"liquidstake/core"
	"liquidstake/core/types"
	"liquidstake/crypto"
	"liquidstake/native/liquidswap"
)

func (s *Server) handleSwapAdd(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params fundsParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	amount, rpcErr := parseAmount(params.Amount)
	if rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	denom := strings.TrimSpace(params.Denom)
	if denom == "" {
		var err error
		if denom, err = s.bondDenom(); err != nil {
			s.writeDomainError(w, r, req, err)
			return
		}
	}
	msg := types.MsgAddLiquidity{Sender: caller, Funds: types.Coins{types.NewCoin(denom, amount)}}
	s.apply(w, r, req, msg, queueIDOut)
}

func (s *Server) handleSwapRemove(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params callerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	s.apply(w, r, req, types.MsgRemoveLiquidity{Sender: caller}, amountOut)
}

func (s *Server) handleSwapSwap(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params amountParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	amount, rpcErr := parseAmount(params.Amount)
	if rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	s.apply(w, r, req, types.MsgSwap{Sender: caller, Amount: amount}, func(result interface{}) interface{} {
		res, ok := result.(*liquidswap.SwapResult)
		if !ok || res == nil {
			return nil
		}
		return swapResultFrom(res)
	})
}

func (s *Server) handleSwapClaim(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params callerParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	s.apply(w, r, req, types.MsgSwapClaim{Sender: caller}, amountOut)
}

func (s *Server) handleSwapSetFee(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setFeeParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	s.apply(w, r, req, types.MsgSetSwapFee{Sender: caller, FeeBps: params.FeeBps}, nil)
}

func (s *Server) handleSwapSweepRemainder(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params sweepParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	var recipient crypto.Address
	if strings.TrimSpace(params.Recipient) != "" {
		if recipient, rpcErr = parseAddress("recipient", params.Recipient); rpcErr != nil {
			writeParamError(w, req, rpcErr)
			return
		}
	}
	s.apply(w, r, req, types.MsgSweepRemainder{Sender: caller, Recipient: recipient}, amountOut)
}

func (s *Server) handleSwapStatus(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.query(w, r, req, func(m *core.Modules) (interface{}, error) {
		status, err := m.Swap.Status()
		if err != nil {
			return nil, err
		}
		ratio, decimal := formatRatio(status.Ratio)
		return SwapStatusResult{
			Issued:       formatAmount(status.Issued),
			Claims:       formatAmount(status.Claims),
			Remainder:    formatAmount(status.Remainder),
			Balance:      formatAmount(status.Balance),
			Ratio:        ratio,
			RatioDecimal: decimal,
		}, nil
	})
}

func (s *Server) handleSwapConfig(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.query(w, r, req, func(m *core.Modules) (interface{}, error) {
		cfg, err := m.Swap.Config()
		if err != nil {
			return nil, err
		}
		return SwapConfigResult{
			Owner:       cfg.Owner.String(),
			BondDenom:   cfg.BondDenom,
			LiquidToken: cfg.LiquidToken,
			FeeBps:      cfg.FeeBps,
		}, nil
	})
}

func (s *Server) handleSwapOrderBook(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params pageParams
	if len(req.Params) > 0 {
		if rpcErr := decodeParams(req, &params); rpcErr != nil {
			writeParamError(w, req, rpcErr)
			return
		}
	}
	s.query(w, r, req, func(m *core.Modules) (interface{}, error) {
		page, err := m.Swap.OrderBook(params.Cursor, params.Limit)
		if err != nil {
			return nil, err
		}
		return queuePageFrom(page), nil
	})
}

func (s *Server) handleSwapOrderOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	addr, rpcErr := parseAddress("account", params.Address)
	if rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	s.query(w, r, req, func(m *core.Modules) (interface{}, error) {
		order, err := m.Swap.OrderOf(addr)
		if err != nil {
			return nil, err
		}
		return OrderResult{
			Issued: formatAmount(order.Issued),
			Native: formatAmount(order.Native),
			Height: order.Height,
			NodeID: order.NodeID,
		}, nil
	})
}

func (s *Server) handleSwapClaimable(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	addr, rpcErr := parseAddress("account", params.Address)
	if rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	s.query(w, r, req, func(m *core.Modules) (interface{}, error) {
		amount, err := m.Swap.Claimable(addr)
		if err != nil {
			return nil, err
		}
		return AmountResult{Amount: formatAmount(amount)}, nil
	})
}
