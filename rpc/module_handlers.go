package rpc

import (
	"net/http"
	"strings"

	"liquidstake/core"
	"liquidstake/core/types"
)

func (s *Server) handleModuleSetPaused(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setPausedParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	module := strings.ToLower(strings.TrimSpace(params.Module))
	if module == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "module required", nil)
		return
	}
	s.apply(w, r, req, types.MsgSetPaused{Sender: caller, Module: module, Paused: params.Paused}, nil)
}

func (s *Server) handleBankBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params bankBalanceParams
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
		denom := strings.TrimSpace(params.Denom)
		if denom == "" {
			cfg, err := m.Staking.Config()
			if err != nil {
				return nil, err
			}
			denom = cfg.BondDenom
		}
		amount, err := m.Bank.Balance(addr, denom)
		if err != nil {
			return nil, err
		}
		return AmountResult{Amount: formatAmount(amount)}, nil
	})
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params tokenBalanceParams
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
		symbol := strings.TrimSpace(params.Symbol)
		if symbol == "" {
			cfg, err := m.Staking.Config()
			if err != nil {
				return nil, err
			}
			symbol = cfg.LiquidToken
		}
		amount, err := m.Token.Balance(symbol, addr)
		if err != nil {
			return nil, err
		}
		return AmountResult{Amount: formatAmount(amount)}, nil
	})
}

func (s *Server) handleAuditInvariants(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.query(w, r, req, func(m *core.Modules) (interface{}, error) {
		stakingInv, err := m.Staking.Invariants()
		if err != nil {
			return nil, err
		}
		swapInv, err := m.Swap.Invariants()
		if err != nil {
			return nil, err
		}
		out := InvariantsResult{
			Height:  m.Height,
			Staking: stakingInvariantsFrom(stakingInv),
			Swap:    swapInvariantsFrom(swapInv),
		}
		out.Holds = out.Staking.Holds && out.Swap.Holds
		return out, nil
	})
}

func (s *Server) handleNodeHeight(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	writeResult(w, req.ID, map[string]uint64{"height": s.node.Height()})
}
