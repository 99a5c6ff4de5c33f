package rpc

import (
	"net/http"
	"strings"

	"liquidstake/core"
	"liquidstake/core/types"
)

func (s *Server) bondDenom() (string, error) {
	var denom string
	err := s.node.Query(func(m *core.Modules) error {
		cfg, err := m.Staking.Config()
		if err != nil {
			return err
		}
		denom = cfg.BondDenom
		return nil
	})
	return denom, err
}

func (s *Server) handleStakingStake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
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
	msg := types.MsgStake{Sender: caller, Funds: types.Coins{types.NewCoin(denom, amount)}}
	s.apply(w, r, req, msg, amountOut)
}

func (s *Server) handleStakingUnstake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
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
	s.apply(w, r, req, types.MsgUnstake{Sender: caller, Amount: amount}, queueIDOut)
}

func (s *Server) handleStakingClaim(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
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
	s.apply(w, r, req, types.MsgStakingClaim{Sender: caller}, amountOut)
}

func (s *Server) handleStakingSync(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if len(req.Params) > 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	s.apply(w, r, req, types.MsgSync{}, nil)
}

func (s *Server) handleStakingSetLiquidToken(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params setLiquidTokenParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	caller, rpcErr := parseAddress("caller", params.Caller)
	if rpcErr != nil {
		writeParamError(w, req, rpcErr)
		return
	}
	if strings.TrimSpace(params.Token) == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "token symbol required", nil)
		return
	}
	s.apply(w, r, req, types.MsgSetLiquidToken{Sender: caller, Token: params.Token}, nil)
}

func (s *Server) handleStakingStatus(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.query(w, r, req, func(m *core.Modules) (interface{}, error) {
		status, err := m.Staking.Status()
		if err != nil {
			return nil, err
		}
		ratio, decimal := formatRatio(status.Ratio)
		return StakingStatusResult{
			Issued:       formatAmount(status.Issued),
			Native:       formatAmount(status.Native),
			Unstakings:   formatAmount(status.Unstakings),
			Claims:       formatAmount(status.Claims),
			Bonded:       formatAmount(status.Bonded),
			Balance:      formatAmount(status.Balance),
			Ratio:        ratio,
			RatioDecimal: decimal,
		}, nil
	})
}

func (s *Server) handleStakingConfig(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.query(w, r, req, func(m *core.Modules) (interface{}, error) {
		cfg, err := m.Staking.Config()
		if err != nil {
			return nil, err
		}
		return StakingConfigResult{
			Owner:       cfg.Owner.String(),
			BondDenom:   cfg.BondDenom,
			LiquidToken: cfg.LiquidToken,
			Validator:   cfg.Validator,
		}, nil
	})
}

func (s *Server) handleStakingQueue(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params pageParams
	if len(req.Params) > 0 {
		if rpcErr := decodeParams(req, &params); rpcErr != nil {
			writeParamError(w, req, rpcErr)
			return
		}
	}
	s.query(w, r, req, func(m *core.Modules) (interface{}, error) {
		page, err := m.Staking.Queue(params.Cursor, params.Limit)
		if err != nil {
			return nil, err
		}
		return queuePageFrom(page), nil
	})
}

func (s *Server) handleStakingClaimable(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
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
		amount, err := m.Staking.Claimable(addr)
		if err != nil {
			return nil, err
		}
		return AmountResult{Amount: formatAmount(amount)}, nil
	})
}

func (s *Server) handleStakingUnderUnstaking(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
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
		amount, err := m.Staking.UnderUnstaking(addr)
		if err != nil {
			return nil, err
		}
		return AmountResult{Amount: formatAmount(amount)}, nil
	})
}
