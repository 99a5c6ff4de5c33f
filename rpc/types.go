package rpc

import (
	"github.com/holiman/uint256"

	"liquidstake/core"
	"liquidstake/core/types"
	"liquidstake/native/common"
	"liquidstake/native/liquidswap"
	"liquidstake/native/queue"
	"liquidstake/native/staking"
)

const ratioPrecision = 18

type callerParams struct {
	Caller string `json:"caller"`
}

type amountParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

// fundsParams attaches Amount of Denom, defaulting to the bond denom.
type fundsParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
	Denom  string `json:"denom,omitempty"`
}

type setLiquidTokenParams struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
}

type setFeeParams struct {
	Caller string `json:"caller"`
	FeeBps uint64 `json:"feeBps"`
}

type sweepParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient,omitempty"`
}

type setPausedParams struct {
	Caller string `json:"caller"`
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

type addressParams struct {
	Address string `json:"address"`
}

type pageParams struct {
	Cursor uint64 `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type bankBalanceParams struct {
	Address string `json:"address"`
	Denom   string `json:"denom,omitempty"`
}

type tokenBalanceParams struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol,omitempty"`
}

// TxResult is returned by every mutating method.
type TxResult struct {
	Height uint64        `json:"height"`
	Events []types.Event `json:"events"`
	Result interface{}   `json:"result,omitempty"`
}

type AmountResult struct {
	Amount string `json:"amount"`
}

type QueueIDResult struct {
	ID uint64 `json:"id"`
}

type SwapResult struct {
	Native    string `json:"native"`
	Fee       string `json:"fee"`
	Issued    string `json:"issued"`
	Credited  string `json:"credited"`
	Remainder string `json:"remainder"`
}

type StakingStatusResult struct {
	Issued       string `json:"issued"`
	Native       string `json:"native"`
	Unstakings   string `json:"unstakings"`
	Claims       string `json:"claims"`
	Bonded       string `json:"bonded"`
	Balance      string `json:"balance"`
	Ratio        string `json:"ratio"`
	RatioDecimal string `json:"ratioDecimal"`
}

type StakingConfigResult struct {
	Owner       string `json:"owner"`
	BondDenom   string `json:"bondDenom"`
	LiquidToken string `json:"liquidToken"`
	Validator   string `json:"validator"`
}

type SwapStatusResult struct {
	Issued       string `json:"issued"`
	Claims       string `json:"claims"`
	Remainder    string `json:"remainder"`
	Balance      string `json:"balance"`
	Ratio        string `json:"ratio"`
	RatioDecimal string `json:"ratioDecimal"`
}

type SwapConfigResult struct {
	Owner       string `json:"owner"`
	BondDenom   string `json:"bondDenom"`
	LiquidToken string `json:"liquidToken"`
	FeeBps      uint64 `json:"feeBps"`
}

type OrderResult struct {
	Issued string `json:"issued"`
	Native string `json:"native"`
	Height uint64 `json:"height"`
	NodeID uint64 `json:"nodeId"`
}

type QueueNodeResult struct {
	ID     uint64 `json:"id"`
	Owner  string `json:"owner"`
	Value  string `json:"value"`
	Height uint64 `json:"height"`
	Prev   uint64 `json:"prev"`
	Next   uint64 `json:"next"`
}

type QueuePageResult struct {
	Length     uint64            `json:"length"`
	HeadID     uint64            `json:"headId"`
	TailID     uint64            `json:"tailId"`
	LastID     uint64            `json:"lastId"`
	Nodes      []QueueNodeResult `json:"nodes"`
	NextCursor uint64            `json:"nextCursor,omitempty"`
}

type StakingInvariantsResult struct {
	QueueLength   uint64 `json:"queueLength"`
	QueueTotal    string `json:"queueTotal"`
	Unstakings    string `json:"unstakings"`
	ClaimableSum  string `json:"claimableSum"`
	Claims        string `json:"claims"`
	UnderSum      string `json:"underUnstakingSum"`
	BalanceCovers bool   `json:"balanceCovers"`
	Holds         bool   `json:"holds"`
}

type SwapInvariantsResult struct {
	QueueLength  uint64 `json:"queueLength"`
	QueueTotal   string `json:"queueTotal"`
	Issued       string `json:"issued"`
	ClaimableSum string `json:"claimableSum"`
	Claims       string `json:"claims"`
	Remainder    string `json:"remainder"`
	TokensHeld   string `json:"tokensHeld"`
	Holds        bool   `json:"holds"`
}

type InvariantsResult struct {
	Height  uint64                  `json:"height"`
	Staking StakingInvariantsResult `json:"staking"`
	Swap    SwapInvariantsResult    `json:"swap"`
	Holds   bool                    `json:"holds"`
}

func formatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func formatRatio(r common.Ratio) (string, string) {
	return r.String(), r.Decimal(ratioPrecision)
}

func txResultFrom(receipt *core.Receipt, result interface{}) TxResult {
	events := receipt.Events
	if events == nil {
		events = []types.Event{}
	}
	return TxResult{Height: receipt.Height, Events: events, Result: result}
}

func swapResultFrom(res *liquidswap.SwapResult) SwapResult {
	return SwapResult{
		Native:    formatAmount(res.Native),
		Fee:       formatAmount(res.Fee),
		Issued:    formatAmount(res.Issued),
		Credited:  formatAmount(res.Credited),
		Remainder: formatAmount(res.Remainder),
	}
}

func queuePageFrom(page *queue.PageResult) QueuePageResult {
	out := QueuePageResult{
		Length:     page.Root.Length,
		HeadID:     page.Root.HeadID,
		TailID:     page.Root.TailID,
		LastID:     page.Root.LastID,
		Nodes:      make([]QueueNodeResult, 0, len(page.Nodes)),
		NextCursor: page.NextCursor,
	}
	for _, n := range page.Nodes {
		out.Nodes = append(out.Nodes, QueueNodeResult{
			ID:     n.ID,
			Owner:  n.Owner.String(),
			Value:  formatAmount(n.Value),
			Height: n.Height,
			Prev:   n.Prev,
			Next:   n.Next,
		})
	}
	return out
}

func stakingInvariantsFrom(inv *staking.Invariants) StakingInvariantsResult {
	return StakingInvariantsResult{
		QueueLength:   inv.QueueLength,
		QueueTotal:    formatAmount(inv.QueueTotal),
		Unstakings:    formatAmount(inv.Unstakings),
		ClaimableSum:  formatAmount(inv.ClaimableSum),
		Claims:        formatAmount(inv.Claims),
		UnderSum:      formatAmount(inv.UnderSum),
		BalanceCovers: inv.BalanceCovers,
		Holds:         inv.Holds(),
	}
}

func swapInvariantsFrom(inv *liquidswap.Invariants) SwapInvariantsResult {
	return SwapInvariantsResult{
		QueueLength:  inv.QueueLength,
		QueueTotal:   formatAmount(inv.QueueTotal),
		Issued:       formatAmount(inv.Issued),
		ClaimableSum: formatAmount(inv.ClaimableSum),
		Claims:       formatAmount(inv.Claims),
		Remainder:    formatAmount(inv.Remainder),
		TokensHeld:   formatAmount(inv.TokensHeld),
		Holds:        inv.Holds(),
	}
}
