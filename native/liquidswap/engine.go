// Package liquidswap lets liquidity providers queue native value that traders
// buy with liquid tokens at the staking exchange rate. Orders are matched
// against providers oldest first; providers earn the liquid tokens, fee
// included, in proportion to the value taken from them.
package liquidswap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	coreerrors "liquidstake/core/errors"
	"liquidstake/core/events"
	"liquidstake/core/types"
	"liquidstake/crypto"
	"liquidstake/native/common"
	"liquidstake/native/queue"
)

// ModuleName identifies the module for pausing and its escrow account.
const ModuleName = "liquidswap"

const (
	// DefaultFeeBps is the swap fee applied when none is configured.
	DefaultFeeBps uint64 = 100
	// MaxFeeBps is one hundred percent.
	MaxFeeBps uint64 = 10_000
)

var (
	errNilState = errors.New("liquidswap engine: state not configured")
	errNoConfig = errors.New("liquidswap engine: module not initialised")
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Bank exposes native balances.
type Bank interface {
	Balance(addr crypto.Address, denom string) (*uint256.Int, error)
	Send(from, to crypto.Address, denom string, amount *uint256.Int) error
}

// Token moves liquid tokens.
type Token interface {
	Balance(symbol string, addr crypto.Address) (*uint256.Int, error)
	Transfer(symbol string, from, to crypto.Address, amount *uint256.Int) error
}

// RatioSource prices liquid tokens in native value.
type RatioSource interface {
	Ratio() (common.Ratio, error)
}

// Engine orchestrates the state transitions of the swap module. It is rebound
// to a fresh state overlay for every unit of work.
type Engine struct {
	state         engineState
	bank          Bank
	token         Token
	ratios        RatioSource
	emitter       events.Emitter
	pauses        common.PauseStore
	moduleAddress crypto.Address
	blockHeight   uint64
}

// NewEngine constructs a swap engine whose pool lives at the module account.
func NewEngine() *Engine {
	return &Engine{moduleAddress: crypto.ModuleAddress(ModuleName), emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBank sets the ledger that holds provider deposits.
func (e *Engine) SetBank(bank Bank) { e.bank = bank }

// SetToken sets the ledger for the liquid token being bought.
func (e *Engine) SetToken(token Token) { e.token = token }

// SetRatioSource sets where swaps read the liquid-to-native ratio. The
// engine rejects calls until one is set.
func (e *Engine) SetRatioSource(src RatioSource) { e.ratios = src }

// SetPauses sets the shared pause flags.
func (e *Engine) SetPauses(p common.PauseStore) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetEmitter routes module events; nil discards them.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetBlockHeight records the height stamped on new positions.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.blockHeight = height
}

// ModuleAddress returns the account holding pooled native funds and earned
// tokens.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.bank == nil || e.token == nil || e.ratios == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) guard() error {
	if err := e.ready(); err != nil {
		return err
	}
	return common.Guard(e.pauses, ModuleName)
}

func (e *Engine) queue() *queue.Queue {
	return queue.New(e.state, queueNamespace)
}

func (e *Engine) loadConfig() (*Config, error) {
	var stored storedConfig
	ok, err := e.state.KVGet(configKey, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNoConfig
	}
	owner, err := crypto.AddressFromBytes(stored.Owner)
	if err != nil {
		return nil, fmt.Errorf("liquidswap engine: config owner: %w", err)
	}
	return &Config{Owner: owner, BondDenom: stored.BondDenom, LiquidToken: stored.LiquidToken, FeeBps: stored.FeeBps}, nil
}

func (e *Engine) saveConfig(cfg *Config) error {
	return e.state.KVPut(configKey, &storedConfig{
		Owner:       cfg.Owner.Bytes(),
		BondDenom:   cfg.BondDenom,
		LiquidToken: cfg.LiquidToken,
		FeeBps:      cfg.FeeBps,
	})
}

func (e *Engine) loadSupply() (*Supply, error) {
	var stored storedSupply
	ok, err := e.state.KVGet(supplyKey, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Supply{Issued: common.Zero(), Claims: common.Zero(), Remainder: common.Zero()}, nil
	}
	return stored.toSupply()
}

func (e *Engine) saveSupply(s *Supply) error {
	return e.state.KVPut(supplyKey, newStoredSupply(s))
}

func (e *Engine) loadQueueID(owner crypto.Address) (uint64, error) {
	var id uint64
	if _, err := e.state.KVGet(queueIDKey(owner), &id); err != nil {
		return 0, err
	}
	return id, nil
}

func (e *Engine) saveQueueID(owner crypto.Address, id uint64) error {
	if id == 0 {
		return e.state.KVDelete(queueIDKey(owner))
	}
	return e.state.KVPut(queueIDKey(owner), id)
}

// Init stores the module configuration once.
func (e *Engine) Init(cfg Config) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if strings.TrimSpace(cfg.BondDenom) == "" {
		return fmt.Errorf("liquidswap engine: bond denom required")
	}
	if strings.TrimSpace(cfg.LiquidToken) == "" {
		return fmt.Errorf("liquidswap engine: liquid token required")
	}
	if cfg.Owner.IsZero() {
		return fmt.Errorf("liquidswap engine: owner required")
	}
	if cfg.FeeBps > MaxFeeBps {
		return fmt.Errorf("liquidswap engine: fee %d bps above %d: %w", cfg.FeeBps, MaxFeeBps, coreerrors.ErrInvalidAmount)
	}
	if ok, err := e.state.KVGet(configKey, nil); err != nil || ok {
		return err
	}
	cfg.LiquidToken = strings.ToUpper(strings.TrimSpace(cfg.LiquidToken))
	if err := e.saveConfig(&cfg); err != nil {
		return err
	}
	return e.saveSupply(&Supply{Issued: common.Zero(), Claims: common.Zero(), Remainder: common.Zero()})
}

func (e *Engine) requireOwner(sender crypto.Address) (*Config, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if !sender.Equal(cfg.Owner) {
		return nil, coreerrors.ErrUnauthorized
	}
	return cfg, nil
}

// SetSwapFee updates the fee. Owner only.
func (e *Engine) SetSwapFee(sender crypto.Address, feeBps uint64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	cfg, err := e.requireOwner(sender)
	if err != nil {
		return err
	}
	if feeBps > MaxFeeBps {
		return fmt.Errorf("fee %d bps above %d: %w", feeBps, MaxFeeBps, coreerrors.ErrInvalidAmount)
	}
	cfg.FeeBps = feeBps
	return e.saveConfig(cfg)
}

// SetPaused toggles the module. Owner only.
func (e *Engine) SetPaused(sender crypto.Address, paused bool) error {
	if e == nil || e.state == nil || e.pauses == nil {
		return errNilState
	}
	if _, err := e.requireOwner(sender); err != nil {
		return err
	}
	if err := e.pauses.SetPaused(ModuleName, paused); err != nil {
		return err
	}
	e.emitter.Emit(events.ModulePauseToggled{Module: ModuleName, Paused: paused, By: sender})
	return nil
}

// SweepRemainder transfers the accumulated truncation dust to recipient,
// defaulting to the owner. Owner only.
func (e *Engine) SweepRemainder(sender, recipient crypto.Address) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.requireOwner(sender)
	if err != nil {
		return nil, err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	if supply.Remainder.IsZero() {
		return nil, coreerrors.ErrNothingToClaim
	}
	if recipient.IsZero() {
		recipient = cfg.Owner
	}
	amount := supply.Remainder
	supply.Remainder = common.Zero()
	if err := e.saveSupply(supply); err != nil {
		return nil, err
	}
	if err := e.token.Transfer(cfg.LiquidToken, e.moduleAddress, recipient, amount); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.SwapRemainderSwept{Recipient: recipient, Amount: amount})
	return amount, nil
}

// Add deposits the bond-denominated funds attached by sender. An existing
// position is merged and moves to the back of the queue. It returns the
// provider's node id.
func (e *Engine) Add(sender crypto.Address, funds types.Coins) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return 0, err
	}
	payment := funds.AmountOf(cfg.BondDenom)
	if payment.IsZero() {
		return 0, fmt.Errorf("no %s sent: %w", cfg.BondDenom, coreerrors.ErrEmptyBalance)
	}
	curNative, err := e.bank.Balance(e.moduleAddress, cfg.BondDenom)
	if err != nil {
		return 0, err
	}
	if err := e.bank.Send(sender, e.moduleAddress, cfg.BondDenom, payment); err != nil {
		return 0, err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return 0, err
	}
	// Native left behind by an emptied pool belongs to nobody in the queue.
	if !curNative.IsZero() && supply.Issued.IsZero() {
		if err := e.bank.Send(e.moduleAddress, cfg.Owner, cfg.BondDenom, curNative); err != nil {
			return 0, err
		}
		curNative = common.Zero()
	}
	value, err := common.NewRatio(supply.Issued, curNative).Apply(payment)
	if err != nil {
		return 0, err
	}
	if value.IsZero() {
		return 0, fmt.Errorf("deposit too small to issue: %w", coreerrors.ErrInvalidAmount)
	}
	if supply.Issued, err = common.Add(supply.Issued, value); err != nil {
		return 0, err
	}
	if err := e.saveSupply(supply); err != nil {
		return 0, err
	}

	q := e.queue()
	total := value
	oldID, err := e.loadQueueID(sender)
	if err != nil {
		return 0, err
	}
	if oldID != 0 {
		old, err := q.Node(oldID)
		if err != nil {
			return 0, err
		}
		if total, err = common.Add(total, old.Value); err != nil {
			return 0, err
		}
		if err := q.Remove(oldID); err != nil {
			return 0, err
		}
	}
	id, err := q.Append(sender, total, e.blockHeight)
	if err != nil {
		return 0, err
	}
	if err := e.saveQueueID(sender, id); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.SwapLiquidityAdded{Provider: sender, Native: payment, Issued: value, NodeID: id})
	return id, nil
}

// Remove withdraws sender's whole position at the current pool ratio and
// returns the native value paid.
func (e *Engine) Remove(sender crypto.Address) (*uint256.Int, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	id, err := e.loadQueueID(sender)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, coreerrors.ErrNothingToRemove
	}
	q := e.queue()
	node, err := q.Node(id)
	if err != nil {
		return nil, err
	}
	if err := q.Remove(id); err != nil {
		return nil, err
	}
	if err := e.saveQueueID(sender, 0); err != nil {
		return nil, err
	}
	balance, err := e.bank.Balance(e.moduleAddress, cfg.BondDenom)
	if err != nil {
		return nil, err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	native, err := common.MulDiv(node.Value, balance, supply.Issued)
	if err != nil {
		return nil, err
	}
	if supply.Issued, err = common.Sub(supply.Issued, node.Value); err != nil {
		return nil, err
	}
	if err := e.saveSupply(supply); err != nil {
		return nil, err
	}
	if err := e.bank.Send(e.moduleAddress, sender, cfg.BondDenom, native); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.SwapLiquidityRemoved{Provider: sender, Issued: node.Value, Native: native})
	return native, nil
}

// Swap sells amount liquid tokens held by sender for native value taken from
// the queue.
func (e *Engine) Swap(sender crypto.Address, amount *uint256.Int) (*SwapResult, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if common.IsZero(amount) {
		return nil, coreerrors.ErrInvalidAmount
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	fee, err := common.MulDiv(amount, uint256.NewInt(cfg.FeeBps), uint256.NewInt(MaxFeeBps))
	if err != nil {
		return nil, err
	}
	orderLiquid, err := common.Sub(amount, fee)
	if err != nil {
		return nil, err
	}
	ratio, err := e.ratios.Ratio()
	if err != nil {
		return nil, fmt.Errorf("liquidswap engine: staking ratio: %w", err)
	}
	orderNative, err := ratio.Apply(orderLiquid)
	if err != nil {
		return nil, err
	}
	balance, err := e.bank.Balance(e.moduleAddress, cfg.BondDenom)
	if err != nil {
		return nil, err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	orderIssued, err := common.NewRatio(supply.Issued, balance).Apply(orderNative)
	if err != nil {
		return nil, err
	}
	if orderIssued.Gt(supply.Issued) || orderNative.Gt(balance) {
		return nil, coreerrors.ErrInsufficientLiquidity
	}
	if orderIssued.IsZero() {
		return nil, coreerrors.ErrOrderTooSmall
	}
	if err := e.token.Transfer(cfg.LiquidToken, sender, e.moduleAddress, amount); err != nil {
		return nil, err
	}
	if supply.Issued, err = common.Sub(supply.Issued, orderIssued); err != nil {
		return nil, err
	}
	credited, err := e.match(orderIssued, amount)
	if err != nil {
		return nil, err
	}
	remainder, err := common.Sub(amount, credited)
	if err != nil {
		return nil, err
	}
	if supply.Claims, err = common.Add(supply.Claims, credited); err != nil {
		return nil, err
	}
	if supply.Remainder, err = common.Add(supply.Remainder, remainder); err != nil {
		return nil, err
	}
	if err := e.saveSupply(supply); err != nil {
		return nil, err
	}
	if err := e.bank.Send(e.moduleAddress, sender, cfg.BondDenom, orderNative); err != nil {
		return nil, err
	}
	result := &SwapResult{Native: orderNative, Fee: fee, Issued: orderIssued, Credited: credited, Remainder: remainder}
	e.emitter.Emit(events.SwapExecuted{Trader: sender, Liquid: amount, Fee: fee, Native: orderNative, Issued: orderIssued, Remainder: remainder})
	return result, nil
}

// Claim transfers the liquid tokens earned by sender.
func (e *Engine) Claim(sender crypto.Address) (*uint256.Int, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	amount, err := common.LoadAmount(e.state, claimableKey(sender))
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, coreerrors.ErrNothingToClaim
	}
	if err := e.state.KVDelete(claimableKey(sender)); err != nil {
		return nil, err
	}
	if err := common.NewAddressIndex(e.state, claimantsPrefix).Remove(sender); err != nil {
		return nil, err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	if supply.Claims, err = common.Sub(supply.Claims, amount); err != nil {
		return nil, err
	}
	if err := e.saveSupply(supply); err != nil {
		return nil, err
	}
	if err := e.token.Transfer(cfg.LiquidToken, e.moduleAddress, sender, amount); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.SwapClaimed{Provider: sender, Amount: amount})
	return amount, nil
}
