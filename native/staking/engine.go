// Package staking converts native value into liquid tokens and redeems them
// through a FIFO unstaking queue. Redemptions are paid from whatever native
// balance the module holds, oldest request first, possibly across many calls.
package staking

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
const ModuleName = "staking"

// MaxSettlementsPerCall bounds the queue nodes touched by one drain pass.
const MaxSettlementsPerCall = 50

var (
	errNilState = errors.New("staking engine: state not configured")
	errNoConfig = errors.New("staking engine: module not initialised")
	// ErrLiquidTokenUnset is returned until the owner configures the token.
	ErrLiquidTokenUnset = errors.New("staking engine: liquid token not configured")
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

// Delegator bonds idle native value with a validator.
type Delegator interface {
	Bonded(delegator crypto.Address) (*uint256.Int, error)
	Delegate(delegator crypto.Address, validator string, amount *uint256.Int) error
	Undelegate(delegator crypto.Address, validator string, amount *uint256.Int) error
	WithdrawRewards(delegator crypto.Address, validator string) (*uint256.Int, error)
}

// LiquidToken is the fungible token ledger issuing the liquid token.
type LiquidToken interface {
	TotalSupply(symbol string) (*uint256.Int, error)
	Mint(symbol string, to crypto.Address, amount *uint256.Int) error
	Burn(symbol string, from crypto.Address, amount *uint256.Int) error
	Transfer(symbol string, from, to crypto.Address, amount *uint256.Int) error
}

// Engine orchestrates the state transitions of the staking module. It is
// rebound to a fresh state overlay for every unit of work and must not be
// used concurrently.
type Engine struct {
	state         engineState
	bank          Bank
	delegator     Delegator
	token         LiquidToken
	emitter       events.Emitter
	pauses        common.PauseStore
	moduleAddress crypto.Address
	blockHeight   uint64
}

// NewEngine constructs a staking engine whose funds live at the module
// account.
func NewEngine() *Engine {
	return &Engine{moduleAddress: crypto.ModuleAddress(ModuleName), emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBank sets the ledger that holds native balances.
func (e *Engine) SetBank(bank Bank) { e.bank = bank }

// SetDelegator sets the validator that module funds are bonded to.
func (e *Engine) SetDelegator(d Delegator) { e.delegator = d }

// SetToken sets the ledger that mints and burns the liquid token.
func (e *Engine) SetToken(token LiquidToken) { e.token = token }

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

// SetBlockHeight records the height stamped on new queue entries.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.blockHeight = height
}

// ModuleAddress returns the account holding the module's native funds.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.bank == nil || e.delegator == nil || e.token == nil {
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
		return nil, fmt.Errorf("staking engine: config owner: %w", err)
	}
	return &Config{Owner: owner, BondDenom: stored.BondDenom, LiquidToken: stored.LiquidToken, Validator: stored.Validator}, nil
}

func (e *Engine) saveConfig(cfg *Config) error {
	return e.state.KVPut(configKey, &storedConfig{
		Owner:       cfg.Owner.Bytes(),
		BondDenom:   cfg.BondDenom,
		LiquidToken: cfg.LiquidToken,
		Validator:   cfg.Validator,
	})
}

func (e *Engine) loadSupply() (*Supply, error) {
	var stored storedSupply
	ok, err := e.state.KVGet(supplyKey, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &Supply{Native: common.Zero(), Unstakings: common.Zero(), Claims: common.Zero()}, nil
	}
	return stored.toSupply()
}

func (e *Engine) saveSupply(s *Supply) error {
	return e.state.KVPut(supplyKey, newStoredSupply(s))
}

func (e *Engine) liquidConfig() (*Config, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.LiquidToken == "" {
		return nil, ErrLiquidTokenUnset
	}
	return cfg, nil
}

// Init stores the module configuration. Calling it again is a no-op so
// genesis can run against an existing database.
func (e *Engine) Init(cfg Config) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if strings.TrimSpace(cfg.BondDenom) == "" {
		return fmt.Errorf("staking engine: bond denom required")
	}
	if cfg.Owner.IsZero() {
		return fmt.Errorf("staking engine: owner required")
	}
	if ok, err := e.state.KVGet(configKey, nil); err != nil || ok {
		return err
	}
	if err := e.saveConfig(&cfg); err != nil {
		return err
	}
	return e.saveSupply(&Supply{Native: common.Zero(), Unstakings: common.Zero(), Claims: common.Zero()})
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

// SetLiquidToken points the module at the token it issues. Owner only.
func (e *Engine) SetLiquidToken(sender crypto.Address, symbol string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	cfg, err := e.requireOwner(sender)
	if err != nil {
		return err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("staking engine: token symbol required")
	}
	cfg.LiquidToken = symbol
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

// Stake converts the bond-denominated funds attached by sender into liquid
// tokens. Pending redemptions are served from the deposit first. It returns
// the number of liquid tokens minted.
func (e *Engine) Stake(sender crypto.Address, funds types.Coins) (*uint256.Int, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	cfg, err := e.liquidConfig()
	if err != nil {
		return nil, err
	}
	amount := funds.AmountOf(cfg.BondDenom)
	if amount.IsZero() {
		return nil, fmt.Errorf("no %s sent: %w", cfg.BondDenom, coreerrors.ErrEmptyBalance)
	}
	if err := e.bank.Send(sender, e.moduleAddress, cfg.BondDenom, amount); err != nil {
		return nil, err
	}
	if err := e.performCheck(cfg); err != nil {
		return nil, err
	}
	return e.mintLiquid(cfg, sender, amount)
}

// Unstake burns amount liquid tokens held by sender and queues the matching
// native value for redemption. It returns the id of the queued request.
func (e *Engine) Unstake(sender crypto.Address, amount *uint256.Int) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	if common.IsZero(amount) {
		return 0, coreerrors.ErrInvalidAmount
	}
	cfg, err := e.liquidConfig()
	if err != nil {
		return 0, err
	}
	if err := e.token.Transfer(cfg.LiquidToken, sender, e.moduleAddress, amount); err != nil {
		return 0, err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return 0, err
	}
	liquidSupply, err := e.token.TotalSupply(cfg.LiquidToken)
	if err != nil {
		return 0, err
	}
	toUnstake, err := common.MulDiv(amount, supply.Native, liquidSupply)
	if err != nil {
		return 0, err
	}
	if toUnstake.IsZero() {
		return 0, fmt.Errorf("unstake converts to zero %s: %w", cfg.BondDenom, coreerrors.ErrInvalidAmount)
	}
	if err := e.token.Burn(cfg.LiquidToken, e.moduleAddress, amount); err != nil {
		return 0, err
	}
	if supply.Native, err = common.Sub(supply.Native, toUnstake); err != nil {
		return 0, err
	}
	if supply.Unstakings, err = common.Add(supply.Unstakings, toUnstake); err != nil {
		return 0, err
	}
	if err := e.saveSupply(supply); err != nil {
		return 0, err
	}
	id, err := e.queue().Append(sender, toUnstake, e.blockHeight)
	if err != nil {
		return 0, err
	}
	if err := e.adjustUnderUnstaking(sender, toUnstake, true); err != nil {
		return 0, err
	}
	e.emitter.Emit(events.StakingUnstakeQueued{Account: sender, Burned: amount, Native: toUnstake, NodeID: id, Height: e.blockHeight})
	if err := e.performCheck(cfg); err != nil {
		return 0, err
	}
	return id, nil
}

// Claim pays out everything settled for sender.
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
	if err := e.bank.Send(e.moduleAddress, sender, cfg.BondDenom, amount); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.StakingClaimed{Account: sender, Amount: amount})
	return amount, nil
}

// Sync settles the queue against funds that reached the module outside of a
// stake, such as matured unbondings.
func (e *Engine) Sync() error {
	if err := e.guard(); err != nil {
		return err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return err
	}
	return e.performCheck(cfg)
}

func (e *Engine) adjustUnderUnstaking(owner crypto.Address, delta *uint256.Int, increase bool) error {
	key := underUnstakingKey(owner)
	current, err := common.LoadAmount(e.state, key)
	if err != nil {
		return err
	}
	var next *uint256.Int
	if increase {
		next, err = common.Add(current, delta)
	} else {
		next, err = common.Sub(current, delta)
	}
	if err != nil {
		return err
	}
	return common.StoreAmount(e.state, key, next)
}

func (e *Engine) creditClaimable(owner crypto.Address, amount *uint256.Int) error {
	key := claimableKey(owner)
	current, err := common.LoadAmount(e.state, key)
	if err != nil {
		return err
	}
	next, err := common.Add(current, amount)
	if err != nil {
		return err
	}
	if !next.IsZero() {
		if err := common.NewAddressIndex(e.state, claimantsPrefix).Add(owner); err != nil {
			return err
		}
	}
	return common.StoreAmount(e.state, key, next)
}
