// Package validator simulates a single validator that accepts delegations,
// releases undelegated funds after an unbonding period and pays rewards in
// proportion to bonded value.
package validator

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"

	"liquidstake/crypto"
	"liquidstake/native/common"
)

// ModuleName owns the escrow account holding bonded and unbonding funds.
const ModuleName = "validator"

// Storage abstracts the subset of state manager functionality required by the
// validator keeper.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Bank moves funds in and out of the validator escrow.
type Bank interface {
	Send(from, to crypto.Address, denom string, amount *uint256.Int) error
	Mint(to crypto.Address, denom string, amount *uint256.Int) error
}

var (
	errNilState = errors.New("validator: state not configured")
	// ErrUnknownValidator is returned for operations naming another validator.
	ErrUnknownValidator = errors.New("validator: unknown validator")
	// ErrInsufficientBond is returned when undelegating more than is bonded.
	ErrInsufficientBond = errors.New("validator: insufficient bonded amount")
)

// Params configure the simulated validator.
type Params struct {
	Name              string
	Denom             string
	UnbondingBlocks   uint64
	RewardBpsPerBlock uint64
}

type Keeper struct {
	state  Storage
	bank   Bank
	params Params
	height uint64
	escrow crypto.Address
}

func NewKeeper(params Params) *Keeper {
	return &Keeper{params: params, escrow: crypto.ModuleAddress(ModuleName)}
}

func (k *Keeper) SetState(state Storage) { k.state = state }
func (k *Keeper) SetBank(bank Bank)      { k.bank = bank }

// SetBlockHeight records the height used for reward accrual and maturity.
func (k *Keeper) SetBlockHeight(height uint64) { k.height = height }

func (k *Keeper) Params() Params { return k.params }

// EscrowAddress returns the account holding delegated funds.
func (k *Keeper) EscrowAddress() crypto.Address { return k.escrow }

type storedDelegation struct {
	Bonded      *big.Int
	Pending     *big.Int
	LastAccrual uint64
}

type storedUnbonding struct {
	Amount  *big.Int
	Matures uint64
}

type storedUnbondings struct {
	Entries []storedUnbonding
}

var unbondingIndexKey = []byte("validator/unbonding/index")

func delegationKey(delegator crypto.Address) []byte {
	return append([]byte("validator/delegation/"), delegator.Bytes()...)
}

func unbondingKey(delegator crypto.Address) []byte {
	return append([]byte("validator/unbonding/"), delegator.Bytes()...)
}

func (k *Keeper) ready() error {
	if k == nil || k.state == nil || k.bank == nil {
		return errNilState
	}
	return nil
}

func (k *Keeper) checkValidator(name string) error {
	if name != k.params.Name {
		return fmt.Errorf("%w: %q", ErrUnknownValidator, name)
	}
	return nil
}

func (k *Keeper) loadDelegation(delegator crypto.Address) (*storedDelegation, error) {
	var stored storedDelegation
	ok, err := k.state.KVGet(delegationKey(delegator), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &storedDelegation{Bonded: new(big.Int), Pending: new(big.Int), LastAccrual: k.height}, nil
	}
	if stored.Bonded == nil {
		stored.Bonded = new(big.Int)
	}
	if stored.Pending == nil {
		stored.Pending = new(big.Int)
	}
	return &stored, nil
}

// accrue folds rewards earned since the last accrual into Pending.
func (k *Keeper) accrue(d *storedDelegation) error {
	if k.height <= d.LastAccrual || d.Bonded.Sign() == 0 || k.params.RewardBpsPerBlock == 0 {
		d.LastAccrual = max(d.LastAccrual, k.height)
		return nil
	}
	bonded, err := common.FromBig(d.Bonded)
	if err != nil {
		return err
	}
	rate, err := common.Mul(uint256.NewInt(k.params.RewardBpsPerBlock), uint256.NewInt(k.height-d.LastAccrual))
	if err != nil {
		return err
	}
	reward, err := common.MulDiv(bonded, rate, uint256.NewInt(10_000))
	if err != nil {
		return err
	}
	pending, err := common.FromBig(d.Pending)
	if err != nil {
		return err
	}
	next, err := common.Add(pending, reward)
	if err != nil {
		return err
	}
	d.Pending = common.ToBig(next)
	d.LastAccrual = k.height
	return nil
}

// Bonded returns the value delegated by delegator.
func (k *Keeper) Bonded(delegator crypto.Address) (*uint256.Int, error) {
	if k == nil || k.state == nil {
		return nil, errNilState
	}
	d, err := k.loadDelegation(delegator)
	if err != nil {
		return nil, err
	}
	return common.FromBig(d.Bonded)
}

// Delegate escrows amount from delegator and bonds it.
func (k *Keeper) Delegate(delegator crypto.Address, validator string, amount *uint256.Int) error {
	if err := k.ready(); err != nil {
		return err
	}
	if err := k.checkValidator(validator); err != nil {
		return err
	}
	if common.IsZero(amount) {
		return nil
	}
	d, err := k.loadDelegation(delegator)
	if err != nil {
		return err
	}
	if err := k.accrue(d); err != nil {
		return err
	}
	if err := k.bank.Send(delegator, k.escrow, k.params.Denom, amount); err != nil {
		return fmt.Errorf("validator: delegate: %w", err)
	}
	bonded, err := common.FromBig(d.Bonded)
	if err != nil {
		return err
	}
	next, err := common.Add(bonded, amount)
	if err != nil {
		return err
	}
	d.Bonded = common.ToBig(next)
	return k.state.KVPut(delegationKey(delegator), d)
}

// Undelegate unbonds amount; the funds return to the delegator once the
// unbonding period has elapsed.
func (k *Keeper) Undelegate(delegator crypto.Address, validator string, amount *uint256.Int) error {
	if err := k.ready(); err != nil {
		return err
	}
	if err := k.checkValidator(validator); err != nil {
		return err
	}
	if common.IsZero(amount) {
		return nil
	}
	d, err := k.loadDelegation(delegator)
	if err != nil {
		return err
	}
	if err := k.accrue(d); err != nil {
		return err
	}
	bonded, err := common.FromBig(d.Bonded)
	if err != nil {
		return err
	}
	if bonded.Lt(amount) {
		return fmt.Errorf("%w: bonded %s, requested %s", ErrInsufficientBond, bonded.Dec(), amount.Dec())
	}
	next, err := common.Sub(bonded, amount)
	if err != nil {
		return err
	}
	d.Bonded = common.ToBig(next)
	if err := k.state.KVPut(delegationKey(delegator), d); err != nil {
		return err
	}

	var pending storedUnbondings
	if _, err := k.state.KVGet(unbondingKey(delegator), &pending); err != nil {
		return err
	}
	pending.Entries = append(pending.Entries, storedUnbonding{Amount: common.ToBig(amount), Matures: k.height + k.params.UnbondingBlocks})
	if err := k.state.KVPut(unbondingKey(delegator), pending); err != nil {
		return err
	}
	return k.indexUnbonding(delegator)
}

// Unbonding returns the total still waiting to mature for delegator.
func (k *Keeper) Unbonding(delegator crypto.Address) (*uint256.Int, error) {
	if k == nil || k.state == nil {
		return nil, errNilState
	}
	var pending storedUnbondings
	if _, err := k.state.KVGet(unbondingKey(delegator), &pending); err != nil {
		return nil, err
	}
	total := common.Zero()
	for _, entry := range pending.Entries {
		amount, err := common.FromBig(entry.Amount)
		if err != nil {
			return nil, err
		}
		if total, err = common.Add(total, amount); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// WithdrawRewards mints the rewards accrued by delegator into its account.
func (k *Keeper) WithdrawRewards(delegator crypto.Address, validator string) (*uint256.Int, error) {
	if err := k.ready(); err != nil {
		return nil, err
	}
	if err := k.checkValidator(validator); err != nil {
		return nil, err
	}
	d, err := k.loadDelegation(delegator)
	if err != nil {
		return nil, err
	}
	if err := k.accrue(d); err != nil {
		return nil, err
	}
	reward, err := common.FromBig(d.Pending)
	if err != nil {
		return nil, err
	}
	d.Pending = new(big.Int)
	if err := k.state.KVPut(delegationKey(delegator), d); err != nil {
		return nil, err
	}
	if err := k.bank.Mint(delegator, k.params.Denom, reward); err != nil {
		return nil, fmt.Errorf("validator: pay rewards: %w", err)
	}
	return reward, nil
}

func (k *Keeper) loadIndex() ([][]byte, error) {
	var index [][]byte
	if _, err := k.state.KVGet(unbondingIndexKey, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (k *Keeper) indexUnbonding(delegator crypto.Address) error {
	index, err := k.loadIndex()
	if err != nil {
		return err
	}
	raw := delegator.Bytes()
	for _, existing := range index {
		if string(existing) == string(raw) {
			return nil
		}
	}
	index = append(index, raw)
	sort.Slice(index, func(i, j int) bool { return string(index[i]) < string(index[j]) })
	return k.state.KVPut(unbondingIndexKey, index)
}

// BeginBlock records height and returns matured unbonding entries to their
// delegators. It reports the total released.
func (k *Keeper) BeginBlock(height uint64) (*uint256.Int, error) {
	k.SetBlockHeight(height)
	if err := k.ready(); err != nil {
		return nil, err
	}
	index, err := k.loadIndex()
	if err != nil {
		return nil, err
	}
	released := common.Zero()
	remaining := index[:0]
	for _, raw := range index {
		delegator, err := crypto.AddressFromBytes(raw)
		if err != nil {
			return nil, err
		}
		var pending storedUnbondings
		if _, err := k.state.KVGet(unbondingKey(delegator), &pending); err != nil {
			return nil, err
		}
		due := common.Zero()
		kept := pending.Entries[:0]
		for _, entry := range pending.Entries {
			if entry.Matures > height {
				kept = append(kept, entry)
				continue
			}
			amount, err := common.FromBig(entry.Amount)
			if err != nil {
				return nil, err
			}
			if due, err = common.Add(due, amount); err != nil {
				return nil, err
			}
		}
		if err := k.bank.Send(k.escrow, delegator, k.params.Denom, due); err != nil {
			return nil, fmt.Errorf("validator: release unbonding: %w", err)
		}
		if released, err = common.Add(released, due); err != nil {
			return nil, err
		}
		if len(kept) == 0 {
			if err := k.state.KVDelete(unbondingKey(delegator)); err != nil {
				return nil, err
			}
			continue
		}
		pending.Entries = kept
		if err := k.state.KVPut(unbondingKey(delegator), pending); err != nil {
			return nil, err
		}
		remaining = append(remaining, raw)
	}
	if len(remaining) != len(index) {
		if len(remaining) == 0 {
			return released, k.state.KVDelete(unbondingIndexKey)
		}
		if err := k.state.KVPut(unbondingIndexKey, remaining); err != nil {
			return nil, err
		}
	}
	return released, nil
}
