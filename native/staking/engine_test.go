package staking

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	coreerrors "liquidstake/core/errors"
	"liquidstake/core/events"
	"liquidstake/core/state"
	"liquidstake/core/types"
	"liquidstake/crypto"
	"liquidstake/native/bank"
	"liquidstake/native/common"
	"liquidstake/native/token"
	"liquidstake/native/validator"
	"liquidstake/storage"
)

const (
	testDenom     = "ustake"
	testSymbol    = "LQS"
	testValidator = "val-1"
)

type harness struct {
	t        *testing.T
	db       storage.Database
	mgr      *state.Manager
	engine   *Engine
	bank     *bank.Keeper
	token    *token.Ledger
	val      *validator.Keeper
	recorder *events.Recorder
	owner    crypto.Address
}

func testAddress(b byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[0] = 0xAA
	raw[19] = b
	return crypto.NewAddress(crypto.AccountPrefix, raw)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		db:     storage.NewMemDB(),
		engine: NewEngine(),
		val:    validator.NewKeeper(validator.Params{Name: testValidator, Denom: testDenom, UnbondingBlocks: 5}),
		owner:  testAddress(0xFF),
	}
	h.begin()
	if err := h.engine.Init(Config{Owner: h.owner, BondDenom: testDenom, Validator: testValidator}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := h.engine.SetLiquidToken(h.owner, testSymbol); err != nil {
		t.Fatalf("set token: %v", err)
	}
	h.commit()
	return h
}

// begin opens a fresh unit of work and binds every module to it.
func (h *harness) begin() {
	h.mgr = state.NewManager(h.db)
	h.bank = bank.New(h.mgr)
	h.token = token.New(h.mgr)
	h.recorder = &events.Recorder{}
	h.val.SetState(h.mgr)
	h.val.SetBank(h.bank)
	h.engine.SetState(h.mgr)
	h.engine.SetBank(h.bank)
	h.engine.SetDelegator(h.val)
	h.engine.SetToken(h.token)
	h.engine.SetPauses(common.NewPauses(h.mgr))
	h.engine.SetEmitter(h.recorder)
}

func (h *harness) commit() {
	h.t.Helper()
	if err := h.mgr.Commit(); err != nil {
		h.t.Fatalf("commit: %v", err)
	}
	h.begin()
}

func (h *harness) fund(addr crypto.Address, amount uint64) {
	h.t.Helper()
	if err := h.bank.Mint(addr, testDenom, uint256.NewInt(amount)); err != nil {
		h.t.Fatalf("fund: %v", err)
	}
}

func (h *harness) stake(addr crypto.Address, amount uint64) *uint256.Int {
	h.t.Helper()
	h.fund(addr, amount)
	minted, err := h.engine.Stake(addr, types.Coins{types.NewCoin(testDenom, uint256.NewInt(amount))})
	if err != nil {
		h.t.Fatalf("stake: %v", err)
	}
	return minted
}

func (h *harness) unstake(addr crypto.Address, amount uint64) uint64 {
	h.t.Helper()
	id, err := h.engine.Unstake(addr, uint256.NewInt(amount))
	if err != nil {
		h.t.Fatalf("unstake: %v", err)
	}
	return id
}

func (h *harness) amount(get func(crypto.Address) (*uint256.Int, error), addr crypto.Address) uint64 {
	h.t.Helper()
	v, err := get(addr)
	if err != nil {
		h.t.Fatalf("query: %v", err)
	}
	return v.Uint64()
}

func (h *harness) queueValues() []uint64 {
	h.t.Helper()
	page, err := h.engine.Queue(0, 0)
	if err != nil {
		h.t.Fatalf("queue: %v", err)
	}
	out := make([]uint64, 0, len(page.Nodes))
	for _, n := range page.Nodes {
		out = append(out, n.Value.Uint64())
	}
	return out
}

func (h *harness) checkInvariants() {
	h.t.Helper()
	inv, err := h.engine.Invariants()
	if err != nil {
		h.t.Fatalf("invariants: %v", err)
	}
	if !inv.Holds() {
		h.t.Fatalf("invariants broken: queue=%s unstakings=%s claimable=%s claims=%s under=%s covers=%v",
			inv.QueueTotal, inv.Unstakings, inv.ClaimableSum, inv.Claims, inv.UnderSum, inv.BalanceCovers)
	}
}

func equalValues(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStakeMintsAtParAndDelegates(t *testing.T) {
	h := newHarness(t)
	alice := testAddress(1)
	minted := h.stake(alice, 100)
	if minted.Uint64() != 100 {
		t.Fatalf("first stake should mint 1:1, got %s", minted)
	}
	status, err := h.engine.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Native.Uint64() != 100 || status.Bonded.Uint64() != 100 || !status.Balance.IsZero() {
		t.Fatalf("unexpected status native=%s bonded=%s balance=%s", status.Native, status.Bonded, status.Balance)
	}
	if status.Ratio.String() != "100/100" {
		t.Fatalf("unexpected ratio %s", status.Ratio)
	}
	held, _ := h.token.Balance(testSymbol, alice)
	if held.Uint64() != 100 {
		t.Fatalf("expected 100 liquid tokens, got %s", held)
	}
}

func TestStakeRequiresBondDenom(t *testing.T) {
	h := newHarness(t)
	alice := testAddress(1)
	_, err := h.engine.Stake(alice, types.Coins{types.NewCoin("other", uint256.NewInt(5))})
	if !errors.Is(err, coreerrors.ErrEmptyBalance) {
		t.Fatalf("expected empty balance, got %v", err)
	}
}

func TestStakeRequiresLiquidToken(t *testing.T) {
	db := storage.NewMemDB()
	mgr := state.NewManager(db)
	e := NewEngine()
	e.SetState(mgr)
	e.SetBank(bank.New(mgr))
	e.SetDelegator(validator.NewKeeper(validator.Params{Name: testValidator, Denom: testDenom}))
	e.SetToken(token.New(mgr))
	if err := e.Init(Config{Owner: testAddress(9), BondDenom: testDenom, Validator: testValidator}); err != nil {
		t.Fatalf("init: %v", err)
	}
	_, err := e.Stake(testAddress(1), types.Coins{types.NewCoin(testDenom, uint256.NewInt(1))})
	if !errors.Is(err, ErrLiquidTokenUnset) {
		t.Fatalf("expected liquid token unset, got %v", err)
	}
}

func TestUnstakeQueuesAndUndelegatesExcess(t *testing.T) {
	h := newHarness(t)
	alice := testAddress(1)
	h.stake(alice, 100)
	h.val.SetBlockHeight(7)
	h.engine.SetBlockHeight(7)
	id := h.unstake(alice, 40)
	if id != 1 {
		t.Fatalf("expected first node id 1, got %d", id)
	}
	node, err := h.engine.queue().Node(id)
	if err != nil {
		t.Fatalf("node: %v", err)
	}
	if node.Value.Uint64() != 40 || node.Height != 7 || !node.Owner.Equal(alice) {
		t.Fatalf("unexpected node %+v", node)
	}
	supply, _ := h.engine.Supply()
	if supply.Native.Uint64() != 60 || supply.Unstakings.Uint64() != 40 {
		t.Fatalf("unexpected supply native=%s unstakings=%s", supply.Native, supply.Unstakings)
	}
	bonded, _ := h.val.Bonded(h.engine.ModuleAddress())
	if bonded.Uint64() != 60 {
		t.Fatalf("expected excess undelegated down to 60, got %s", bonded)
	}
	unbonding, _ := h.val.Unbonding(h.engine.ModuleAddress())
	if unbonding.Uint64() != 40 {
		t.Fatalf("expected 40 unbonding, got %s", unbonding)
	}
	if got := h.amount(h.engine.UnderUnstaking, alice); got != 40 {
		t.Fatalf("expected 40 under unstaking, got %d", got)
	}
	h.checkInvariants()
}

// Requests of 10, 5 and 20 are served by 12 and then 10 units of cash.
func TestDrainIsFIFOWithPartialFills(t *testing.T) {
	h := newHarness(t)
	alice, bob, carol := testAddress(1), testAddress(2), testAddress(3)
	h.stake(alice, 10)
	h.stake(bob, 5)
	h.stake(carol, 20)
	h.unstake(alice, 10)
	h.unstake(bob, 5)
	h.unstake(carol, 20)
	h.commit()

	if got := h.queueValues(); !equalValues(got, []uint64{10, 5, 20}) {
		t.Fatalf("unexpected queue %v", got)
	}

	h.fund(h.engine.ModuleAddress(), 12)
	if err := h.engine.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got := h.queueValues(); !equalValues(got, []uint64{3, 20}) {
		t.Fatalf("after 12: unexpected queue %v", got)
	}
	if got := h.amount(h.engine.Claimable, alice); got != 10 {
		t.Fatalf("alice claimable %d", got)
	}
	if got := h.amount(h.engine.Claimable, bob); got != 2 {
		t.Fatalf("bob claimable %d", got)
	}
	supply, _ := h.engine.Supply()
	if supply.Claims.Uint64() != 12 || supply.Unstakings.Uint64() != 23 {
		t.Fatalf("after 12: claims=%s unstakings=%s", supply.Claims, supply.Unstakings)
	}
	h.checkInvariants()
	h.commit()

	h.fund(h.engine.ModuleAddress(), 10)
	if err := h.engine.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got := h.queueValues(); !equalValues(got, []uint64{13}) {
		t.Fatalf("after 10: unexpected queue %v", got)
	}
	if got := h.amount(h.engine.Claimable, bob); got != 5 {
		t.Fatalf("bob claimable %d", got)
	}
	if got := h.amount(h.engine.Claimable, carol); got != 7 {
		t.Fatalf("carol claimable %d", got)
	}
	if got := h.amount(h.engine.UnderUnstaking, carol); got != 13 {
		t.Fatalf("carol under unstaking %d", got)
	}
	if got := h.amount(h.engine.UnderUnstaking, bob); got != 0 {
		t.Fatalf("bob under unstaking %d", got)
	}
	supply, _ = h.engine.Supply()
	if supply.Claims.Uint64() != 22 || supply.Unstakings.Uint64() != 13 {
		t.Fatalf("after 10: claims=%s unstakings=%s", supply.Claims, supply.Unstakings)
	}
	h.checkInvariants()
}

func TestDrainIsIndependentOfFundingGranularity(t *testing.T) {
	bulk := newHarness(t)
	drip := newHarness(t)
	for _, h := range []*harness{bulk, drip} {
		h.stake(testAddress(1), 10)
		h.stake(testAddress(2), 5)
		h.stake(testAddress(3), 20)
		h.unstake(testAddress(1), 10)
		h.unstake(testAddress(2), 5)
		h.unstake(testAddress(3), 20)
		h.commit()
	}
	bulk.fund(bulk.engine.ModuleAddress(), 22)
	if err := bulk.engine.Sync(); err != nil {
		t.Fatalf("bulk sync: %v", err)
	}
	for i := 0; i < 22; i++ {
		drip.fund(drip.engine.ModuleAddress(), 1)
		if err := drip.engine.Sync(); err != nil {
			t.Fatalf("drip sync %d: %v", i, err)
		}
	}
	for b := byte(1); b <= 3; b++ {
		addr := testAddress(b)
		if bulk.amount(bulk.engine.Claimable, addr) != drip.amount(drip.engine.Claimable, addr) {
			t.Fatalf("claimable mismatch for %d", b)
		}
	}
	if !equalValues(bulk.queueValues(), drip.queueValues()) {
		t.Fatalf("queue mismatch %v vs %v", bulk.queueValues(), drip.queueValues())
	}
	drip.checkInvariants()
}

func TestClaimPaysOnce(t *testing.T) {
	h := newHarness(t)
	alice := testAddress(1)
	h.stake(alice, 10)
	h.unstake(alice, 10)
	h.fund(h.engine.ModuleAddress(), 10)
	if err := h.engine.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	paid, err := h.engine.Claim(alice)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if paid.Uint64() != 10 {
		t.Fatalf("expected 10 paid, got %s", paid)
	}
	if _, err := h.engine.Claim(alice); !errors.Is(err, coreerrors.ErrNothingToClaim) {
		t.Fatalf("expected nothing to claim, got %v", err)
	}
	balance, _ := h.bank.Balance(alice, testDenom)
	if balance.Uint64() != 10 {
		t.Fatalf("expected a single payout of 10, got %s", balance)
	}
	supply, _ := h.engine.Supply()
	if !supply.Claims.IsZero() {
		t.Fatalf("claims should be zero, got %s", supply.Claims)
	}
	h.checkInvariants()
}

func TestDrainStopsAtSettlementBound(t *testing.T) {
	h := newHarness(t)
	whale := testAddress(1)
	h.stake(whale, MaxSettlementsPerCall+10)
	for i := 0; i < MaxSettlementsPerCall+10; i++ {
		h.unstake(whale, 1)
	}
	h.commit()
	h.fund(h.engine.ModuleAddress(), MaxSettlementsPerCall+10)
	if err := h.engine.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	root, _ := h.engine.queue().Root()
	if root.Length != 10 {
		t.Fatalf("expected 10 requests left after one pass, got %d", root.Length)
	}
	if err := h.engine.Sync(); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	root, _ = h.engine.queue().Root()
	if !root.Empty() {
		t.Fatalf("expected queue drained, %d left", root.Length)
	}
	h.checkInvariants()
}

func TestDrainWritesDoNotGrowWithWaitingOwners(t *testing.T) {
	syncWrites := func(owners int) int {
		h := newHarness(t)
		for i := 0; i < owners; i++ {
			raw := make([]byte, crypto.AddressLength)
			raw[0], raw[1], raw[2] = 0xBB, byte(i>>8), byte(i)
			owner := crypto.NewAddress(crypto.AccountPrefix, raw)
			h.stake(owner, 1)
			h.unstake(owner, 1)
		}
		h.commit()
		h.fund(h.engine.ModuleAddress(), MaxSettlementsPerCall)
		h.commit()
		if err := h.engine.Sync(); err != nil {
			t.Fatalf("sync: %v", err)
		}
		writes := h.mgr.Pending()
		h.commit()
		root, _ := h.engine.queue().Root()
		if root.Length != uint64(owners-MaxSettlementsPerCall) {
			t.Fatalf("expected %d requests left, got %d", owners-MaxSettlementsPerCall, root.Length)
		}
		h.checkInvariants()
		return writes
	}

	few := syncWrites(MaxSettlementsPerCall + 10)
	many := syncWrites(8 * MaxSettlementsPerCall)
	if few != many {
		t.Fatalf("sync wrote %d keys with few owners waiting but %d with many", few, many)
	}
	if limit := 8 * MaxSettlementsPerCall; many > limit {
		t.Fatalf("sync wrote %d keys, want at most %d", many, limit)
	}
}

func TestRewardsAccrueToNative(t *testing.T) {
	h := newHarness(t)
	h.val = validator.NewKeeper(validator.Params{Name: testValidator, Denom: testDenom, RewardBpsPerBlock: 100})
	h.begin()
	alice, bob := testAddress(1), testAddress(2)
	h.val.SetBlockHeight(1)
	h.stake(alice, 1_000)
	h.val.SetBlockHeight(2)
	// 1% of 1000 accrues before bob's stake is priced.
	minted := h.stake(bob, 1_010)
	if minted.Uint64() != 1_000 {
		t.Fatalf("expected 1000 minted at ratio 1.01, got %s", minted)
	}
	supply, _ := h.engine.Supply()
	if supply.Native.Uint64() != 2_020 {
		t.Fatalf("expected native 2020, got %s", supply.Native)
	}
}

func TestOverflowLeavesCommittedStateIntact(t *testing.T) {
	h := newHarness(t)
	alice := testAddress(1)
	near := new(uint256.Int).Sub(new(uint256.Int).SetAllOne(), uint256.NewInt(5))
	if err := h.engine.saveSupply(&Supply{Native: near, Unstakings: common.Zero(), Claims: common.Zero()}); err != nil {
		t.Fatalf("seed supply: %v", err)
	}
	if err := h.token.Mint(testSymbol, testAddress(2), new(uint256.Int).SetAllOne()); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	h.fund(alice, 10)
	h.commit()

	_, err := h.engine.Stake(alice, types.Coins{types.NewCoin(testDenom, uint256.NewInt(10))})
	if !errors.Is(err, coreerrors.ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	h.mgr.Discard()
	h.begin()

	balance, _ := h.bank.Balance(alice, testDenom)
	if balance.Uint64() != 10 {
		t.Fatalf("failed stake must not move funds, balance %s", balance)
	}
	supply, _ := h.engine.Supply()
	if !supply.Native.Eq(near) {
		t.Fatalf("native changed to %s", supply.Native)
	}
	bonded, _ := h.val.Bonded(h.engine.ModuleAddress())
	if !bonded.IsZero() {
		t.Fatalf("delegation leaked from failed unit of work: %s", bonded)
	}
}

func TestUnstakeValidation(t *testing.T) {
	h := newHarness(t)
	alice := testAddress(1)
	if _, err := h.engine.Unstake(alice, uint256.NewInt(0)); !errors.Is(err, coreerrors.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := h.engine.Unstake(alice, uint256.NewInt(1)); !errors.Is(err, coreerrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestAdminRequiresOwner(t *testing.T) {
	h := newHarness(t)
	stranger := testAddress(7)
	if err := h.engine.SetLiquidToken(stranger, "X"); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := h.engine.SetPaused(stranger, true); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := h.engine.SetPaused(h.owner, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := h.engine.Sync(); !errors.Is(err, coreerrors.ErrModulePaused) {
		t.Fatalf("expected paused, got %v", err)
	}
	if err := h.engine.SetPaused(h.owner, false); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := h.engine.Sync(); err != nil {
		t.Fatalf("sync after resume: %v", err)
	}
}
