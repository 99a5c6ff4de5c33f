package liquidswap

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
	"liquidstake/storage"
)

const (
	testDenom  = "ustake"
	testSymbol = "LQS"
)

type fixedRatio struct {
	ratio common.Ratio
}

func (f fixedRatio) Ratio() (common.Ratio, error) { return f.ratio, nil }

type harness struct {
	t        *testing.T
	db       storage.Database
	mgr      *state.Manager
	engine   *Engine
	bank     *bank.Keeper
	token    *token.Ledger
	recorder *events.Recorder
	owner    crypto.Address
	ratio    common.Ratio
}

func testAddress(b byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[0] = 0xBB
	raw[19] = b
	return crypto.NewAddress(crypto.AccountPrefix, raw)
}

func newHarness(t *testing.T, feeBps uint64) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		db:     storage.NewMemDB(),
		engine: NewEngine(),
		owner:  testAddress(0xFF),
		ratio:  common.FallbackRatio(),
	}
	h.begin()
	if err := h.engine.Init(Config{Owner: h.owner, BondDenom: testDenom, LiquidToken: testSymbol, FeeBps: feeBps}); err != nil {
		t.Fatalf("init: %v", err)
	}
	h.commit()
	return h
}

func (h *harness) begin() {
	h.mgr = state.NewManager(h.db)
	h.bank = bank.New(h.mgr)
	h.token = token.New(h.mgr)
	h.recorder = &events.Recorder{}
	h.engine.SetState(h.mgr)
	h.engine.SetBank(h.bank)
	h.engine.SetToken(h.token)
	h.engine.SetRatioSource(fixedRatio{ratio: h.ratio})
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

func (h *harness) add(addr crypto.Address, amount uint64) uint64 {
	h.t.Helper()
	if err := h.bank.Mint(addr, testDenom, uint256.NewInt(amount)); err != nil {
		h.t.Fatalf("fund: %v", err)
	}
	id, err := h.engine.Add(addr, types.Coins{types.NewCoin(testDenom, uint256.NewInt(amount))})
	if err != nil {
		h.t.Fatalf("add: %v", err)
	}
	return id
}

func (h *harness) giveTokens(addr crypto.Address, amount uint64) {
	h.t.Helper()
	if err := h.token.Mint(testSymbol, addr, uint256.NewInt(amount)); err != nil {
		h.t.Fatalf("mint tokens: %v", err)
	}
}

func (h *harness) claimable(addr crypto.Address) uint64 {
	h.t.Helper()
	v, err := h.engine.Claimable(addr)
	if err != nil {
		h.t.Fatalf("claimable: %v", err)
	}
	return v.Uint64()
}

func (h *harness) book() []uint64 {
	h.t.Helper()
	page, err := h.engine.OrderBook(0, 0)
	if err != nil {
		h.t.Fatalf("order book: %v", err)
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
		h.t.Fatalf("invariants broken: queue=%s issued=%s claimable=%s claims=%s remainder=%s held=%s",
			inv.QueueTotal, inv.Issued, inv.ClaimableSum, inv.Claims, inv.Remainder, inv.TokensHeld)
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

// Providers of 8 and 4 units meet an order for 10.
func TestSwapFillsOldestFirstWithPartialFill(t *testing.T) {
	h := newHarness(t, 0)
	alice, bob, trader := testAddress(1), testAddress(2), testAddress(3)
	h.add(alice, 8)
	bobID := h.add(bob, 4)
	h.giveTokens(trader, 10)
	h.commit()

	result, err := h.engine.Swap(trader, uint256.NewInt(10))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if result.Native.Uint64() != 10 || result.Issued.Uint64() != 10 || !result.Remainder.IsZero() {
		t.Fatalf("unexpected result native=%s issued=%s remainder=%s", result.Native, result.Issued, result.Remainder)
	}
	if got := h.book(); !equalValues(got, []uint64{2}) {
		t.Fatalf("unexpected book %v", got)
	}
	if h.claimable(alice) != 8 || h.claimable(bob) != 2 {
		t.Fatalf("unexpected claimables %d/%d", h.claimable(alice), h.claimable(bob))
	}
	received, _ := h.bank.Balance(trader, testDenom)
	if received.Uint64() != 10 {
		t.Fatalf("trader should receive 10 native, got %s", received)
	}
	aliceOrder, _ := h.engine.OrderOf(alice)
	if aliceOrder.NodeID != 0 || !aliceOrder.Issued.IsZero() {
		t.Fatalf("alice position should be closed, got %+v", aliceOrder)
	}
	bobOrder, _ := h.engine.OrderOf(bob)
	if bobOrder.NodeID != bobID || bobOrder.Issued.Uint64() != 2 || bobOrder.Native.Uint64() != 2 {
		t.Fatalf("unexpected bob position %+v", bobOrder)
	}
	supply, _ := h.engine.Supply()
	if supply.Issued.Uint64() != 2 || supply.Claims.Uint64() != 10 {
		t.Fatalf("unexpected supply issued=%s claims=%s", supply.Issued, supply.Claims)
	}
	h.checkInvariants()
}

func TestSwapTruncationGoesToRemainder(t *testing.T) {
	h := newHarness(t, 2_500)
	a, b, c, trader := testAddress(1), testAddress(2), testAddress(3), testAddress(4)
	h.add(a, 1)
	h.add(b, 1)
	h.add(c, 1)
	h.giveTokens(trader, 4)

	result, err := h.engine.Swap(trader, uint256.NewInt(4))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if result.Fee.Uint64() != 1 || result.Credited.Uint64() != 3 || result.Remainder.Uint64() != 1 {
		t.Fatalf("unexpected result fee=%s credited=%s remainder=%s", result.Fee, result.Credited, result.Remainder)
	}
	for _, addr := range []crypto.Address{a, b, c} {
		if h.claimable(addr) != 1 {
			t.Fatalf("each provider should earn 1, got %d", h.claimable(addr))
		}
	}
	h.checkInvariants()

	if _, err := h.engine.SweepRemainder(testAddress(9), crypto.Address{}); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	swept, err := h.engine.SweepRemainder(h.owner, crypto.Address{})
	if err != nil || swept.Uint64() != 1 {
		t.Fatalf("sweep: %v %v", swept, err)
	}
	held, _ := h.token.Balance(testSymbol, h.owner)
	if held.Uint64() != 1 {
		t.Fatalf("owner should hold the swept token, got %s", held)
	}
	if _, err := h.engine.SweepRemainder(h.owner, crypto.Address{}); !errors.Is(err, coreerrors.ErrNothingToClaim) {
		t.Fatalf("expected nothing to sweep, got %v", err)
	}
	h.checkInvariants()
}

func TestSwapRejectsOrdersBeyondLiquidity(t *testing.T) {
	h := newHarness(t, 0)
	trader := testAddress(3)
	h.add(testAddress(1), 5)
	h.giveTokens(trader, 6)
	h.commit()
	if _, err := h.engine.Swap(trader, uint256.NewInt(6)); !errors.Is(err, coreerrors.ErrInsufficientLiquidity) {
		t.Fatalf("expected insufficient liquidity, got %v", err)
	}
	held, _ := h.token.Balance(testSymbol, trader)
	if held.Uint64() != 6 {
		t.Fatalf("rejected swap must not take tokens, got %s", held)
	}
	if got := h.book(); !equalValues(got, []uint64{5}) {
		t.Fatalf("book changed: %v", got)
	}
}

func TestSwapRejectsOrdersThatRoundToZero(t *testing.T) {
	h := newHarness(t, 0)
	h.ratio = common.NewRatio(uint256.NewInt(1), uint256.NewInt(1_000))
	h.begin()
	trader := testAddress(3)
	h.add(testAddress(1), 5)
	h.giveTokens(trader, 5)
	if _, err := h.engine.Swap(trader, uint256.NewInt(5)); !errors.Is(err, coreerrors.ErrOrderTooSmall) {
		t.Fatalf("expected order too small, got %v", err)
	}
	if _, err := h.engine.Swap(trader, uint256.NewInt(0)); !errors.Is(err, coreerrors.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestAddMergesExistingPosition(t *testing.T) {
	h := newHarness(t, 0)
	alice, bob := testAddress(1), testAddress(2)
	h.add(alice, 5)
	h.add(bob, 5)
	id := h.add(alice, 5)
	if id != 3 {
		t.Fatalf("merged position should get a fresh id, got %d", id)
	}
	if got := h.book(); !equalValues(got, []uint64{5, 10}) {
		t.Fatalf("merged position should move to the tail: %v", got)
	}
	order, _ := h.engine.OrderOf(alice)
	if order.NodeID != 3 || order.Issued.Uint64() != 10 {
		t.Fatalf("unexpected order %+v", order)
	}
	h.checkInvariants()
}

func TestAddSweepsStrayBalanceToOwner(t *testing.T) {
	h := newHarness(t, 0)
	if err := h.bank.Mint(h.engine.ModuleAddress(), testDenom, uint256.NewInt(7)); err != nil {
		t.Fatalf("seed stray funds: %v", err)
	}
	h.add(testAddress(1), 3)
	owner, _ := h.bank.Balance(h.owner, testDenom)
	if owner.Uint64() != 7 {
		t.Fatalf("stray funds should go to the owner, got %s", owner)
	}
	status, _ := h.engine.Status()
	if status.Balance.Uint64() != 3 || status.Issued.Uint64() != 3 {
		t.Fatalf("unexpected status balance=%s issued=%s", status.Balance, status.Issued)
	}
}

func TestRemovePaysShareOfBalance(t *testing.T) {
	h := newHarness(t, 0)
	alice, bob, trader := testAddress(1), testAddress(2), testAddress(3)
	h.add(alice, 10)
	h.add(bob, 10)
	h.giveTokens(trader, 10)
	if _, err := h.engine.Swap(trader, uint256.NewInt(10)); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if _, err := h.engine.Remove(alice); !errors.Is(err, coreerrors.ErrNothingToRemove) {
		t.Fatalf("filled provider has nothing to remove, got %v", err)
	}
	paid, err := h.engine.Remove(bob)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if paid.Uint64() != 10 {
		t.Fatalf("expected 10 native back, got %s", paid)
	}
	supply, _ := h.engine.Supply()
	if !supply.Issued.IsZero() {
		t.Fatalf("issued should be zero, got %s", supply.Issued)
	}
	if got := h.book(); len(got) != 0 {
		t.Fatalf("book should be empty: %v", got)
	}
	h.checkInvariants()
}

func TestClaimTransfersEarnedTokensOnce(t *testing.T) {
	h := newHarness(t, 100)
	alice, trader := testAddress(1), testAddress(3)
	h.add(alice, 1_000)
	h.giveTokens(trader, 100)
	if _, err := h.engine.Swap(trader, uint256.NewInt(100)); err != nil {
		t.Fatalf("swap: %v", err)
	}
	paid, err := h.engine.Claim(alice)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if paid.Uint64() != 100 {
		t.Fatalf("sole provider should earn the whole order including fee, got %s", paid)
	}
	if _, err := h.engine.Claim(alice); !errors.Is(err, coreerrors.ErrNothingToClaim) {
		t.Fatalf("expected nothing to claim, got %v", err)
	}
	held, _ := h.token.Balance(testSymbol, alice)
	if held.Uint64() != 100 {
		t.Fatalf("expected 100 tokens, got %s", held)
	}
	h.checkInvariants()
}

func TestSetSwapFeeBounds(t *testing.T) {
	h := newHarness(t, 0)
	if err := h.engine.SetSwapFee(h.owner, MaxFeeBps+1); !errors.Is(err, coreerrors.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := h.engine.SetSwapFee(testAddress(1), 10); !errors.Is(err, coreerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := h.engine.SetSwapFee(h.owner, 30); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	cfg, _ := h.engine.Config()
	if cfg.FeeBps != 30 {
		t.Fatalf("fee not stored, got %d", cfg.FeeBps)
	}
}

func TestPausedModuleRejectsSwaps(t *testing.T) {
	h := newHarness(t, 0)
	if err := h.engine.SetPaused(h.owner, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := h.engine.Swap(testAddress(1), uint256.NewInt(1)); !errors.Is(err, coreerrors.ErrModulePaused) {
		t.Fatalf("expected paused, got %v", err)
	}
}
