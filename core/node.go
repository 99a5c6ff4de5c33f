package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "liquidstake/core/errors"
	"liquidstake/core/events"
	"liquidstake/core/state"
	"liquidstake/core/types"
	"liquidstake/native/bank"
	"liquidstake/native/common"
	"liquidstake/native/liquidswap"
	"liquidstake/native/staking"
	"liquidstake/native/token"
	"liquidstake/native/validator"
	"liquidstake/observability/metrics"
	telemetry "liquidstake/observability/otel"
	"liquidstake/storage"
)

// ErrUnknownMessage is returned for messages the node cannot route.
var ErrUnknownMessage = errors.New("node: unknown message")

// Options configure a Node.
type Options struct {
	Genesis      Genesis
	Validator    validator.Params
	AllowMigrate bool
	Logger       *slog.Logger
	// Emitter receives the events of every committed unit of work.
	Emitter events.Emitter
}

// Node is the central controller. It owns the database and applies messages
// one at a time, each as an all-or-nothing unit of work that advances the
// block height by one.
type Node struct {
	db        storage.Database
	validator validator.Params
	logger    *slog.Logger
	emitter   events.Emitter
	tracer    trace.Tracer
	metrics   *metrics.LiquidStakeMetrics

	stateMu sync.RWMutex
	height  uint64
}

// Modules is the set of keepers and engines bound to one state overlay.
type Modules struct {
	Height    uint64
	Bank      *bank.Keeper
	Token     *token.Ledger
	Validator *validator.Keeper
	Staking   *staking.Engine
	Swap      *liquidswap.Engine
	Pauses    *common.Pauses
}

// Receipt describes a committed unit of work.
type Receipt struct {
	Height uint64
	Action string
	Result interface{}
	Events []types.Event
}

func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database required")
	}
	if err := state.EnsureStateVersion(db, opts.AllowMigrate); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	params := opts.Validator
	if params.Denom == "" {
		params.Denom = opts.Genesis.Staking.BondDenom
	}
	if params.Name == "" {
		params.Name = opts.Genesis.Staking.Validator
	}
	n := &Node{
		db:        db,
		validator: params,
		logger:    logger,
		emitter:   emitter,
		tracer:    telemetry.Tracer("core"),
		metrics:   metrics.LiquidStake(),
	}
	if err := n.applyGenesis(opts.Genesis); err != nil {
		return nil, err
	}
	mgr := state.NewManager(db)
	height, err := mgr.BlockHeight()
	mgr.Discard()
	if err != nil {
		return nil, err
	}
	n.height = height
	n.metrics.SetHeight(height)
	return n, nil
}

// Height returns the height of the last committed unit of work.
func (n *Node) Height() uint64 {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	return n.height
}

func (n *Node) bind(mgr *state.Manager, height uint64, emitter events.Emitter) *Modules {
	pauses := common.NewPauses(mgr)
	bankKeeper := bank.New(mgr)
	ledger := token.New(mgr)

	val := validator.NewKeeper(n.validator)
	val.SetState(mgr)
	val.SetBank(bankKeeper)
	val.SetBlockHeight(height)

	stake := staking.NewEngine()
	stake.SetState(mgr)
	stake.SetBank(bankKeeper)
	stake.SetDelegator(val)
	stake.SetToken(ledger)
	stake.SetPauses(pauses)
	stake.SetEmitter(emitter)
	stake.SetBlockHeight(height)

	swap := liquidswap.NewEngine()
	swap.SetState(mgr)
	swap.SetBank(bankKeeper)
	swap.SetToken(ledger)
	swap.SetRatioSource(stake)
	swap.SetPauses(pauses)
	swap.SetEmitter(emitter)
	swap.SetBlockHeight(height)

	return &Modules{
		Height:    height,
		Bank:      bankKeeper,
		Token:     ledger,
		Validator: val,
		Staking:   stake,
		Swap:      swap,
		Pauses:    pauses,
	}
}

// Apply runs msg as one unit of work. Either every write of the unit reaches
// the database or none does.
func (n *Node) Apply(ctx context.Context, msg types.Msg) (*Receipt, error) {
	if msg == nil {
		return nil, ErrUnknownMessage
	}
	action := msg.Route() + "." + msg.Type()
	_, span := n.tracer.Start(ctx, "node.apply",
		trace.WithAttributes(attribute.String("action", action)))
	defer span.End()

	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	start := time.Now()
	height := n.height + 1
	receipt, err := n.applyLocked(msg, action, height)
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int64("height", int64(height)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		n.metrics.ObserveUnit(action, outcomeOf(err), elapsed)
		n.logger.Warn("unit of work rejected",
			slog.String("action", action),
			slog.Uint64("height", height),
			slog.String("outcome", outcomeOf(err)),
			slog.Any("error", err))
		return nil, err
	}
	n.height = height
	n.metrics.ObserveUnit(action, "ok", elapsed)
	n.metrics.SetHeight(height)
	n.logger.Info("unit of work committed",
		slog.String("action", action),
		slog.Uint64("height", height),
		slog.Int("events", len(receipt.Events)),
		slog.Duration("elapsed", elapsed))
	span.SetStatus(codes.Ok, "committed")
	return receipt, nil
}

func (n *Node) applyLocked(msg types.Msg, action string, height uint64) (*Receipt, error) {
	mgr := state.NewManager(n.db)
	recorder := &events.Recorder{}
	mods := n.bind(mgr, height, recorder)

	released, err := mods.Validator.BeginBlock(height)
	if err != nil {
		mgr.Discard()
		return nil, fmt.Errorf("begin block: %w", err)
	}
	if !released.IsZero() {
		n.logger.Debug("unbonding released", slog.Uint64("height", height), slog.String("amount", released.Dec()))
	}
	result, err := dispatch(mods, msg)
	if err != nil {
		mgr.Discard()
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	if err := mgr.SetBlockHeight(height); err != nil {
		mgr.Discard()
		return nil, err
	}
	if err := mgr.Commit(); err != nil {
		return nil, err
	}

	emitted := recorder.Events()
	n.publish(recorder)
	n.observeLedgers(height, emitted)
	return &Receipt{Height: height, Action: action, Result: result, Events: emitted}, nil
}

func dispatch(m *Modules, msg types.Msg) (interface{}, error) {
	switch msg := msg.(type) {
	case types.MsgStake:
		if err := validateFunds(msg.Funds); err != nil {
			return nil, err
		}
		return m.Staking.Stake(msg.Sender, msg.Funds)
	case types.MsgUnstake:
		return m.Staking.Unstake(msg.Sender, msg.Amount)
	case types.MsgStakingClaim:
		return m.Staking.Claim(msg.Sender)
	case types.MsgSync:
		return nil, m.Staking.Sync()
	case types.MsgSetLiquidToken:
		return nil, m.Staking.SetLiquidToken(msg.Sender, msg.Token)
	case types.MsgAddLiquidity:
		if err := validateFunds(msg.Funds); err != nil {
			return nil, err
		}
		return m.Swap.Add(msg.Sender, msg.Funds)
	case types.MsgRemoveLiquidity:
		return m.Swap.Remove(msg.Sender)
	case types.MsgSwap:
		return m.Swap.Swap(msg.Sender, msg.Amount)
	case types.MsgSwapClaim:
		return m.Swap.Claim(msg.Sender)
	case types.MsgSetSwapFee:
		return nil, m.Swap.SetSwapFee(msg.Sender, msg.FeeBps)
	case types.MsgSweepRemainder:
		return m.Swap.SweepRemainder(msg.Sender, msg.Recipient)
	case types.MsgSetPaused:
		switch msg.Module {
		case staking.ModuleName:
			return nil, m.Staking.SetPaused(msg.Sender, msg.Paused)
		case liquidswap.ModuleName:
			return nil, m.Swap.SetPaused(msg.Sender, msg.Paused)
		default:
			return nil, fmt.Errorf("module %q: %w", msg.Module, coreerrors.ErrNotFound)
		}
	default:
		return nil, fmt.Errorf("%T: %w", msg, ErrUnknownMessage)
	}
}

func validateFunds(funds types.Coins) error {
	if err := funds.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, coreerrors.ErrInvalidAmount)
	}
	return nil
}

func (n *Node) publish(recorder *events.Recorder) {
	for _, e := range recorder.Buffered() {
		n.emitter.Emit(e)
	}
}

// Query runs fn against a read-only view of the last committed state.
func (n *Node) Query(fn func(*Modules) error) error {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	mgr := state.NewManager(n.db)
	defer mgr.Discard()
	return fn(n.bind(mgr, n.height, nil))
}

// WithState exposes the raw state view for diagnostics. Writes are dropped.
func (n *Node) WithState(fn func(*state.Manager) error) error {
	n.stateMu.RLock()
	defer n.stateMu.RUnlock()
	mgr := state.NewManager(n.db)
	defer mgr.Discard()
	return fn(mgr)
}

func (n *Node) observeLedgers(height uint64, emitted []types.Event) {
	settled := map[string]int{}
	for _, ev := range emitted {
		switch ev.Type {
		case events.TypeStakingSettled:
			settled[staking.ModuleName]++
		case events.TypeSwapOrderFilled:
			settled[liquidswap.ModuleName]++
		}
	}
	for module, count := range settled {
		n.metrics.AddSettlements(module, count)
	}

	mgr := state.NewManager(n.db)
	defer mgr.Discard()
	mods := n.bind(mgr, height, nil)
	if supply, err := mods.Staking.Supply(); err == nil {
		if page, err := mods.Staking.Queue(0, 1); err == nil {
			n.metrics.SetQueue(staking.ModuleName, page.Root.Length, supply.Unstakings)
		}
	}
	if supply, err := mods.Swap.Supply(); err == nil {
		if page, err := mods.Swap.OrderBook(0, 1); err == nil {
			n.metrics.SetQueue(liquidswap.ModuleName, page.Root.Length, supply.Issued)
		}
		n.metrics.SetRemainder(supply.Remainder)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, coreerrors.ErrModulePaused):
		return "paused"
	case errors.Is(err, coreerrors.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, coreerrors.ErrArithmeticOverflow), errors.Is(err, coreerrors.ErrArithmeticUnderflow):
		return "arithmetic"
	case errors.Is(err, coreerrors.ErrInsufficientLiquidity), errors.Is(err, coreerrors.ErrInsufficientFunds):
		return "insufficient"
	default:
		return "rejected"
	}
}
