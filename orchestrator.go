package paylink

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/paylink-dev/paylink-go/logger"
	"github.com/paylink-dev/paylink-go/metrics"
)

// State is a phase of the payment flow.
type State string

const (
	StateFetchingTool     State = "FETCHING_TOOL"
	StateConnectWallet    State = "CONNECT_WALLET"
	StateFetchingBalances State = "FETCHING_BALANCES"
	StateSelectToken      State = "SELECT_TOKEN"
	StateProcessing       State = "PROCESSING"
	StatePolling          State = "POLLING"
	StateSuccess          State = "SUCCESS"
	StateError            State = "ERROR"
)

// Terminal reports whether the state has no further automatic
// transitions. ERROR still exposes a user-initiated retry edge.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateError
}

type cmdKind int

const (
	cmdSelectToken cmdKind = iota
	cmdConfirm
	cmdRetry
	cmdClose
)

type command struct {
	kind  cmdKind
	token string
}

// Orchestrator drives one payment attempt end to end. All transitions
// run on a single goroutine, so phases are strictly sequential; the only
// intra-phase concurrency is the aggregator's per-token fan-out. Exactly
// one orchestrator should drive a given wallet session at a time.
type Orchestrator struct {
	sdk       *SDK
	wallet    WalletProvider
	balances  *BalanceAggregator
	callbacks Callbacks
	toolID    string
	log       logger.Logger
	rec       metrics.Recorder

	ctx    context.Context
	cancel context.CancelFunc
	cmds   chan command
	done   chan struct{}

	mu        sync.Mutex
	state     State
	tool      *ToolMetadata
	ranked    []RankedToken
	selected  int
	txHash    common.Hash
	paymentID string
	lastErr   error

	started time.Time
}

func newOrchestrator(s *SDK, req PayRequest, balances BalanceReader) *Orchestrator {
	return &Orchestrator{
		sdk:    s,
		wallet: req.Wallet,
		balances: NewBalanceAggregator(balances,
			WithAggregatorLogger(s.log)),
		callbacks: req.Callbacks,
		toolID:    req.ToolID,
		log:       s.log,
		rec:       s.rec,
		cmds:      make(chan command, 8),
		done:      make(chan struct{}),
		selected:  -1,
	}
}

func (o *Orchestrator) start(ctx context.Context) {
	o.ctx, o.cancel = context.WithCancel(ctx)
	o.started = time.Now()
	go o.run()
}

// run is the single thread of control. Each handler performs the state's
// entry work, waits for whatever it needs, and returns the next state.
// An empty next state means the flow is over.
func (o *Orchestrator) run() {
	defer o.finish()

	if o.callbacks.OnOpen != nil {
		o.callbacks.OnOpen()
	}

	state := StateFetchingTool
	for state != "" {
		o.setState(state)

		var next State
		switch state {
		case StateFetchingTool:
			next = o.runFetchingTool()
		case StateConnectWallet:
			next = o.runConnectWallet()
		case StateFetchingBalances:
			next = o.runFetchingBalances()
		case StateSelectToken:
			next = o.runSelectToken()
		case StateProcessing:
			next = o.runProcessing()
		case StatePolling:
			next = o.runPolling()
		case StateSuccess:
			next = o.runTerminal(false)
		case StateError:
			next = o.runTerminal(true)
		}
		state = next
	}
}

func (o *Orchestrator) finish() {
	o.cancel()
	o.rec.ObserveLatency("payment_flow", time.Since(o.started), o.chainLabels())
	if o.callbacks.OnClose != nil {
		o.callbacks.OnClose()
	}
	close(o.done)
}

// State returns the current flow state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Tokens returns the current ranked token list.
func (o *Orchestrator) Tokens() []RankedToken {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]RankedToken, len(o.ranked))
	copy(out, o.ranked)
	return out
}

// SelectedToken returns the currently selected token, if any.
func (o *Orchestrator) SelectedToken() (RankedToken, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.selected < 0 || o.selected >= len(o.ranked) {
		return RankedToken{}, false
	}
	return o.ranked[o.selected], true
}

// TxHash returns the broadcast transaction hash, if any.
func (o *Orchestrator) TxHash() common.Hash {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.txHash
}

// PaymentID returns the backend payment id, once known.
func (o *Orchestrator) PaymentID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paymentID
}

// Err returns the error that moved the flow to the ERROR state.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Done is closed when the flow has fully torn down.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// SelectToken changes the selected token while in SELECT_TOKEN.
func (o *Orchestrator) SelectToken(symbol string) error {
	return o.post(command{kind: cmdSelectToken, token: symbol})
}

// ConfirmPayment confirms the selected token and starts processing.
func (o *Orchestrator) ConfirmPayment() error {
	return o.post(command{kind: cmdConfirm})
}

// Retry restarts the flow from the tool fetch after an error.
func (o *Orchestrator) Retry() error {
	return o.post(command{kind: cmdRetry})
}

// Close tears the flow down. Pending timers stop and no further
// callbacks are delivered; in-flight requests are aborted through the
// flow context.
func (o *Orchestrator) Close() {
	select {
	case o.cmds <- command{kind: cmdClose}:
	default:
	}
	o.cancel()
}

func (o *Orchestrator) post(cmd command) error {
	// Checked up front: a buffered send could otherwise win the select
	// against an already-cancelled context.
	if o.ctx.Err() != nil {
		return ErrFlowClosed
	}
	select {
	case <-o.ctx.Done():
		return ErrFlowClosed
	case o.cmds <- cmd:
		return nil
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()

	o.rec.IncCounter("state_"+string(s), o.chainLabels())
	o.log.Debug("state transition", map[string]any{"state": string(s), "tool": o.toolID})
	if o.callbacks.OnStateChange != nil {
		o.callbacks.OnStateChange(s)
	}
}

func (o *Orchestrator) setError(err error) State {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()

	o.rec.IncCounter("flow_error", o.chainLabels())
	o.log.Warn("payment flow error", map[string]any{"tool": o.toolID, "error": err.Error()})
	if o.callbacks.OnError != nil {
		o.callbacks.OnError(err)
	}
	return StateError
}

func (o *Orchestrator) chainLabels() map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.tool == nil {
		return map[string]string{"chain": ""}
	}
	return map[string]string{"chain": strconv.FormatInt(o.tool.ChainID, 10)}
}

// runFetchingTool requests the tool metadata. If the wallet already has a
// session the connect step is skipped.
func (o *Orchestrator) runFetchingTool() State {
	tool, err := o.sdk.backend.FetchTool(o.ctx, o.toolID)
	if err != nil {
		if o.ctx.Err() != nil {
			return ""
		}
		return o.setError(err)
	}

	o.mu.Lock()
	o.tool = tool
	o.mu.Unlock()

	connected, err := o.wallet.Connected(o.ctx)
	if err != nil {
		o.log.Warn("connection check failed", map[string]any{"error": err.Error()})
		connected = false
	}
	if connected {
		return StateFetchingBalances
	}
	return StateConnectWallet
}

// runConnectWallet starts the connect handshake and polls the session
// state until it is established. Completion happens out-of-band in the
// wallet's own UI, so there is no event to wait on; a declined handshake
// leaves the state unchanged.
func (o *Orchestrator) runConnectWallet() State {
	if err := o.wallet.Connect(o.ctx); err != nil && !errors.Is(err, ErrWalletRejected) {
		o.log.Warn("wallet connect failed", map[string]any{"error": err.Error()})
	}

	ticker := time.NewTicker(o.sdk.cfg.ConnectPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.ctx.Done():
			return ""
		case cmd := <-o.cmds:
			if cmd.kind == cmdClose {
				return ""
			}
		case <-ticker.C:
			connected, err := o.wallet.Connected(o.ctx)
			if err != nil {
				continue
			}
			if connected {
				return StateFetchingBalances
			}
		}
	}
}

// runFetchingBalances aligns the wallet chain with the tool's chain, then
// resolves and ranks balances. The first funded token is auto-selected,
// falling back to the first token when nothing is funded.
func (o *Orchestrator) runFetchingBalances() State {
	tool := o.toolSnapshot()

	chainID, err := o.wallet.ChainID(o.ctx)
	if err != nil {
		if o.ctx.Err() != nil {
			return ""
		}
		return o.setError(fmt.Errorf("read wallet chain: %w", err))
	}
	if chainID != tool.ChainID {
		if err := o.wallet.SwitchChain(o.ctx, tool.ChainID); err != nil {
			if o.ctx.Err() != nil {
				return ""
			}
			return o.setError(fmt.Errorf("%w: switch to %s: %v", ErrChainMismatch, ChainName(tool.ChainID), err))
		}
	}

	account, err := o.wallet.Account(o.ctx)
	if err != nil {
		if o.ctx.Err() != nil {
			return ""
		}
		return o.setError(fmt.Errorf("read wallet account: %w", err))
	}

	ranked, err := o.balances.Resolve(o.ctx, tool.Tokens, account, tool.ChainID)
	if err != nil {
		if o.ctx.Err() != nil {
			return ""
		}
		return o.setError(fmt.Errorf("resolve balances: %w", err))
	}

	selected := 0
	for i, t := range ranked {
		if t.HasBalance {
			selected = i
			break
		}
	}

	o.mu.Lock()
	o.ranked = ranked
	o.selected = selected
	o.mu.Unlock()

	return StateSelectToken
}

// runSelectToken waits for the user to pick a token and confirm. No
// network activity happens here.
func (o *Orchestrator) runSelectToken() State {
	for {
		select {
		case <-o.ctx.Done():
			return ""
		case cmd := <-o.cmds:
			switch cmd.kind {
			case cmdSelectToken:
				o.selectBySymbol(cmd.token)
			case cmdConfirm:
				return StateProcessing
			case cmdClose:
				return ""
			}
		}
	}
}

func (o *Orchestrator) selectBySymbol(symbol string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, t := range o.ranked {
		if t.Symbol == symbol {
			o.selected = i
			return
		}
	}
	o.log.Warn("unknown token selected", map[string]any{"token": symbol})
}

// runProcessing performs the three-step payment sequence: intent,
// broadcast, submission. Any failure aborts the remaining steps. A wallet
// decline of the send is not an error: the flow returns to token
// selection.
func (o *Orchestrator) runProcessing() State {
	tool := o.toolSnapshot()
	token, ok := o.SelectedToken()
	if !ok {
		return o.setError(fmt.Errorf("no token selected"))
	}

	o.warnOnGasPrice(tool.ChainID)

	intent, err := o.sdk.backend.CreateIntent(o.ctx, tool.ID, token.Symbol)
	if err != nil {
		if o.ctx.Err() != nil {
			return ""
		}
		return o.setError(err)
	}
	if intent.Expired(time.Now()) {
		return o.setError(ErrIntentExpired)
	}

	call, err := BuildIntentTransfer(intent, token.TokenOption)
	if err != nil {
		return o.setError(err)
	}

	txHash, err := o.wallet.SendTransaction(o.ctx, call)
	if err != nil {
		if o.ctx.Err() != nil {
			return ""
		}
		if errors.Is(err, ErrWalletRejected) {
			o.log.Info("transaction declined by user", map[string]any{"tool": tool.ID})
			return StateSelectToken
		}
		return o.setError(fmt.Errorf("broadcast transaction: %w", err))
	}

	o.mu.Lock()
	o.txHash = txHash
	o.mu.Unlock()

	// The hash is surfaced as soon as the broadcast succeeds, before the
	// flow reaches a terminal state.
	o.rec.IncCounter("tx_submitted", o.chainLabels())
	if o.callbacks.OnTransactionSubmitted != nil {
		o.callbacks.OnTransactionSubmitted(txHash)
	}

	result, err := o.sdk.backend.SubmitPayment(o.ctx, SubmittedPayment{
		TxHash:    txHash.Hex(),
		ChainID:   tool.ChainID,
		Amount:    intent.Amount,
		Token:     token.Address,
		Recipient: intent.PayTo,
		ToolID:    tool.ID,
	})
	if err != nil {
		if o.ctx.Err() != nil {
			return ""
		}
		return o.setError(err)
	}

	o.mu.Lock()
	o.paymentID = result.PaymentID
	o.mu.Unlock()

	return StatePolling
}

func (o *Orchestrator) warnOnGasPrice(chainID int64) {
	threshold := o.sdk.cfg.GasWarningThresholdGwei
	if threshold <= 0 {
		return
	}
	estimator, ok := o.wallet.(GasEstimator)
	if !ok {
		return
	}
	gasPrice, err := estimator.SuggestGasPrice(o.ctx)
	if err != nil || gasPrice == nil {
		return
	}

	thresholdWei := new(big.Int).Mul(big.NewInt(threshold), big.NewInt(1_000_000_000))
	if gasPrice.Cmp(thresholdWei) > 0 {
		o.log.Warn("gas price above threshold", map[string]any{
			"chain":          ChainName(chainID),
			"gas_price":      gasPrice.String(),
			"threshold_gwei": threshold,
		})
		if o.callbacks.OnGasWarning != nil {
			o.callbacks.OnGasWarning(gasPrice)
		}
	}
}

// runPolling fetches the payment status on a fixed interval until the
// backend reports a terminal status or the attempt budget runs out.
func (o *Orchestrator) runPolling() State {
	tool := o.toolSnapshot()
	paymentID := o.PaymentID()

	ticker := time.NewTicker(o.sdk.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < o.sdk.cfg.MaxPollAttempts; attempt++ {
		select {
		case <-o.ctx.Done():
			return ""
		case cmd := <-o.cmds:
			if cmd.kind == cmdClose {
				return ""
			}
		case <-ticker.C:
			record, err := o.sdk.backend.PaymentStatus(o.ctx, tool.ID, paymentID)
			if err != nil {
				if o.ctx.Err() != nil {
					return ""
				}
				return o.setError(err)
			}

			switch record.Status {
			case StatusConfirmed:
				o.rec.IncCounter("payment_confirmed", o.chainLabels())
				if o.callbacks.OnSuccess != nil {
					o.callbacks.OnSuccess(*record)
				}
				return StateSuccess
			case StatusFailed:
				return o.setError(ErrPaymentRejected)
			}
			// pending: keep polling
		}
	}

	return o.setError(ErrConfirmationTimeout)
}

// runTerminal holds SUCCESS or ERROR until the user closes the flow, or
// retries from the error state.
func (o *Orchestrator) runTerminal(allowRetry bool) State {
	for {
		select {
		case <-o.ctx.Done():
			return ""
		case cmd := <-o.cmds:
			switch cmd.kind {
			case cmdRetry:
				if allowRetry {
					o.reset()
					return StateFetchingTool
				}
			case cmdClose:
				return ""
			}
		}
	}
}

func (o *Orchestrator) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tool = nil
	o.ranked = nil
	o.selected = -1
	o.txHash = common.Hash{}
	o.paymentID = ""
	o.lastErr = nil
}

func (o *Orchestrator) toolSnapshot() *ToolMetadata {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tool
}
