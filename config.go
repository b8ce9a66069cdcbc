package paylink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/paylink-dev/paylink-go/logger"
	"github.com/paylink-dev/paylink-go/metrics"
)

// Environment selects the backend environment.
type Environment string

const (
	EnvProduction Environment = "production"
	EnvSandbox    Environment = "sandbox"
)

// Config holds SDK-wide configuration. Construct it through New and the
// functional options; zero values get defaults.
type Config struct {
	// APIURL is the backend base URL.
	APIURL string `validate:"omitempty,url"`

	// WidgetURL is the hosted widget base URL, surfaced to embedders.
	WidgetURL string `validate:"omitempty,url"`

	// ProjectID identifies the integrating project to the backend.
	ProjectID string `validate:"required"`

	// Env selects the backend environment.
	Env Environment `validate:"omitempty,oneof=production sandbox"`

	// DefaultChainID is used when a tool does not pin a chain.
	DefaultChainID int64

	// GasWarningThresholdGwei triggers the gas warning callback when the
	// suggested gas price exceeds it. Zero disables the check.
	GasWarningThresholdGwei int64

	// PollInterval is the confirmation poll cadence.
	PollInterval time.Duration

	// MaxPollAttempts bounds confirmation polling. The poll budget is a
	// deliberate bound: with the 5s default interval the default of 60
	// attempts gives payments five minutes to confirm before the flow
	// errors out with ErrConfirmationTimeout.
	MaxPollAttempts int

	// ConnectPollInterval is the wallet connection poll cadence while
	// waiting for the out-of-band connect handshake.
	ConnectPollInterval time.Duration
}

const (
	defaultAPIURL    = "https://api.paylink.dev"
	defaultWidgetURL = "https://pay.paylink.dev"

	defaultPollInterval        = 5 * time.Second
	defaultMaxPollAttempts     = 60
	defaultConnectPollInterval = time.Second
)

var validate = validator.New()

// SDK is an explicit handle over configuration and shared collaborators.
// Independent SDK instances (and therefore independent orchestrators) can
// coexist; nothing is ambient. The package-level Init/Pay pair exists as
// the one-call integration surface on top of it.
type SDK struct {
	cfg     Config
	backend BackendClient
	log     logger.Logger
	rec     metrics.Recorder
}

// Option configures an SDK.
type Option func(*SDK)

// WithBackend sets the backend client. Required: the http subpackage
// provides the REST implementation.
func WithBackend(backend BackendClient) Option {
	return func(s *SDK) {
		s.backend = backend
	}
}

// WithLogger sets the SDK logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SDK) {
		s.log = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *SDK) {
		s.rec = r
	}
}

// New validates the configuration, applies defaults, and returns an SDK
// handle.
func New(cfg Config, opts ...Option) (*SDK, error) {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.WidgetURL == "" {
		cfg.WidgetURL = defaultWidgetURL
	}
	if cfg.Env == "" {
		cfg.Env = EnvProduction
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = defaultMaxPollAttempts
	}
	if cfg.ConnectPollInterval <= 0 {
		cfg.ConnectPollInterval = defaultConnectPollInterval
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &SDK{
		cfg: cfg,
		log: logger.NoopLogger{},
		rec: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.backend == nil {
		return nil, fmt.Errorf("invalid config: backend client is required")
	}

	return s, nil
}

// Config returns a copy of the effective configuration.
func (s *SDK) Config() Config {
	return s.cfg
}

// PayRequest starts one payment flow.
type PayRequest struct {
	// ToolID is the payment tool to pay.
	ToolID string `validate:"required"`

	// Wallet is the wallet session handle driving this flow. Exactly one
	// orchestrator should drive a given wallet session at a time.
	Wallet WalletProvider `validate:"required"`

	// Balances resolves token balances. When nil and Wallet implements
	// BalanceReader, the wallet's reader is used.
	Balances BalanceReader

	// Callbacks is the observable side-effect surface.
	Callbacks Callbacks
}

// Pay starts one orchestrator instance for the request and returns it
// running. The flow is torn down by Close, ctx expiry, or reaching a
// terminal state followed by Close.
func (s *SDK) Pay(ctx context.Context, req PayRequest) (*Orchestrator, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid pay request: %w", err)
	}

	balances := req.Balances
	if balances == nil {
		reader, ok := req.Wallet.(BalanceReader)
		if !ok {
			return nil, fmt.Errorf("invalid pay request: no balance reader available")
		}
		balances = reader
	}

	o := newOrchestrator(s, req, balances)
	o.start(ctx)
	return o, nil
}

// PaymentStatus fetches the backend's view of a payment, for merchants
// polling out-of-band.
func (s *SDK) PaymentStatus(ctx context.Context, toolID, paymentID string) (*PaymentStatusRecord, error) {
	return s.backend.PaymentStatus(ctx, toolID, paymentID)
}

var (
	defaultMu  sync.Mutex
	defaultSDK *SDK
)

// Init establishes process-wide configuration once. A second call is a
// no-op with a warning.
func Init(cfg Config, opts ...Option) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultSDK != nil {
		defaultSDK.log.Warn("paylink already initialized, ignoring Init", map[string]any{
			"project_id": cfg.ProjectID,
		})
		return nil
	}

	s, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	defaultSDK = s
	return nil
}

// Pay starts a payment flow against the configuration established by
// Init.
func Pay(ctx context.Context, req PayRequest) (*Orchestrator, error) {
	defaultMu.Lock()
	s := defaultSDK
	defaultMu.Unlock()

	if s == nil {
		return nil, ErrNotInitialized
	}
	return s.Pay(ctx, req)
}
