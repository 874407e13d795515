package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	networkApp "github.com/fd1az/promptchain/business/network/app"
	"github.com/fd1az/promptchain/business/wallet/domain"
	"github.com/fd1az/promptchain/internal/apperror"
	"github.com/fd1az/promptchain/internal/logger"
)

const tracerName = "github.com/fd1az/promptchain/business/wallet/app"

// ManagerConfig holds connection manager settings.
type ManagerConfig struct {
	DefaultChainID      uint64
	PollInterval        time.Duration
	ConfirmationTimeout time.Duration
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig(defaultChainID uint64) ManagerConfig {
	return ManagerConfig{
		DefaultChainID:      defaultChainID,
		PollInterval:        time.Second,
		ConfirmationTimeout: 2 * time.Minute,
	}
}

// Manager owns the wallet connection: it connects through the gateway,
// validates the chain against the directory and reacts to gateway events.
type Manager struct {
	config    ManagerConfig
	gateway   Gateway
	dialer    LedgerDialer
	directory networkApp.Directory
	sealer    Confidentiality
	fallback  Ledger
	store     *Store
	reg       *Registration
	logger    logger.LoggerInterface
	tracer    trace.Tracer

	ledgerMu sync.RWMutex
	ledger   Ledger

	restartOnce sync.Once
	restart     chan struct{}
}

// NewManager creates a Manager. sealer and fallback may be nil. reg is
// shared by every Manager of the process so listeners bind once.
func NewManager(
	cfg ManagerConfig,
	gateway Gateway,
	dialer LedgerDialer,
	directory networkApp.Directory,
	sealer Confidentiality,
	fallback Ledger,
	reg *Registration,
	log logger.LoggerInterface,
) *Manager {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if reg == nil {
		reg = &Registration{}
	}
	return &Manager{
		config:    cfg,
		gateway:   gateway,
		dialer:    dialer,
		directory: directory,
		sealer:    sealer,
		fallback:  fallback,
		store:     NewStore(domain.Initial()),
		reg:       reg,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
		restart:   make(chan struct{}),
	}
}

// IsAvailable reports whether the wallet agent can be reached.
func (m *Manager) IsAvailable(ctx context.Context) bool {
	return m.gateway.Available(ctx)
}

// Connect requests account access and initializes the session.
func (m *Manager) Connect(ctx context.Context) (common.Address, error) {
	ctx, span := m.tracer.Start(ctx, "wallet.connect")
	defer span.End()

	accounts, err := m.gateway.RequestAccounts(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request accounts failed")
		return common.Address{}, Normalize(err)
	}
	if len(accounts) == 0 {
		err := apperror.New(apperror.CodeNoAccount, apperror.WithContext("request account failed"))
		span.RecordError(err)
		span.SetStatus(codes.Error, "no account")
		return common.Address{}, err
	}

	account := accounts[0]
	if err := m.Initialize(ctx, account); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "initialize failed")
		return common.Address{}, err
	}

	span.SetStatus(codes.Ok, "connected")
	return account, nil
}

// Initialize dials a session ledger through the gateway, validates the
// active chain and records the connection. Listeners are bound once.
func (m *Manager) Initialize(ctx context.Context, account common.Address) error {
	ctx, span := m.tracer.Start(ctx, "wallet.initialize",
		trace.WithAttributes(attribute.String("account", account.Hex())))
	defer span.End()

	err := m.initialize(ctx, account)
	if err == nil {
		span.SetStatus(codes.Ok, "initialized")
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "initialize failed")
	m.setLedger(nil)
	_, _ = m.store.Update(context.WithoutCancel(ctx), domain.ConnectionChanged(false))

	switch {
	case apperror.HasCode(err, apperror.CodeUnknownNetwork):
		m.logger.Warn(ctx, "connected to unknown network", "error", err)
		return err
	case apperror.HasCode(err, apperror.CodeRestartRequired):
		m.logger.Warn(ctx, "connect ignored, restart required")
		return err
	}
	m.logger.Error(ctx, "wallet initialization failed", "error", err)
	return apperror.New(apperror.CodeInitializationFailed, apperror.WithCause(err))
}

func (m *Manager) initialize(ctx context.Context, account common.Address) error {
	ledger, err := m.dialer.Dial(ctx, m.gateway.Endpoint())
	if err != nil {
		return err
	}

	st, err := m.commit(ctx, ledger, account)
	if err != nil {
		ledger.Close()
		return err
	}
	m.setLedger(ledger)

	if _, err := m.reg.Do(m.bindListeners); err != nil {
		return err
	}

	m.logger.Info(ctx, "wallet connected",
		"account", account.Hex(),
		"chain_id", st.ChainID.String(),
		"chain", st.ChainName(),
		"sapphire", st.Sapphire())
	return nil
}

// commit validates the ledger's chain and records the connection. The
// ledger is installed by the caller only once the state is connected.
func (m *Manager) commit(ctx context.Context, ledger Ledger, account common.Address) (domain.State, error) {
	chainID, err := ledger.ChainID(ctx)
	if err != nil {
		return domain.State{}, err
	}
	if !chainID.IsUint64() {
		return domain.State{}, apperror.New(apperror.CodeUnknownNetwork, apperror.WithContext(chainID.String()))
	}

	network, err := m.directory.Lookup(ctx, chainID.Uint64())
	if err != nil {
		return domain.State{}, err
	}

	st, err := m.store.Update(ctx, domain.Connected(account, chainID, network))
	if err != nil {
		return domain.State{}, err
	}
	if st.Phase != domain.PhaseConnected {
		return domain.State{}, apperror.New(apperror.CodeRestartRequired, apperror.WithContext(string(st.Phase)))
	}
	return st, nil
}

func (m *Manager) bindListeners() error {
	m.gateway.Listen(EventHandlers{
		AccountsChanged: m.onAccountsChanged,
		ChainChanged:    m.onChainChanged,
		Connect:         func() { m.onConnection(true, nil) },
		Disconnect:      func(err error) { m.onConnection(false, err) },
	})
	return nil
}

func (m *Manager) onAccountsChanged(accounts []common.Address) {
	ctx := context.Background()
	st, err := m.store.Update(ctx, domain.AccountsChanged(accounts))
	if err != nil {
		return
	}
	if len(accounts) == 0 {
		m.logger.Info(ctx, "wallet accounts removed")
		return
	}
	m.logger.Info(ctx, "wallet account changed", "account", st.Account.Hex())
}

func (m *Manager) onChainChanged(chainID *big.Int) {
	ctx := context.Background()
	st, err := m.store.Update(ctx, domain.ChainChanged(chainID))
	if err != nil {
		return
	}
	if st.Phase == domain.PhaseRestartRequired {
		m.restartOnce.Do(func() {
			m.logger.Warn(ctx, "chain changed, restart required", "chain_id", chainID.String())
			close(m.restart)
		})
	}
}

func (m *Manager) onConnection(connected bool, cause error) {
	ctx := context.Background()
	if _, err := m.store.Update(ctx, domain.ConnectionChanged(connected)); err != nil {
		return
	}
	if connected {
		m.logger.Info(ctx, "wallet agent connected")
		return
	}
	m.logger.Warn(ctx, "wallet agent disconnected", "error", cause)
}

// SwitchNetwork asks the gateway to switch chains. chainID 0 selects the
// configured default. State follows from the resulting chainChanged event.
func (m *Manager) SwitchNetwork(ctx context.Context, chainID uint64) error {
	if chainID == 0 {
		chainID = m.config.DefaultChainID
	}
	ctx, span := m.tracer.Start(ctx, "wallet.switch_network",
		trace.WithAttributes(attribute.Int64("chain_id", int64(chainID))))
	defer span.End()

	if err := m.gateway.SwitchChain(ctx, chainID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "switch failed")
		return Normalize(err)
	}
	span.SetStatus(codes.Ok, "requested")
	return nil
}

// WaitForTransaction polls for the receipt of hash. A failed receipt
// returns CodeTransactionFailed.
func (m *Manager) WaitForTransaction(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	ctx, span := m.tracer.Start(ctx, "wallet.wait_for_transaction",
		trace.WithAttributes(attribute.String("hash", hash.Hex())))
	defer span.End()

	ledger, err := m.Reader()
	if err != nil {
		return nil, err
	}

	if m.config.ConfirmationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.ConfirmationTimeout)
		defer cancel()
	}

	receipt, err := m.pollReceipt(ctx, ledger, hash)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "wait failed")
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		err := apperror.New(apperror.CodeTransactionFailed, apperror.WithContext(hash.Hex()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "reverted")
		return nil, err
	}

	tx, _, err := ledger.TransactionByHash(ctx, hash)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeTransactionNotFound,
			apperror.WithCause(err), apperror.WithContext(hash.Hex()))
	}

	span.SetAttributes(attribute.Int64("block", receipt.BlockNumber.Int64()))
	span.SetStatus(codes.Ok, "confirmed")
	return tx, nil
}

func (m *Manager) pollReceipt(ctx context.Context, ledger Ledger, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := ledger.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, Normalize(ctx.Err())
		case <-ticker.C:
		}
	}
}

// GasPrice returns the suggested gas price of the connected chain, or 0
// without an active connection.
func (m *Manager) GasPrice(ctx context.Context) (*big.Int, error) {
	m.ledgerMu.RLock()
	ledger := m.ledger
	m.ledgerMu.RUnlock()

	if ledger == nil || !m.State().IsConnected {
		return big.NewInt(0), nil
	}
	return ledger.SuggestGasPrice(ctx)
}

// Signer returns the signer for state-changing calls, sealed on chains
// that require confidentiality.
func (m *Manager) Signer(ctx context.Context) (Signer, error) {
	base, err := m.UnwrappedSigner(ctx)
	if err != nil {
		return nil, err
	}
	if m.State().Sapphire() && m.sealer != nil {
		return &sealedSigner{Signer: base, sealer: m.sealer}, nil
	}
	return base, nil
}

// UnwrappedSigner returns the plain signer for the active account.
func (m *Manager) UnwrappedSigner(_ context.Context) (Signer, error) {
	st := m.State()
	if st.Account == nil || !st.IsConnected {
		return nil, apperror.New(apperror.CodeNoAccount)
	}
	return &gatewaySigner{gateway: m.gateway, account: *st.Account}, nil
}

// Reader returns the session ledger, or the fallback before connect.
func (m *Manager) Reader() (Ledger, error) {
	m.ledgerMu.RLock()
	ledger := m.ledger
	m.ledgerMu.RUnlock()

	if ledger != nil {
		return ledger, nil
	}
	if m.fallback != nil {
		return m.fallback, nil
	}
	return nil, apperror.New(apperror.CodeProviderDisconnected, apperror.WithContext("no ledger client"))
}

// State returns the latest connection state.
func (m *Manager) State() domain.State {
	return m.store.State()
}

// Update applies a reducer to the connection state.
func (m *Manager) Update(ctx context.Context, fn domain.Reducer) (domain.State, error) {
	return m.store.Update(ctx, fn)
}

// Subscribe streams state snapshots.
func (m *Manager) Subscribe() (<-chan domain.State, func()) {
	return m.store.Subscribe()
}

// RestartRequired is closed once the chain changes under a connection.
func (m *Manager) RestartRequired() <-chan struct{} {
	return m.restart
}

// Close releases the session ledger and stops the store.
func (m *Manager) Close() error {
	m.setLedger(nil)
	return m.store.Close()
}

func (m *Manager) setLedger(l Ledger) {
	m.ledgerMu.Lock()
	prev := m.ledger
	m.ledger = l
	m.ledgerMu.Unlock()

	if prev != nil && prev != l {
		prev.Close()
	}
}
