// Package main is the entry point for the promptchain client.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/fd1az/promptchain/business/chatbot"
	chatbotApp "github.com/fd1az/promptchain/business/chatbot/app"
	chatbotDI "github.com/fd1az/promptchain/business/chatbot/di"
	"github.com/fd1az/promptchain/business/network"
	"github.com/fd1az/promptchain/business/wallet"
	walletApp "github.com/fd1az/promptchain/business/wallet/app"
	walletDI "github.com/fd1az/promptchain/business/wallet/di"
	walletDomain "github.com/fd1az/promptchain/business/wallet/domain"
	"github.com/fd1az/promptchain/internal/apm"
	"github.com/fd1az/promptchain/internal/apperror"
	"github.com/fd1az/promptchain/internal/asset"
	"github.com/fd1az/promptchain/internal/config"
	"github.com/fd1az/promptchain/internal/health"
	"github.com/fd1az/promptchain/internal/logger"
	"github.com/fd1az/promptchain/internal/metrics"
	"github.com/fd1az/promptchain/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// options are the actions requested on the command line.
type options struct {
	configPath string
	ask        string
	clear      bool
	history    bool
	switchTo   string
	watch      bool
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ask, "ask", "", "Send a prompt to the chatbot and wait for the answer")
	flag.BoolVar(&opts.clear, "clear", false, "Clear all prompts of the connected account")
	flag.BoolVar(&opts.history, "history", false, "Print prompts with their answers")
	flag.StringVar(&opts.switchTo, "switch", "", "Ask the wallet to switch chain (chain id or \"default\")")
	flag.BoolVar(&opts.watch, "watch", false, "Keep running and log connection state changes")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("promptchain %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, apm.TraceID)
	log.Info(ctx, "starting promptchain",
		"version", version,
		"environment", cfg.App.Environment,
	)

	// Initialize observability if enabled
	if cfg.Telemetry.Enabled {
		stop, err := startTelemetry(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	var checks monolith.HealthRegistry
	if cfg.Health.Enabled {
		healthServer := health.NewServer(cfg.Health.Port, version, log)
		if err := healthServer.Start(); err != nil {
			log.Warn(ctx, "failed to start health server", "error", err)
		} else {
			log.Info(ctx, "health server started", "port", cfg.Health.Port)
			checks = healthServer
			defer healthServer.Stop(context.WithoutCancel(ctx))
		}
	}

	// A chain change under a live connection invalidates everything built
	// on it, so the whole monolith is rebuilt.
	for {
		restart, err := session(ctx, cfg, log, checks, opts)
		if err != nil || !restart {
			return err
		}
		log.Warn(ctx, "chain changed, restarting")
	}
}

func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	traceProvider, err := apm.NewTraceProvider(ctx, log, apm.Options{
		ServiceName: cfg.Telemetry.ServiceName,
		Provider:    apm.ParseProvider(cfg.Telemetry.TraceProvider),
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	meterProvider, err := metrics.NewMetricProvider(ctx,
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{
			Provider: metrics.PrometheusProvider,
		}),
	)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	port := cfg.Telemetry.PrometheusPort
	if port == 0 {
		port = 9090
	}
	promServer := metrics.ServePrometheusMetrics(log, metrics.WithPort(strconv.Itoa(port)))
	log.Info(ctx, "prometheus metrics server started", "port", port)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := promServer.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			log.Warn(shutdownCtx, "metrics server shutdown failed", "error", err)
		}
		_ = meterProvider.Shutdown(shutdownCtx)
		_ = traceProvider.Stop()
	}, nil
}

// session builds the monolith, performs the requested actions and reports
// whether the host must start over.
func session(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, checks monolith.HealthRegistry, opts options) (bool, error) {
	mono, err := monolith.New(cfg, log, checks)
	if err != nil {
		return false, fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Define modules in dependency order
	modules := []monolith.Module{
		&network.Module{}, // chain directory
		&wallet.Module{},  // depends on network for chain validation
		&chatbot.Module{}, // depends on wallet for signing and reads
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return false, fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return false, fmt.Errorf("failed to start modules: %w", err)
	}

	mgr := walletDI.GetManager(mono.Services())
	svc := chatbotDI.GetService(mono.Services())

	states, unsubscribe := mgr.Subscribe()
	defer unsubscribe()
	go logStates(ctx, log, states)

	if !mgr.IsAvailable(ctx) {
		return false, apperror.New(apperror.CodeGatewayUnavailable,
			apperror.WithContext(cfg.Gateway.URL))
	}

	if opts.switchTo != "" {
		chainID, err := parseChainID(opts.switchTo)
		if err != nil {
			return false, err
		}
		if err := mgr.SwitchNetwork(ctx, chainID); err != nil {
			return false, fmt.Errorf("switch network: %w", err)
		}
	}

	account, err := mgr.Connect(ctx)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeUnknownNetwork) {
			log.Error(ctx, "wallet is on an unsupported network, retry with -switch default", "error", err)
		}
		return false, err
	}
	printConnection(ctx, mgr, account)

	if done, restart := restartRequested(mgr); done {
		return restart, nil
	}

	if opts.clear {
		if _, err := svc.Clear(ctx); err != nil {
			return false, fmt.Errorf("clear prompts: %w", err)
		}
		fmt.Println("prompts cleared")
	}

	if opts.ask != "" {
		tx, err := svc.Ask(ctx, opts.ask)
		if err != nil {
			return false, fmt.Errorf("ask: %w", err)
		}
		fmt.Printf("prompt submitted in %s\n", tx.Hash().Hex())

		restart, err := waitForAnswer(ctx, mgr)
		if err != nil || restart {
			return restart, err
		}
		if err := printLastAnswer(ctx, svc); err != nil {
			return false, err
		}
	}

	if opts.history {
		if err := printHistory(ctx, svc); err != nil {
			return false, err
		}
	}

	if !opts.watch {
		return false, nil
	}

	log.Info(ctx, "watching connection, press Ctrl+C to exit")
	select {
	case <-ctx.Done():
		return false, nil
	case <-mgr.RestartRequired():
		return true, nil
	}
}

func parseChainID(s string) (uint64, error) {
	if strings.EqualFold(s, "default") {
		return 0, nil
	}
	id, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, apperror.New(apperror.CodeInvalidInput,
			apperror.WithCause(err),
			apperror.WithContext("chain id "+s))
	}
	return id, nil
}

func restartRequested(mgr *walletApp.Manager) (done, restart bool) {
	select {
	case <-mgr.RestartRequired():
		return true, true
	default:
		return false, false
	}
}

// waitForAnswer blocks until the chatbot answered, the chain changed or ctx
// ended.
func waitForAnswer(ctx context.Context, mgr *walletApp.Manager) (bool, error) {
	states, unsubscribe := mgr.Subscribe()
	defer unsubscribe()

	fmt.Println("waiting for the chatbot to answer...")
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-mgr.RestartRequired():
			return true, nil
		case st, ok := <-states:
			if !ok {
				return false, nil
			}
			if !st.IsWaitingChatBot {
				return false, nil
			}
		}
	}
}

func logStates(ctx context.Context, log logger.LoggerInterface, states <-chan walletDomain.State) {
	var prev walletDomain.State
	for st := range states {
		if st.Phase != prev.Phase ||
			st.IsConnected != prev.IsConnected ||
			st.IsInteractingWithChain != prev.IsInteractingWithChain ||
			st.IsWaitingChatBot != prev.IsWaitingChatBot ||
			!sameAccount(st.Account, prev.Account) {
			log.Debug(ctx, "connection state",
				"phase", string(st.Phase),
				"connected", st.IsConnected,
				"account", accountString(st.Account),
				"chain", st.ChainName(),
				"interacting", st.IsInteractingWithChain,
				"waiting_chatbot", st.IsWaitingChatBot)
		}
		prev = st
	}
}

func sameAccount(a, b *common.Address) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func accountString(a *common.Address) string {
	if a == nil {
		return ""
	}
	return a.Hex()
}

func printConnection(ctx context.Context, mgr *walletApp.Manager, account common.Address) {
	st := mgr.State()
	fmt.Printf("connected %s on %s\n", account.Hex(), st.ChainName())
	if url := st.ExplorerBaseURL(); url != "" {
		fmt.Printf("explorer: %s/address/%s\n", url, account.Hex())
	}

	price, err := mgr.GasPrice(ctx)
	if err != nil || st.Network == nil || st.Network.Currency == nil {
		return
	}
	gwei := asset.NewAmount(st.Network.Currency, price).Gwei()
	fmt.Printf("gas price: %s gwei (%s)\n", gwei.StringFixed(2), st.NativeCurrency())
}

func printHistory(ctx context.Context, svc *chatbotApp.Service) error {
	pa, err := svc.PromptsAnswers(ctx)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	if len(pa.Prompts) == 0 {
		fmt.Println("no prompts yet")
		return nil
	}
	for i, prompt := range pa.Prompts {
		fmt.Printf("[%d] > %s\n", i, prompt)
		if answer := strings.TrimSpace(pa.Answers[i].Answer); answer != "" {
			fmt.Printf("    %s\n", answer)
		}
	}
	return nil
}

func printLastAnswer(ctx context.Context, svc *chatbotApp.Service) error {
	pa, err := svc.PromptsAnswers(ctx)
	if err != nil {
		return fmt.Errorf("fetch answer: %w", err)
	}
	if n := len(pa.Answers); n > 0 {
		fmt.Println(strings.TrimSpace(pa.Answers[n-1].Answer))
	}
	return nil
}
