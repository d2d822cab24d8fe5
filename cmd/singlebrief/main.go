// singlebrief is the command-line client: session commands, team management and the guided
// query workflow (a full-screen TUI). Run `singlebrief help` for the command list.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/config"
	identityclient "github.com/hariseldon84/singlebrief-full-sub000/internal/identity/client"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/logger"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/platform/restclient"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/session/repository"
	"github.com/hariseldon84/singlebrief-full-sub000/internal/session/service"
	sbotel "github.com/hariseldon84/singlebrief-full-sub000/internal/telemetry/otel"
)

const (
	serviceName    = "singlebrief-cli"
	serviceVersion = "0.1.0"
)

// errUsage makes main exit with status 2 without printing anything more.
var errUsage = errors.New("usage")

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string) error
}

var commands = []command{
	{"login", "sign in with email and password", runLogin},
	{"register", "create an account (and optionally an organization)", runRegister},
	{"logout", "sign out and forget the stored session", runLogout},
	{"whoami", "validate the stored session and show who is signed in", runWhoami},
	{"refresh", "validate the stored session and renew its tokens", runRefresh},
	{"watch", "keep the session fresh in the foreground until interrupted", runWatch},
	{"query", "ask your team a question (interactive)", runQuery},
	{"team", "list, add or invite team members", runTeam},
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "help" || os.Args[1] == "-h" || os.Args[1] == "--help" {
		usage()
		if len(os.Args) < 2 {
			os.Exit(2)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name := os.Args[1]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		err := c.run(ctx, os.Args[2:])
		switch {
		case err == nil:
		case errors.Is(err, errUsage), errors.Is(err, pflag.ErrHelp):
			stop()
			os.Exit(2)
		default:
			fmt.Fprintln(os.Stderr, "singlebrief:", err)
			stop()
			os.Exit(1)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "singlebrief: unknown command %q\n\n", name)
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: singlebrief <command> [flags]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-9s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Configuration is read from the environment and an optional .env file.")
}

// newFlagSet returns a flag set carrying the flags every command shares.
func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	profile := fs.String("profile", "default", "session profile; separate profiles keep separate sessions")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: singlebrief %s [flags]\n", name)
		fs.PrintDefaults()
	}
	return fs, profile
}

// app is the wiring shared by all commands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	providers *sbotel.Providers
	kv        repository.KV
	session   *service.Manager
}

type appOptions struct {
	profile string
	// quiet drops the console log sink; the TUI owns the terminal.
	quiet bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		Production: cfg.IsProduction(),
		Quiet:      opts.quiet,
	})

	providers, err := sbotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion, cfg.OTLPInsecure)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()

	kv, err := repository.OpenKV(ctx, cfg, opts.profile)
	if err != nil {
		_ = providers.Shutdown(context.Background())
		_ = log.Sync()
		return nil, err
	}

	auth := identityclient.New(cfg.AuthBaseURL, cfg.Timeout(), restOptions(cfg, log)...)
	mgr := service.NewManager(auth, repository.NewKVRepository(kv), service.Options{
		RefreshRatio: cfg.RefreshRatio,
		DefaultTTL:   cfg.TokenTTL(),
		Logger:       log.Named("session"),
		Emitter:      sbotel.NewEventEmitter(providers.LoggerProvider),
		Source:       serviceName,
	})
	return &app{cfg: cfg, logger: log, providers: providers, kv: kv, session: mgr}, nil
}

func restOptions(cfg *config.Config, log *zap.Logger) []restclient.Option {
	return []restclient.Option{
		restclient.WithMaxRetries(cfg.RequestMaxRetries),
		restclient.WithLogger(log.Named("rest")),
	}
}

func (a *app) close() {
	a.session.Stop()
	if err := a.kv.Close(); err != nil {
		a.logger.Warn("close session store", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.providers.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown", zap.Error(err))
	}
	_ = a.logger.Sync()
}

