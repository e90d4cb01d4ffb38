package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	reporter "github.com/ethereum-optimism/infra/op-reporter"
	"github.com/ethereum-optimism/infra/op-reporter/ansi"
	"github.com/ethereum-optimism/infra/op-reporter/exitcodes"
	"github.com/ethereum-optimism/infra/op-reporter/flags"
	"github.com/ethereum-optimism/infra/op-reporter/service"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-reporter"
	app.Usage = "Render recorded BDD test runs as terminal transcripts and HTML reports"
	app.Description = "op-reporter replays the events of a test run into report formats"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), exitCode(err)))
		}
	}

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

// exitCode maps typed errors to the process exit code. Untyped errors are runtime errors.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case reporter.IsTestFailureError(err):
		return exitcodes.TestFailure
	default:
		return exitcodes.RuntimeErr
	}
}

func run(ctx *cli.Context) error {
	logCfg := oplog.ReadCLIConfig(ctx)
	log := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(log.Handler())
	oplog.SetupDefaults()

	cfg, err := reporter.NewConfig(ctx, log)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return reporter.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	if _, err := ansi.Init(cfg.Colors); err != nil {
		return reporter.NewRuntimeError(fmt.Errorf("failed to load colors: %w", err))
	}
	cfg.Log.Debug("Config", "config", cfg)

	r, err := reporter.New(cfg)
	if err != nil {
		return reporter.NewRuntimeError(fmt.Errorf("failed to create reporter: %w", err))
	}
	_, runErr := r.Run(ctx.Context)
	if cfg.Serve == "" || reporter.IsRuntimeError(runErr) {
		return runErr
	}

	if err := serve(ctx.Context, cfg); err != nil {
		return reporter.NewRuntimeError(err)
	}
	return runErr
}

// serve exposes the written HTML report until the process is interrupted.
func serve(ctx context.Context, cfg *reporter.Config) error {
	report, err := os.ReadFile(cfg.HTMLOut)
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}
	srv, err := service.Listen(cfg.Serve, service.Handler(report), cfg.Log)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx)
}
