package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"retrievalagent/internal/config"
	"retrievalagent/internal/logging"
	"retrievalagent/internal/tracing"
)

const tracingShutdownTimeout = 5 * time.Second

// app общее состояние команд: конфигурация и логгер загружаются перед запуском подкоманды
type app struct {
	configPath string
	logLevel   string

	config *config.Config
	logger *slog.Logger
	tracer *sdktrace.TracerProvider
}

// Execute запускает корневую команду с обработкой сигналов
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := &app{}
	defer a.close()
	return newRootCmd(a).ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "retrieval",
		Short: "Adaptive place retrieval for trip planning",
		Long: `retrieval collects attraction and food candidates for a trip,
balanced across the geographic clusters of the destination.`,
		PersistentPreRunE: a.load,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log level (DEBUG, INFO, WARN, ERROR)")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newCatalogCmd(a))
	return root
}

// load читает конфигурацию и настраивает логгер; логи идут в stderr,
// чтобы stdout оставался под выходной документ
func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	a.config = cfg
	a.logger = logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(a.logger)

	tp, err := tracing.Setup(cmd.Context(), cfg.Tracing, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}
	a.tracer = tp
	return nil
}

// close сбрасывает спаны трассировки перед выходом
func (a *app) close() {
	if a.tracer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
	defer cancel()
	if err := tracing.Shutdown(ctx, a.tracer); err != nil && a.logger != nil {
		a.logger.Error("failed to flush traces", "error", err)
	}
	a.tracer = nil
}
