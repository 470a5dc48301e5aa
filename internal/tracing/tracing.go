package tracing

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	ExporterStdout = "stdout"
	ExporterNone   = "none"

	defaultServiceName  = "retrievalagent"
	defaultBatchTimeout = 5 * time.Second
)

// Config конфигурация трассировки
type Config struct {
	Enabled     bool   `yaml:"enabled"`
	Exporter    string `yaml:"exporter"` // stdout или none
	ServiceName string `yaml:"service_name"`
	// SampleRate доля записываемых трасс, от 0 до 1
	SampleRate float64 `yaml:"sample_rate"`
}

// DefaultConfig трассировка выключена, при включении пишет все трассы в stdout экспортер
func DefaultConfig() Config {
	return Config{
		Exporter:    ExporterStdout,
		ServiceName: defaultServiceName,
		SampleRate:  1.0,
	}
}

// Validate проверяет конфигурацию
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch strings.ToLower(c.Exporter) {
	case ExporterStdout, ExporterNone:
	default:
		return fmt.Errorf("unsupported tracing exporter: %s (valid: stdout, none)", c.Exporter)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be between 0 and 1, got %v", c.SampleRate)
	}
	return nil
}

// Setup создает провайдер трассировки и делает его глобальным.
// Выключенная трассировка возвращает провайдер без обработчиков и не трогает глобальный.
// Экспортер stdout пишет спаны в JSON в w.
func Setup(ctx context.Context, cfg Config, w io.Writer) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled {
		return sdktrace.NewTracerProvider(), nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracing resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
		sdktrace.WithResource(res),
	}
	if strings.ToLower(cfg.Exporter) == ExporterStdout {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(defaultBatchTimeout)))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Shutdown сбрасывает накопленные спаны и останавливает провайдер
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	return nil
}
