package telemetry

import (
	"beykent-notifier/lib/configutil"
	"context"
	"errors"
	"os"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

type Telemetry struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
}

func (t Telemetry) Shutdown(ctx context.Context) error {
	errlist := []error{}
	if t.TracerProvider != nil {
		err := t.TracerProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	if t.MeterProvider != nil {
		err := t.MeterProvider.Shutdown(ctx)
		if err != nil {
			errlist = append(errlist, err)
		}
	}
	return errors.Join(errlist...)
}

type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
}

type Config struct {
	Otlp OtlpConfig `json:"otlp"`
}

var setupTestEnvironments = map[string]bool{}

// sets up telemetry in a testing environment, ensuring that it isn't
// set up more than once
func SetupForTesting(t testing.TB, serviceName string) func() {
	_, setupAlready := setupTestEnvironments[serviceName]
	if setupAlready {
		return func() {}
	}
	setupTestEnvironments[serviceName] = true

	InitSlog(true)

	ctx := context.Background()
	tel, err := SetupFromEnv(ctx, serviceName)
	if err != nil {
		t.Fatal(err)
	}
	return func() {
		err := tel.Shutdown(ctx)
		if err != nil {
			t.Fatal(err)
		}
	}
}

// searches up the filesystem from the cwd to find a file
// called telemetry.json5, once found it will then use it
// as a config to setup telemetry. a missing file disables
// export instead of failing the process.
func SetupFromEnv(ctx context.Context, serviceName string) (Telemetry, error) {
	config, err := configutil.ReadRecursively[Config]("telemetry.json5")
	if os.IsNotExist(err) {
		return Telemetry{}, nil
	}
	if err != nil {
		return Telemetry{}, err
	}
	return Setup(ctx, serviceName, config)
}

func Setup(ctx context.Context, serviceName string, config Config) (Telemetry, error) {
	r, err := newResource(serviceName)
	if err != nil {
		return Telemetry{}, err
	}

	out := Telemetry{}

	if config.Otlp.Traces.GrpcEndpoint != "" || config.Otlp.Traces.HttpEndpoint != "" {
		tracerProvider, err := newTraceProvider(ctx, r, config)
		if err != nil {
			return Telemetry{}, err
		}
		otel.SetTracerProvider(tracerProvider)
		out.TracerProvider = tracerProvider
	}

	if config.Otlp.Metrics.GrpcEndpoint != "" || config.Otlp.Metrics.HttpEndpoint != "" {
		meterProvider, err := newMetricProvider(ctx, r, config)
		if err != nil {
			return Telemetry{}, err
		}
		otel.SetMeterProvider(meterProvider)
		out.MeterProvider = meterProvider
	}

	return out, nil
}
