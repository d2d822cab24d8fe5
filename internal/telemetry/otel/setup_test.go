package otel

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestNewProviders_EmptyEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"", "   "} {
		providers, err := NewProviders(ctx, endpoint, "test-service", "", false)
		if err != nil {
			t.Fatalf("NewProviders(%q): %v", endpoint, err)
		}
		if providers.TracerProvider == nil || providers.MeterProvider == nil || providers.LoggerProvider == nil {
			t.Fatalf("providers must not be nil: %+v", providers)
		}
		if err := providers.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown should be a no-op, got %v", err)
		}
	}
}

func TestNewProviders_InvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"http://", "http://[invalid", "://invalid"} {
		if _, err := NewProviders(context.Background(), endpoint, "test-service", "", false); err == nil {
			t.Errorf("NewProviders(%q) should fail", endpoint)
		}
	}
}

func TestParseEndpoint(t *testing.T) {
	testCases := []struct {
		endpoint     string
		wantTarget   string
		wantInsecure bool
	}{
		{"localhost:4317", "localhost:4317", true},
		{"http://collector:4317", "collector:4317", true},
		{"https://collector:4317/v1/traces", "collector:4317", false},
	}
	for _, tc := range testCases {
		target, insecure, err := parseEndpoint(tc.endpoint)
		if err != nil {
			t.Fatalf("parseEndpoint(%q): %v", tc.endpoint, err)
		}
		if target != tc.wantTarget || insecure != tc.wantInsecure {
			t.Errorf("parseEndpoint(%q) = %q, %v; want %q, %v", tc.endpoint, target, insecure, tc.wantTarget, tc.wantInsecure)
		}
	}
}

func TestNewProviders_WithEndpoint(t *testing.T) {
	// Exporters dial lazily, so no collector is needed.
	ctx := context.Background()
	providers, err := NewProviders(ctx, "localhost:4317", "test-service", "v0.0.0-test", false)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = providers.Shutdown(shutdownCtx)
}

func TestSetGlobal(t *testing.T) {
	prevTP := otel.GetTracerProvider()
	prevMP := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	providers, err := NewProviders(context.Background(), "", "test-service", "", false)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	providers.SetGlobal()
	if otel.GetTracerProvider() != providers.TracerProvider {
		t.Error("global TracerProvider not set")
	}
	if otel.GetMeterProvider() != providers.MeterProvider {
		t.Error("global MeterProvider not set")
	}
	if fields := otel.GetTextMapPropagator().Fields(); len(fields) == 0 {
		t.Error("propagator not installed")
	}

	(&Providers{}).SetGlobal()
}
