package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestParseEnv(t *testing.T) {
	cases := map[string]Env{
		"":           EnvDev,
		"whatever":   EnvDev,
		"stage":      EnvStage,
		" Staging ":  EnvStage,
		"prod":       EnvProd,
		"production": EnvProd,
	}
	for in, want := range cases {
		if got := ParseEnv(in); got != want {
			t.Fatalf("ParseEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")
	if got := DetectEnv(); got != EnvDev {
		t.Fatalf("default should be dev, got %q", got)
	}

	t.Setenv("APP_ENV", "prod")
	if got := DetectEnv(); got != EnvProd {
		t.Fatalf("expected prod, got %q", got)
	}
}

func TestInit_DevStd_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{
		Service: "codesync",
		Version: "v0.0.1",
		Env:     EnvDev,
		Backend: BackendStd,
		Debug:   true,
		Output:  &buf,
	})
	slog.Debug("ws join", "room", "ROOM42")

	out := buf.String()
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected text output in dev/std, got JSON: %s", out)
	}
	for _, want := range []string{"ws join", "room=ROOM42", "service=codesync", "env=dev", "instance_id="} {
		if !strings.Contains(out, want) {
			t.Fatalf("%q missing: %s", want, out)
		}
	}
}

func TestInit_ProdStd_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Service: "codesync", Env: EnvProd, Backend: BackendStd, Output: &buf})
	slog.Debug("hidden")
	slog.Info("visible")

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected one JSON line, got %s, err=%v", buf.String(), err)
	}
	if m["msg"] != "visible" {
		t.Fatalf("msg mismatch: %v", m["msg"])
	}
}

func TestInit_ProdZap_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{
		Service:          "codesync",
		Version:          "1.2.3",
		Env:              EnvProd,
		Backend:          BackendZap,
		Level:            slog.LevelInfo,
		SampleInitial:    100000,
		SampleThereafter: 100000,
		Output:           &buf,
	})
	slog.Info("booted", slog.String("k", "v"))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected JSON line, got %s, err=%v", buf.String(), err)
	}
	if m["msg"] != "booted" {
		t.Fatalf("msg mismatch: %v", m["msg"])
	}
	if m["service"] != "codesync" || m["env"] != "prod" || m["version"] != "1.2.3" {
		t.Fatalf("attrs missing: service=%v env=%v version=%v", m["service"], m["env"], m["version"])
	}
	if m["level"] != "INFO" {
		t.Fatalf("level mismatch: %v", m["level"])
	}
	if m["k"] != "v" {
		t.Fatalf("custom field missing: %v", m["k"])
	}
}

func TestTraceIDsAreAddedFromContext(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Service: "codesync", Env: EnvProd, Backend: BackendStd, Output: &buf})

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	slog.InfoContext(ctx, "with trace")
	span.End()

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected JSON, got: %s, err=%v", buf.String(), err)
	}
	if m["trace_id"] != span.SpanContext().TraceID().String() {
		t.Fatalf("trace_id mismatch in log: %v", m)
	}
	if m["span_id"] == nil {
		t.Fatalf("span_id missing in log: %v", m)
	}
}

func TestAttrsFromCtxWithoutSpan(t *testing.T) {
	if attrs := AttrsFromCtx(context.Background()); attrs != nil {
		t.Fatalf("expected no attrs, got %v", attrs)
	}
}
