package apm

import (
	"context"
	"testing"

	"github.com/fd1az/promptchain/internal/logger"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in   string
		want Provider
	}{
		{"zipkin", ZipkinProvider},
		{"OTLP-GRPC", OTLPGRPCProvider},
		{"otlp-http", OTLPHTTPProvider},
		{"console", ConsoleProvider},
		{"newrelic", EmptyProvider},
		{"", EmptyProvider},
	}
	for _, tt := range tests {
		if got := ParseProvider(tt.in); got != tt.want {
			t.Errorf("ParseProvider(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("api-key=abc, x-team = t1 ,broken,=novalue")
	if len(got) != 2 || got["api-key"] != "abc" || got["x-team"] != "t1" {
		t.Errorf("unexpected headers %v", got)
	}
}

func TestNewTraceProvider_Empty(t *testing.T) {
	tp, err := NewTraceProvider(context.Background(), logger.NewNop(), Options{Provider: EmptyProvider})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tp.Stop(); err != nil {
		t.Errorf("unexpected stop error: %v", err)
	}
}

func TestNewTraceProvider_Unknown(t *testing.T) {
	if _, err := NewTraceProvider(context.Background(), logger.NewNop(), Options{Provider: "jaeger"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
