package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fd1az/promptchain/internal/apperror"
)

func TestNormalize(t *testing.T) {
	plain := errors.New("something odd")
	already := apperror.New(apperror.CodeUserRejected, apperror.WithCause(&fakeRPCError{4001, "User rejected the request."}))

	tests := []struct {
		name     string
		err      error
		wantCode apperror.Code
		wantSame bool
	}{
		{"nil", nil, "", true},
		{"user_rejected", &fakeRPCError{4001, "User rejected the request."}, apperror.CodeUserRejected, false},
		{"unrecognized_chain_code", &fakeRPCError{4902, "Unrecognized chain ID 0x1234"}, apperror.CodeUnknownNetwork, false},
		{"unsupported_network_text", &fakeRPCError{-32603, "Unsupported network"}, apperror.CodeUnknownNetwork, false},
		{"disconnected", &fakeRPCError{4900, "disconnected"}, apperror.CodeProviderDisconnected, false},
		{"pending", &fakeRPCError{-32002, "already pending"}, apperror.CodeRequestPending, false},
		{"reverted", &fakeRPCError{3, "execution reverted: not owner"}, apperror.CodeTransactionReverted, false},
		{"insufficient_funds", &fakeRPCError{-32000, "insufficient funds for gas * price + value"}, apperror.CodeInsufficientFunds, false},
		{"wrapped_rpc", fmt.Errorf("send: %w", &fakeRPCError{4001, "denied"}), apperror.CodeUserRejected, false},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), apperror.CodeServiceTimeout, false},
		{"unknown_rpc_code", &fakeRPCError{-32601, "method not found"}, "", true},
		{"plain_passthrough", plain, "", true},
		{"already_classified", already, apperror.CodeUserRejected, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.err)
			if tt.wantSame && got != tt.err {
				t.Fatalf("expected error unchanged, got %v", got)
			}
			if tt.wantCode != "" {
				if apperror.GetCode(got) != tt.wantCode {
					t.Errorf("expected %s, got %v", tt.wantCode, got)
				}
				if !errors.Is(got, tt.err) {
					t.Error("expected original error kept as cause")
				}
			}
		})
	}
}
