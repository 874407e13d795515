package app

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/fd1az/promptchain/internal/apperror"
)

// EIP-1193 provider error codes.
const (
	ProviderUserRejected      = 4001
	ProviderUnauthorized      = 4100
	ProviderUnsupported       = 4200
	ProviderDisconnected      = 4900
	ProviderChainDisconnect   = 4901
	ProviderUnrecognizedChain = 4902
	ProviderRequestPending    = -32002
)

var providerCodes = map[int]apperror.Code{
	ProviderUserRejected:      apperror.CodeUserRejected,
	ProviderUnauthorized:      apperror.CodeNoAccount,
	ProviderUnsupported:       apperror.CodeUnsupportedMethod,
	ProviderDisconnected:      apperror.CodeProviderDisconnected,
	ProviderChainDisconnect:   apperror.CodeProviderDisconnected,
	ProviderUnrecognizedChain: apperror.CodeUnknownNetwork,
	ProviderRequestPending:    apperror.CodeRequestPending,
}

// Normalize reclassifies known provider and ledger error shapes. Anything it
// does not recognize is returned unchanged.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	code, ok := classify(err)
	if !ok || apperror.HasCode(err, code) {
		return err
	}
	return apperror.New(code, apperror.WithCause(err))
}

func classify(err error) (apperror.Code, bool) {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		msg := strings.ToLower(rpcErr.Error())
		switch {
		case isUnknownNetwork(msg):
			return apperror.CodeUnknownNetwork, true
		case strings.Contains(msg, "execution reverted"):
			return apperror.CodeTransactionReverted, true
		case strings.Contains(msg, "insufficient funds"):
			return apperror.CodeInsufficientFunds, true
		}
		if code, ok := providerCodes[rpcErr.ErrorCode()]; ok {
			return code, true
		}
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && strings.Contains(strings.ToLower(dataErr.Error()), "execution reverted") {
		return apperror.CodeTransactionReverted, true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.CodeServiceTimeout, true
	}
	return "", false
}

func isUnknownNetwork(msg string) bool {
	return strings.Contains(msg, "unsupported network") || strings.Contains(msg, "unrecognized chain")
}
