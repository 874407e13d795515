package apperror

var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeGatewayUnavailable:     "Wallet gateway is not available",
	CodeProviderDisconnected:   "Wallet provider is disconnected",
	CodeNoAccount:              "No account was authorized",
	CodeUnknownNetwork:         "Selected network is not supported",
	CodeInitializationFailed:   "Wallet initialization failed",
	CodeRestartRequired:        "Network changed, restart required",
	CodeUserRejected:           "Request rejected by user",
	CodeUnsupportedMethod:      "Method not supported by wallet",
	CodeRequestPending:         "A wallet request is already pending",
	CodeLedgerConnectionFailed: "Failed to connect to chain node",
	CodeLedgerRPCError:         "Chain RPC call failed",

	CodeTransactionFailed:   "Transaction failed",
	CodeTransactionReverted: "Transaction reverted",
	CodeInsufficientFunds:   "Insufficient funds for transaction",
	CodeTransactionNotFound: "Transaction not found",
	CodeEncryptionFailed:    "Failed to encrypt transaction payload",

	CodeAuthFailed:         "Chatbot authentication failed",
	CodeContractCallFailed: "Smart contract call failed",
	CodeInvalidSignature:   "Invalid signature",

	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	CodeCircuitOpen: "Circuit breaker is open",
}
