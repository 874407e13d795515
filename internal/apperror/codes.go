package apperror

// Code identifies an error class across modules.
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Wallet connection errors
const (
	CodeGatewayUnavailable     Code = "GATEWAY_UNAVAILABLE"
	CodeProviderDisconnected   Code = "PROVIDER_DISCONNECTED"
	CodeNoAccount              Code = "NO_ACCOUNT"
	CodeUnknownNetwork         Code = "UNKNOWN_NETWORK"
	CodeInitializationFailed   Code = "INITIALIZATION_FAILED"
	CodeRestartRequired        Code = "RESTART_REQUIRED"
	CodeUserRejected           Code = "USER_REJECTED"
	CodeUnsupportedMethod      Code = "UNSUPPORTED_METHOD"
	CodeRequestPending         Code = "REQUEST_PENDING"
	CodeLedgerConnectionFailed Code = "LEDGER_CONNECTION_FAILED"
	CodeLedgerRPCError         Code = "LEDGER_RPC_ERROR"
)

// Transaction errors
const (
	CodeTransactionFailed   Code = "TRANSACTION_FAILED"
	CodeTransactionReverted Code = "TRANSACTION_REVERTED"
	CodeInsufficientFunds   Code = "INSUFFICIENT_FUNDS"
	CodeTransactionNotFound Code = "TRANSACTION_NOT_FOUND"
	CodeEncryptionFailed    Code = "ENCRYPTION_FAILED"
)

// Chatbot errors
const (
	CodeAuthFailed         Code = "AUTH_FAILED"
	CodeContractCallFailed Code = "CONTRACT_CALL_FAILED"
	CodeInvalidSignature   Code = "INVALID_SIGNATURE"
)

// Transport errors
const (
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"

	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
