// Package app contains the chatbot session and interaction services.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/promptchain/business/chatbot/domain"
	walletApp "github.com/fd1az/promptchain/business/wallet/app"
	walletDomain "github.com/fd1az/promptchain/business/wallet/domain"
)

// ChatBot is the contract-backed chatbot service.
type ChatBot interface {
	Domain(ctx context.Context) (string, error)
	Login(ctx context.Context, message string, sig domain.SignatureRSV) ([]byte, error)
	GetPrompts(ctx context.Context, token []byte, account common.Address) ([]string, error)
	GetAnswers(ctx context.Context, token []byte, account common.Address) ([]domain.AnswerRecord, error)
	AppendPrompt(ctx context.Context, prompt string) (common.Hash, error)
	ClearPrompt(ctx context.Context, gasLimit uint64) (common.Hash, error)

	// WatchAnswerSubmitted delivers the sender of the first AnswerSubmitted
	// event for account, then closes. It closes without a value when ctx ends.
	WatchAnswerSubmitted(ctx context.Context, account common.Address) (<-chan common.Address, error)
}

// Factory binds a ChatBot to the current connection.
type Factory interface {
	ChatBot(ctx context.Context) (ChatBot, error)
}

// Wallet is the part of the connection manager the chatbot uses.
type Wallet interface {
	walletApp.Updater
	State() walletDomain.State
	UnwrappedSigner(ctx context.Context) (walletApp.Signer, error)
	WaitForTransaction(ctx context.Context, hash common.Hash) (*types.Transaction, error)
}

var _ Wallet = (*walletApp.Manager)(nil)
