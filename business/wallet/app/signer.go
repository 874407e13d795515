package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/promptchain/internal/apperror"
)

// gatewaySigner signs through the wallet agent in the clear.
type gatewaySigner struct {
	gateway Gateway
	account common.Address
}

func (s *gatewaySigner) Address() common.Address {
	return s.account
}

func (s *gatewaySigner) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	return s.gateway.PersonalSign(ctx, s.account, msg)
}

func (s *gatewaySigner) SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error) {
	return s.gateway.SendTransaction(ctx, s.account, tx)
}

// sealedSigner encrypts call data before handing the transaction on.
type sealedSigner struct {
	Signer
	sealer Confidentiality
}

func (s *sealedSigner) SendTransaction(ctx context.Context, tx TxRequest) (common.Hash, error) {
	sealed, err := s.sealer.Seal(ctx, tx.Data)
	if err != nil {
		return common.Hash{}, apperror.New(apperror.CodeEncryptionFailed, apperror.WithCause(err))
	}
	tx.Data = sealed
	return s.Signer.SendTransaction(ctx, tx)
}
