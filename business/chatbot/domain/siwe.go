// Package domain contains the chatbot sign-in challenge, signature handling
// and prompt/answer alignment.
package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/promptchain/internal/apperror"
)

// SiweVersion is the only EIP-4361 message version.
const SiweVersion = "1"

// SiweMessage is an EIP-4361 sign-in challenge.
type SiweMessage struct {
	Domain   string
	Address  common.Address
	URI      string
	Version  string
	ChainID  uint64
	Nonce    string
	IssuedAt time.Time
}

// NewSiweMessage builds a challenge for domain with the URI derived from it.
func NewSiweMessage(domain string, address common.Address, chainID uint64, nonce string, issuedAt time.Time) SiweMessage {
	return SiweMessage{
		Domain:   domain,
		Address:  address,
		URI:      "http://" + domain,
		Version:  SiweVersion,
		ChainID:  chainID,
		Nonce:    nonce,
		IssuedAt: issuedAt.UTC(),
	}
}

// String returns the canonical text that gets signed.
func (m SiweMessage) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s wants you to sign in with your Ethereum account:\n", m.Domain)
	b.WriteString(m.Address.Hex()) // EIP-55 checksum
	b.WriteString("\n\n\n")
	fmt.Fprintf(&b, "URI: %s\n", m.URI)
	fmt.Fprintf(&b, "Version: %s\n", m.Version)
	fmt.Fprintf(&b, "Chain ID: %d\n", m.ChainID)
	fmt.Fprintf(&b, "Nonce: %s\n", m.Nonce)
	fmt.Fprintf(&b, "Issued At: %s", m.IssuedAt.Format(time.RFC3339))
	return b.String()
}

// SignatureRSV is a recoverable signature split for contract calls.
type SignatureRSV struct {
	R [32]byte
	S [32]byte
	V *big.Int
}

// SplitSignature splits a 65-byte [R || S || V] signature. V is
// normalized to 27 or 28.
func SplitSignature(sig []byte) (SignatureRSV, error) {
	if len(sig) != 65 {
		return SignatureRSV{}, apperror.New(apperror.CodeInvalidSignature,
			apperror.WithContext(fmt.Sprintf("signature has %d bytes, want 65", len(sig))))
	}

	v := sig[64]
	if v < 27 {
		v += 27
	}
	if v != 27 && v != 28 {
		return SignatureRSV{}, apperror.New(apperror.CodeInvalidSignature,
			apperror.WithContext(fmt.Sprintf("invalid recovery id %d", sig[64])))
	}

	var rsv SignatureRSV
	copy(rsv.R[:], sig[:32])
	copy(rsv.S[:], sig[32:64])
	rsv.V = big.NewInt(int64(v))
	return rsv, nil
}
