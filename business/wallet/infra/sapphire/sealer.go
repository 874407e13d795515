// Package sapphire seals transaction call data for Oasis Sapphire.
package sapphire

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/oasisprotocol/deoxysii"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/curve25519"

	"github.com/fd1az/promptchain/business/wallet/app"
	"github.com/fd1az/promptchain/internal/apperror"
	"github.com/fd1az/promptchain/internal/cache"
	"github.com/fd1az/promptchain/internal/logger"
)

const (
	tracerName = "github.com/fd1az/promptchain/business/wallet/infra/sapphire"

	// FormatEncryptedX25519DeoxysII is the call format for sealed calls.
	FormatEncryptedX25519DeoxysII = 1

	boxKDFKey = "MRAE_Box_Deoxys-II-256-128"
	keyCache  = "runtime"
)

// KeySource returns the runtime call data public key.
type KeySource interface {
	CallDataPublicKey(ctx context.Context) ([]byte, error)
}

// Call is the outer encoding of sealed call data.
type Call struct {
	Format uint64   `cbor:"format,omitempty"`
	Body   Envelope `cbor:"body"`
}

// Envelope carries the sender key, nonce and ciphertext.
type Envelope struct {
	PublicKey []byte `cbor:"pk"`
	Nonce     []byte `cbor:"nonce"`
	Data      []byte `cbor:"data"`
}

// plainCall is what gets encrypted.
type plainCall struct {
	Body []byte `cbor:"body"`
}

// Sealer implements app.Confidentiality with an ephemeral X25519 key per
// call and Deoxys-II authenticated encryption.
type Sealer struct {
	keys   KeySource
	logger logger.LoggerInterface
	ttl    time.Duration
	rand   io.Reader

	runtimeKeys *cache.Cache[string, []byte]
	tracer      trace.Tracer
}

var _ app.Confidentiality = (*Sealer)(nil)

// NewSealer creates a Sealer. The runtime key is cached for keyTTL.
func NewSealer(keys KeySource, keyTTL time.Duration, log logger.LoggerInterface) *Sealer {
	return &Sealer{
		keys:        keys,
		logger:      log,
		ttl:         keyTTL,
		rand:        rand.Reader,
		runtimeKeys: cache.New[string, []byte](time.Minute),
		tracer:      otel.Tracer(tracerName),
	}
}

// Seal encrypts data to the runtime key.
func (s *Sealer) Seal(ctx context.Context, data []byte) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "sapphire.seal",
		trace.WithAttributes(attribute.Int("data_len", len(data))))
	defer span.End()

	out, err := s.seal(ctx, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "seal failed")
		return nil, apperror.New(apperror.CodeEncryptionFailed, apperror.WithCause(err))
	}
	span.SetStatus(codes.Ok, "sealed")
	return out, nil
}

func (s *Sealer) seal(ctx context.Context, data []byte) ([]byte, error) {
	peer, err := s.runtimeKey(ctx)
	if err != nil {
		return nil, err
	}

	priv := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(s.rand, priv); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}

	key, err := DeriveKey(priv, peer)
	if err != nil {
		return nil, err
	}
	aead, err := deoxysii.New(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, deoxysii.NonceSize)
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	plain, err := cbor.Marshal(plainCall{Body: data})
	if err != nil {
		return nil, err
	}

	return cbor.Marshal(Call{
		Format: FormatEncryptedX25519DeoxysII,
		Body: Envelope{
			PublicKey: pub,
			Nonce:     nonce,
			Data:      aead.Seal(nil, nonce, plain, nil),
		},
	})
}

func (s *Sealer) runtimeKey(ctx context.Context) ([]byte, error) {
	if key, ok := s.runtimeKeys.Get(ctx, keyCache); ok {
		return key, nil
	}

	key, err := s.keys.CallDataPublicKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch runtime key: %w", err)
	}
	if len(key) != curve25519.PointSize {
		return nil, fmt.Errorf("runtime key has %d bytes, want %d", len(key), curve25519.PointSize)
	}

	s.runtimeKeys.Set(ctx, keyCache, key, s.ttl)
	s.logger.Debug(ctx, "sapphire runtime key refreshed")
	return key, nil
}

// Close stops the key cache.
func (s *Sealer) Close() error {
	s.runtimeKeys.Close()
	return nil
}

// DeriveKey computes the Deoxys-II key shared by priv and peer.
func DeriveKey(priv, peer []byte) ([]byte, error) {
	shared, err := curve25519.X25519(priv, peer)
	if err != nil {
		return nil, err
	}
	h := hmac.New(sha512.New512_256, []byte(boxKDFKey))
	h.Write(shared)
	return h.Sum(nil), nil
}
