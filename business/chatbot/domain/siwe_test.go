package domain

import (
	"bytes"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/promptchain/internal/apperror"
)

func TestSiweMessage_String(t *testing.T) {
	addr := common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	msg := NewSiweMessage("chat.example.org", addr, 0x5afe, "a1b2c3d4e5f6", issued)

	want := "chat.example.org wants you to sign in with your Ethereum account:\n" +
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed\n\n\n" +
		"URI: http://chat.example.org\n" +
		"Version: 1\n" +
		"Chain ID: 23294\n" +
		"Nonce: a1b2c3d4e5f6\n" +
		"Issued At: 2024-03-01T12:00:00Z"

	if got := msg.String(); got != want {
		t.Errorf("unexpected message:\n%s\nwant:\n%s", got, want)
	}
}

func TestSplitSignature(t *testing.T) {
	sig := func(v byte) []byte {
		b := append(bytes.Repeat([]byte{0x11}, 32), bytes.Repeat([]byte{0x22}, 32)...)
		return append(b, v)
	}

	tests := []struct {
		name    string
		sig     []byte
		wantV   int64
		wantErr bool
	}{
		{"legacy_v_27", sig(27), 27, false},
		{"legacy_v_28", sig(28), 28, false},
		{"raw_recovery_0", sig(0), 27, false},
		{"raw_recovery_1", sig(1), 28, false},
		{"bad_recovery_id", sig(5), 0, true},
		{"short", make([]byte, 64), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsv, err := SplitSignature(tt.sig)
			if tt.wantErr {
				if !apperror.HasCode(err, apperror.CodeInvalidSignature) {
					t.Errorf("expected invalid signature, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rsv.V.Int64() != tt.wantV {
				t.Errorf("expected v=%d, got %d", tt.wantV, rsv.V.Int64())
			}
			if rsv.R[0] != 0x11 || rsv.S[31] != 0x22 {
				t.Errorf("r/s not split at 32 bytes")
			}
		})
	}
}
