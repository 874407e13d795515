package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	walletDomain "github.com/fd1az/promptchain/business/wallet/domain"
	"github.com/fd1az/promptchain/internal/logger"
)

func newSession(w *fakeWallet) *SessionManager {
	s := NewSessionManager(w, logger.NewNop())
	s.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	s.nonce = func() string { return "fixednonce1" }
	return s
}

func TestSessionManager_CachedTokenReused(t *testing.T) {
	w := newFakeWallet(t, alice)
	bot := &fakeChatBot{domain: "chat.local"}
	s := newSession(w)

	first, err := s.AuthInfo(context.Background(), bot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.AuthInfo(context.Background(), bot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bot.loginCount() != 1 {
		t.Errorf("expected exactly one login, got %d", bot.loginCount())
	}
	if string(first) != string(second) {
		t.Errorf("expected identical tokens, got %x and %x", first, second)
	}
}

func TestSessionManager_AccountChangeInvalidates(t *testing.T) {
	w := newFakeWallet(t, alice)
	bot := &fakeChatBot{domain: "chat.local"}
	s := newSession(w)

	aliceToken, err := s.AuthInfo(context.Background(), bot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := w.Update(context.Background(), walletDomain.AccountsChanged([]common.Address{bob})); err != nil {
		t.Fatalf("update: %v", err)
	}

	bobToken, err := s.AuthInfo(context.Background(), bot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bot.loginCount() != 2 {
		t.Errorf("expected a second login for the new account, got %d", bot.loginCount())
	}
	if string(aliceToken) == string(bobToken) {
		t.Error("expected the new account to get its own token")
	}
	msgs := w.signedMessages()
	if !strings.Contains(msgs[1], bob.Hex()) {
		t.Errorf("expected the challenge to name %s:\n%s", bob.Hex(), msgs[1])
	}
}

func TestSessionManager_Challenge(t *testing.T) {
	w := newFakeWallet(t, alice)
	bot := &fakeChatBot{domain: "chat.local"}
	s := newSession(w)

	if _, err := s.AuthInfo(context.Background(), bot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := w.signedMessages()
	if len(msgs) != 1 {
		t.Fatalf("expected one signature request, got %d", len(msgs))
	}
	for _, want := range []string{
		"chat.local wants you to sign in",
		"URI: http://chat.local",
		"Version: 1",
		"Chain ID: 23294",
		"Nonce: fixednonce1",
	} {
		if !strings.Contains(msgs[0], want) {
			t.Errorf("challenge missing %q:\n%s", want, msgs[0])
		}
	}
	if bot.logins[0] != msgs[0] {
		t.Error("expected login to receive the signed challenge")
	}
}

func TestSessionManager_ConcurrentCallersShareLogin(t *testing.T) {
	w := newFakeWallet(t, alice)
	bot := &fakeChatBot{domain: "chat.local"}
	s := newSession(w)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AuthInfo(context.Background(), bot); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if bot.loginCount() != 1 {
		t.Errorf("expected one login, got %d", bot.loginCount())
	}
}

func TestSessionManager_FailureNotCached(t *testing.T) {
	w := newFakeWallet(t, alice)
	loginErr := errors.New("login rejected")
	bot := &fakeChatBot{domain: "chat.local", loginErr: loginErr}
	s := newSession(w)

	_, err := s.AuthInfo(context.Background(), bot)
	if !errors.Is(err, loginErr) {
		t.Errorf("expected the login error unchanged, got %v", err)
	}
	if w.State().AuthInfo != nil {
		t.Error("expected no token cached after a failed login")
	}
}

func TestSessionManager_Logout(t *testing.T) {
	w := newFakeWallet(t, alice)
	bot := &fakeChatBot{domain: "chat.local"}
	s := newSession(w)

	if _, err := s.AuthInfo(context.Background(), bot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := s.AuthInfo(context.Background(), bot); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if bot.loginCount() != 2 {
		t.Errorf("expected a fresh login after logout, got %d", bot.loginCount())
	}
}
