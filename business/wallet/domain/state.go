// Package domain contains the wallet connection state and its reducers.
package domain

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	networkDomain "github.com/fd1az/promptchain/business/network/domain"
)

// Phase is the coarse lifecycle position of the connection.
type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnected    Phase = "connected"
	// PhaseRestartRequired is terminal. The host must rebuild the process.
	PhaseRestartRequired Phase = "restart_required"
)

// AuthInfo is a session token bound to the account it was issued for.
type AuthInfo struct {
	Account common.Address
	Token   []byte
}

// State is the connection state. Values are treated as immutable: reducers
// replace pointer fields instead of mutating what they point to.
type State struct {
	Phase       Phase
	IsConnected bool
	Account     *common.Address
	ChainID     *big.Int
	// Network carries chain name, explorer and currency as one unit.
	Network    *networkDomain.Network
	IsSapphire *bool

	IsInteractingWithChain bool
	IsWaitingChatBot       bool

	AuthInfo *AuthInfo
}

// Reducer derives the next state from the latest snapshot.
type Reducer func(State) State

// Initial is the state before any connection attempt.
func Initial() State {
	return State{Phase: PhaseDisconnected}
}

// ChainName returns the network name or "".
func (s State) ChainName() string {
	if s.Network == nil {
		return ""
	}
	return s.Network.Name
}

// ExplorerBaseURL returns the explorer url or "".
func (s State) ExplorerBaseURL() string {
	if s.Network == nil {
		return ""
	}
	return s.Network.ExplorerBaseURL()
}

// NativeCurrency returns the native coin symbol or "".
func (s State) NativeCurrency() string {
	if s.Network == nil {
		return ""
	}
	return s.Network.NativeCurrency()
}

// Sapphire reports whether state-changing calls must be sealed.
func (s State) Sapphire() bool {
	return s.IsSapphire != nil && *s.IsSapphire
}

// TokenFor returns the cached token if it was issued for account.
func (s State) TokenFor(account common.Address) ([]byte, bool) {
	if s.AuthInfo == nil || s.AuthInfo.Account != account {
		return nil, false
	}
	return s.AuthInfo.Token, true
}

// Connected records a validated connection.
func Connected(account common.Address, chainID *big.Int, network *networkDomain.Network) Reducer {
	return func(s State) State {
		if s.Phase == PhaseRestartRequired {
			return s
		}
		s = withAccount(s, account)
		s.ChainID = new(big.Int).Set(chainID)
		s.Network = network
		sapphire := network.Sapphire
		s.IsSapphire = &sapphire
		s.IsConnected = true
		s.Phase = PhaseConnected
		return s
	}
}

// AccountsChanged adopts the first account. An empty list only drops the
// connected flag.
func AccountsChanged(accounts []common.Address) Reducer {
	return func(s State) State {
		if len(accounts) == 0 {
			return setConnected(s, false)
		}
		return withAccount(s, accounts[0])
	}
}

// ChainChanged moves a connected state to PhaseRestartRequired when the
// chain differs from the one validated at connect.
func ChainChanged(chainID *big.Int) Reducer {
	return func(s State) State {
		if !s.IsConnected || s.ChainID == nil || chainID == nil {
			return s
		}
		if s.ChainID.Cmp(chainID) == 0 {
			return s
		}
		s.Phase = PhaseRestartRequired
		return s
	}
}

// ConnectionChanged sets the connected flag.
func ConnectionChanged(connected bool) Reducer {
	return func(s State) State {
		return setConnected(s, connected)
	}
}

// SetInteracting sets the busy flag.
func SetInteracting(busy bool) Reducer {
	return func(s State) State {
		s.IsInteractingWithChain = busy
		return s
	}
}

// SetWaitingChatBot sets the outstanding answer flag.
func SetWaitingChatBot(waiting bool) Reducer {
	return func(s State) State {
		s.IsWaitingChatBot = waiting
		return s
	}
}

// SetAuth caches token for account. It is dropped if the active account
// changed while the token was being obtained.
func SetAuth(account common.Address, token []byte) Reducer {
	return func(s State) State {
		if s.Account == nil || *s.Account != account {
			return s
		}
		s.AuthInfo = &AuthInfo{Account: account, Token: bytes.Clone(token)}
		return s
	}
}

// Logout clears the cached token.
func Logout() Reducer {
	return func(s State) State {
		s.AuthInfo = nil
		return s
	}
}

func withAccount(s State, account common.Address) State {
	if s.Account != nil && *s.Account == account {
		return s
	}
	a := account
	s.Account = &a
	s.AuthInfo = nil
	s.IsInteractingWithChain = false
	return s
}

func setConnected(s State, connected bool) State {
	s.IsConnected = connected
	if s.Phase == PhaseRestartRequired {
		return s
	}
	if connected && s.Account != nil && s.Network != nil {
		s.Phase = PhaseConnected
	} else if !connected {
		s.Phase = PhaseDisconnected
	}
	return s
}
