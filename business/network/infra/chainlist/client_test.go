package chainlist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fd1az/promptchain/internal/apperror"
	"github.com/fd1az/promptchain/internal/logger"
)

const chainsJSON = `[
  {
    "name": "Oasis Sapphire",
    "chainId": 23294,
    "rpc": ["https://sapphire.oasis.io"],
    "nativeCurrency": {"name": "Sapphire Rose", "symbol": "ROSE", "decimals": 18},
    "explorers": [{"name": "Oasis Explorer", "url": "https://explorer.oasis.io/mainnet/sapphire"}]
  },
  {
    "name": "Polygon Mainnet",
    "chainId": 137,
    "nativeCurrency": {"name": "POL", "symbol": "POL", "decimals": 18},
    "explorers": [{"name": "polygonscan", "url": "https://polygonscan.com"}, {"name": "", "url": ""}]
  },
  {
    "name": "No Explorer Chain",
    "chainId": 31337,
    "nativeCurrency": {"name": "Ether", "symbol": "ETH", "decimals": 18}
  }
]`

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chainsJSON))
	}))
	defer srv.Close()

	c, err := NewClient(DefaultConfig(srv.URL), logger.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	networks, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(networks) != 2 {
		t.Fatalf("expected 2 networks, got %d", len(networks))
	}

	sapphire := networks[0]
	if !sapphire.Sapphire {
		t.Error("expected sapphire flag for 23294")
	}
	if sapphire.NativeCurrency() != "ROSE" {
		t.Errorf("expected ROSE, got %q", sapphire.NativeCurrency())
	}

	polygon := networks[1]
	if len(polygon.ExplorerURLs) != 1 {
		t.Errorf("expected empty explorer urls dropped, got %v", polygon.ExplorerURLs)
	}
	if polygon.Sapphire {
		t.Error("expected polygon not to be sapphire")
	}
}

func TestClient_FetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(DefaultConfig(srv.URL), logger.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = c.Fetch(context.Background())
	if !apperror.HasCode(err, apperror.CodeExternalServiceError) {
		t.Errorf("expected external service error, got %v", err)
	}
}

func TestNewClient_RequiresURL(t *testing.T) {
	if _, err := NewClient(Config{}, logger.NewNop()); err == nil {
		t.Error("expected error for empty url")
	}
}
