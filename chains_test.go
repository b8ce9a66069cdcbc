package paylink

import (
	"errors"
	"testing"
)

func TestChainByID(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		want string
	}{
		{"ethereum", 1, "Ethereum"},
		{"base", 8453, "Base"},
		{"polygon", 137, "Polygon"},
		{"arbitrum", 42161, "Arbitrum One"},
		{"sepolia", 11155111, "Sepolia"},
		{"base sepolia", 84532, "Base Sepolia"},
		{"polygon amoy", 80002, "Polygon Amoy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ChainByID(tt.id)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Name != tt.want {
				t.Errorf("expected %s, got %s", tt.want, c.Name)
			}
			if c.NativeDecimals != 18 {
				t.Errorf("expected 18 native decimals, got %d", c.NativeDecimals)
			}
		})
	}

	t.Run("unknown chain", func(t *testing.T) {
		if _, err := ChainByID(999999); !errors.Is(err, ErrUnsupportedChain) {
			t.Errorf("expected ErrUnsupportedChain, got %v", err)
		}
	})
}

func TestChainName(t *testing.T) {
	if got := ChainName(8453); got != "Base" {
		t.Errorf("expected Base, got %s", got)
	}
	if got := ChainName(999999); got != "chain 999999" {
		t.Errorf("expected numeric fallback, got %s", got)
	}
}

func TestExplorerTxURL(t *testing.T) {
	hash := "0xabc123"
	if got := Base.ExplorerTxURL(hash); got != "https://basescan.org/tx/0xabc123" {
		t.Errorf("unexpected explorer url %s", got)
	}
	if got := (Chain{}).ExplorerTxURL(hash); got != "" {
		t.Errorf("expected empty url for chain without explorer, got %s", got)
	}
}
