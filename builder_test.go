package paylink

import (
	"bytes"
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestAmountToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     string
	}{
		{"two decimals", "49.99", 2, "4999"},
		{"eighteen decimals", "49.99", 18, "49990000000000000000"},
		{"six decimals", "49.99", 6, "49990000"},
		{"integer amount", "100", 6, "100000000"},
		{"zero", "0", 18, "0"},
		{"sub-unit", "0.000001", 6, "1"},
		{"zero decimals", "42", 0, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmountToBaseUnits(tt.amount, tt.decimals)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.String())
			}
		})
	}

	t.Run("repeated conversion is stable", func(t *testing.T) {
		first, err := AmountToBaseUnits("49.99", 18)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i := 0; i < 100; i++ {
			got, err := AmountToBaseUnits("49.99", 18)
			if err != nil {
				t.Fatalf("unexpected error on iteration %d: %v", i, err)
			}
			if got.Cmp(first) != 0 {
				t.Fatalf("conversion drifted on iteration %d: %s != %s", i, got, first)
			}
		}
	})

	t.Run("rejects excess precision", func(t *testing.T) {
		if _, err := AmountToBaseUnits("49.999", 2); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		if _, err := AmountToBaseUnits("-1", 6); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("rejects malformed amount", func(t *testing.T) {
		for _, bad := range []string{"", "abc", "1.2.3", "1,000"} {
			if _, err := AmountToBaseUnits(bad, 6); !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("expected ErrInvalidAmount for %q, got %v", bad, err)
			}
		}
	})
}

func TestFormatBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		decimals int
		want     string
	}{
		{"whole units", "4999", 2, "49.99"},
		{"eighteen decimals", "49990000000000000000", 18, "49.99"},
		{"trailing zeros trimmed", "1000000", 6, "1"},
		{"zero", "0", 18, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := new(big.Int).SetString(tt.value, 10)
			if got := FormatBaseUnits(v, tt.decimals); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	t.Run("nil value", func(t *testing.T) {
		if got := FormatBaseUnits(nil, 6); got != "0" {
			t.Errorf("expected 0 for nil, got %s", got)
		}
	})
}

const testRecipient = "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"
const testTokenAddr = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"

func TestBuildTransfer(t *testing.T) {
	t.Run("native transfer carries value", func(t *testing.T) {
		token := TokenOption{Symbol: "ETH", Decimals: 18, Native: true}
		amount := big.NewInt(1_000_000_000_000_000)

		call, err := BuildTransfer(token, testRecipient, amount)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if call.Kind != CallNative {
			t.Errorf("expected CallNative, got %v", call.Kind)
		}
		if call.Value.Cmp(amount) != 0 {
			t.Errorf("expected value %s, got %s", amount, call.Value)
		}
		if len(call.Data) != 0 {
			t.Errorf("expected empty calldata, got %d bytes", len(call.Data))
		}
		if call.To.Hex() != testRecipient {
			t.Errorf("expected recipient %s, got %s", testRecipient, call.To.Hex())
		}
	})

	t.Run("token transfer carries calldata", func(t *testing.T) {
		token := TokenOption{Symbol: "USDC", Address: testTokenAddr, Decimals: 6}
		amount := big.NewInt(49_990_000)

		call, err := BuildTransfer(token, testRecipient, amount)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if call.Kind != CallContract {
			t.Errorf("expected CallContract, got %v", call.Kind)
		}
		if call.To.Hex() != testTokenAddr {
			t.Errorf("expected target %s, got %s", testTokenAddr, call.To.Hex())
		}
		if call.Value.Sign() != 0 {
			t.Errorf("expected zero value, got %s", call.Value)
		}
		// transfer(address,uint256) selector + two 32-byte words
		if len(call.Data) != 4+32+32 {
			t.Fatalf("expected 68 bytes of calldata, got %d", len(call.Data))
		}
		if !bytes.Equal(call.Data[:4], []byte{0xa9, 0x05, 0x9c, 0xbb}) {
			t.Errorf("expected transfer selector a9059cbb, got %x", call.Data[:4])
		}
	})

	t.Run("amount is copied not aliased", func(t *testing.T) {
		token := TokenOption{Symbol: "ETH", Decimals: 18, Native: true}
		amount := big.NewInt(100)
		call, err := BuildTransfer(token, testRecipient, amount)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		amount.SetInt64(999)
		if call.Value.Int64() != 100 {
			t.Error("expected call value to be independent of caller's big.Int")
		}
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		token := TokenOption{Symbol: "ETH", Decimals: 18, Native: true}
		for _, amt := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
			if _, err := BuildTransfer(token, testRecipient, amt); !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("expected ErrInvalidAmount for %v, got %v", amt, err)
			}
		}
	})

	t.Run("rejects bad recipient", func(t *testing.T) {
		token := TokenOption{Symbol: "ETH", Decimals: 18, Native: true}
		if _, err := BuildTransfer(token, "not-an-address", big.NewInt(1)); err == nil {
			t.Error("expected error for invalid recipient")
		}
	})

	t.Run("rejects bad token contract", func(t *testing.T) {
		token := TokenOption{Symbol: "USDC", Address: "0xdead", Decimals: 6}
		if _, err := BuildTransfer(token, testRecipient, big.NewInt(1)); err == nil {
			t.Error("expected error for invalid token contract address")
		}
	})
}

func TestBuildIntentTransfer(t *testing.T) {
	intent := &PaymentIntent{
		ID:        "intent_1",
		ToolID:    "tool_1",
		Token:     "USDC",
		Amount:    "49990000",
		PayTo:     testRecipient,
		ExpiresAt: time.Now().Add(10 * time.Minute),
		Signature: "sig",
	}

	t.Run("builds from base-unit amount", func(t *testing.T) {
		token := TokenOption{Symbol: "USDC", Address: testTokenAddr, Decimals: 6}
		call, err := BuildIntentTransfer(intent, token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if call.Kind != CallContract {
			t.Errorf("expected CallContract, got %v", call.Kind)
		}
	})

	t.Run("amount exceeding uint64", func(t *testing.T) {
		huge := &PaymentIntent{Amount: "99999999999999999999999999", PayTo: testRecipient}
		token := TokenOption{Symbol: "ETH", Decimals: 18, Native: true}
		call, err := BuildIntentTransfer(huge, token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if call.Value.String() != "99999999999999999999999999" {
			t.Errorf("lost precision: %s", call.Value)
		}
	})

	t.Run("rejects malformed intent amount", func(t *testing.T) {
		bad := &PaymentIntent{Amount: "49.99", PayTo: testRecipient}
		token := TokenOption{Symbol: "ETH", Decimals: 18, Native: true}
		if _, err := BuildIntentTransfer(bad, token); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
	})
}

func TestIntentExpired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"future expiry", now.Add(time.Minute), false},
		{"past expiry", now.Add(-time.Minute), true},
		{"zero expiry never expires", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := &PaymentIntent{ExpiresAt: tt.expiresAt}
			if got := i.Expired(now); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
