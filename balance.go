package paylink

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/paylink-dev/paylink-go/logger"
)

// BalanceAggregator resolves token balances for an account and produces
// a ranked, display-ready list. Resolution is per-token independent and
// concurrent: one token failing to resolve never fails the batch.
type BalanceAggregator struct {
	reader BalanceReader
	log    logger.Logger
}

// AggregatorOption configures a BalanceAggregator.
type AggregatorOption func(*BalanceAggregator)

// WithAggregatorLogger sets the logger used for resolution failures.
func WithAggregatorLogger(l logger.Logger) AggregatorOption {
	return func(a *BalanceAggregator) {
		a.log = l
	}
}

// NewBalanceAggregator creates an aggregator over the given reader.
func NewBalanceAggregator(reader BalanceReader, opts ...AggregatorOption) *BalanceAggregator {
	a := &BalanceAggregator{
		reader: reader,
		log:    logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type balanceResult struct {
	index   int
	balance *big.Int
	err     error
}

// Resolve fetches every token's balance concurrently, joins the results,
// and ranks them. Tokens whose balance could not be resolved are reported
// with a zero balance and HasBalance=false; the failure is logged, not
// returned. The only error Resolve itself returns is ctx expiry.
//
// Ranking: tokens with a balance sort before tokens without; within the
// funded group, descending exact integer balance; ties and the unfunded
// group keep their input order.
func (a *BalanceAggregator) Resolve(ctx context.Context, tokens []TokenOption, account common.Address, chainID int64) ([]RankedToken, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	resultCh := make(chan balanceResult, len(tokens))
	for i, token := range tokens {
		go func(index int, t TokenOption) {
			balance, err := a.resolveOne(ctx, t, account)
			resultCh <- balanceResult{index: index, balance: balance, err: err}
		}(i, token)
	}

	ranked := make([]RankedToken, len(tokens))
	for range tokens {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-resultCh:
			token := tokens[res.index]
			if res.err != nil {
				a.log.Warn("balance resolution failed", map[string]any{
					"token":   token.Symbol,
					"account": account.Hex(),
					"chain":   chainID,
					"error":   res.err.Error(),
				})
				ranked[res.index] = RankedToken{
					TokenOption: token,
					Balance:     big.NewInt(0),
					Formatted:   "0",
					HasBalance:  false,
				}
				continue
			}
			ranked[res.index] = RankedToken{
				TokenOption: token,
				Balance:     res.balance,
				Formatted:   FormatBaseUnits(res.balance, token.Decimals),
				HasBalance:  res.balance.Sign() > 0,
			}
		}
	}

	rankTokens(ranked)
	return ranked, nil
}

func (a *BalanceAggregator) resolveOne(ctx context.Context, token TokenOption, account common.Address) (*big.Int, error) {
	if token.Native {
		return a.reader.NativeBalance(ctx, account)
	}
	return a.reader.TokenBalance(ctx, common.HexToAddress(token.Address), account)
}

// rankTokens orders funded tokens first, descending by exact balance.
// SliceStable preserves input order for ties and for the unfunded tail.
func rankTokens(tokens []RankedToken) {
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].HasBalance != tokens[j].HasBalance {
			return tokens[i].HasBalance
		}
		if !tokens[i].HasBalance {
			return false
		}
		return tokens[i].Balance.Cmp(tokens[j].Balance) > 0
	})
}
