package resale

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/spec-kit/eventix/internal/domain"
)

func ticketAt(original string) domain.Ticket {
	price := decimal.RequireFromString(original)
	return domain.Ticket{Mint: "mint-1", Price: price, OriginalPrice: price}
}

func TestEvaluate(t *testing.T) {
	ticket := ticketAt("0.10")

	tests := []struct {
		name    string
		price   string
		count   int
		allowed bool
		reason  DenyReason
	}{
		{name: "twenty percent markup", price: "0.12", count: 0, allowed: true},
		{name: "exact ceiling", price: "0.125", count: 0, allowed: true},
		{name: "below original", price: "0.05", count: 2, allowed: true},
		{name: "forty percent markup", price: "0.14", count: 0, reason: ReasonMarkupExceeded},
		{name: "just over ceiling", price: "0.1250001", count: 0, reason: ReasonMarkupExceeded},
		{name: "ceiling reached", price: "0.10", count: 3, reason: ReasonResaleLimitExceeded},
		{name: "ceiling beats markup", price: "9", count: 4, reason: ReasonResaleLimitExceeded},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(ticket, decimal.RequireFromString(tc.price), tc.count)
			require.Equal(t, tc.allowed, got.Allowed)
			require.Equal(t, tc.reason, got.Reason)
			require.True(t, got.MaxPrice.Equal(decimal.RequireFromString("0.125")), got.MaxPrice.String())
		})
	}
}

func TestEvaluateUsesOriginalPriceNotCurrent(t *testing.T) {
	ticket := ticketAt("0.10")
	ticket.Price = decimal.RequireFromString("0.125")

	got := Evaluate(ticket, decimal.RequireFromString("0.15"), 1)
	require.False(t, got.Allowed)
	require.Equal(t, ReasonMarkupExceeded, got.Reason)
}

func TestEvaluateProperties(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		originalCents := rapid.Int64Range(1, 1_000_000).Draw(r, "originalCents")
		proposedCents := rapid.Int64Range(0, 2_000_000).Draw(r, "proposedCents")
		count := rapid.IntRange(0, 10).Draw(r, "count")

		original := decimal.New(originalCents, -2)
		proposed := decimal.New(proposedCents, -2)
		ticket := domain.Ticket{OriginalPrice: original, Price: original}

		first := Evaluate(ticket, proposed, count)
		second := Evaluate(ticket, proposed, count)
		if first.Allowed != second.Allowed || first.Reason != second.Reason || !first.MaxPrice.Equal(second.MaxPrice) {
			r.Fatalf("evaluation is not deterministic: %+v vs %+v", first, second)
		}

		if first.Allowed {
			if count >= domain.MaxResales {
				r.Fatalf("allowed at resale count %d", count)
			}
			if proposed.Mul(decimal.NewFromInt(100)).GreaterThan(original.Mul(decimal.NewFromInt(125))) {
				r.Fatalf("allowed %s above 125%% of %s", proposed, original)
			}
		} else if count < domain.MaxResales && first.Reason != ReasonMarkupExceeded {
			r.Fatalf("unexpected reason %q", first.Reason)
		}
	})
}

func TestCanResale(t *testing.T) {
	require.True(t, CanResale(0))
	require.True(t, CanResale(2))
	require.False(t, CanResale(3))
}
