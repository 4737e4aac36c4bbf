package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		message string
		kind    Kind
		ok      bool
	}{
		{"Price exceeds maximum allowed markup of 25%. Please set a lower price.", KindExceedsMarkup, true},
		{"Error: ExceedsMaxMarkup", KindExceedsMarkup, true},
		{"You are not the owner of this ticket.", KindNotOwner, true},
		{"custom program error: NotTicketOwner", KindNotOwner, true},
		{"This ticket cannot be resold.", KindResaleNotAllowed, true},
		{"This ticket has already been sold once and cannot be resold again due to anti-scalping rules.", KindAlreadyMaxResales, true},
		{"Maximum number of resales (3) exceeded. This ticket cannot be resold anymore.", KindAlreadyMaxResales, true},
		{"Blockhash not found", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		kind, ok := classify(tc.message)
		assert.Equal(t, tc.ok, ok, tc.message)
		assert.Equal(t, tc.kind, kind, tc.message)
	}
}

func TestKindMessage(t *testing.T) {
	assert.Equal(t, "You are not the owner of this ticket.", KindNotOwner.Message())
	assert.NotEmpty(t, Kind("Other").Message())
}
