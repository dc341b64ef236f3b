package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from TransactionStatus
		to   TransactionStatus
		want bool
	}{
		{StatusAccrued, StatusClaimed, true},
		{StatusAccrued, StatusRejected, true},
		{StatusAccrued, StatusReversed, true},
		{StatusClaimed, StatusRejected, true},
		{StatusClaimed, StatusReversed, true},
		{StatusClaimed, StatusClaimed, false},
		{StatusClaimed, StatusAccrued, false},
		{StatusAccrued, StatusPaid, false},
		{StatusClaimed, StatusPaid, false},
		{StatusPaid, StatusReversed, false},
		{StatusPaid, StatusClaimed, false},
		{StatusReversed, StatusClaimed, false},
		{StatusRejected, StatusReversed, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestOutstanding(t *testing.T) {
	txn := CorporateTransaction{NetToCorporate: 1000, PaidAmount: 300, Status: StatusAccrued}
	assert.Equal(t, int64(700), txn.Outstanding())

	txn.Status = StatusClaimed
	assert.Equal(t, int64(700), txn.Outstanding())

	// Fully allocated but status not yet flipped.
	txn.PaidAmount = 1000
	assert.Equal(t, int64(0), txn.Outstanding())

	// Terminal statuses never carry a balance.
	txn.PaidAmount = 300
	for _, status := range []TransactionStatus{StatusPaid, StatusReversed, StatusRejected} {
		txn.Status = status
		assert.Equal(t, int64(0), txn.Outstanding(), string(status))
	}
}
