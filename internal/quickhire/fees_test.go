package quickhire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFees(t *testing.T) {
	tests := []struct {
		name       string
		amount     float64
		rate       float64
		wantFee    float64
		wantPayout float64
	}{
		{name: "default policy on 200", amount: 200, rate: 0.15, wantFee: 30, wantPayout: 170},
		{name: "platform minimum", amount: 25, rate: 0.15, wantFee: 3.75, wantPayout: 21.25},
		{name: "amount needing rounding", amount: 33.33, rate: 0.15, wantFee: 5, wantPayout: 28.33},
		{name: "odd cents", amount: 99.99, rate: 0.15, wantFee: 15, wantPayout: 84.99},
		{name: "zero rate", amount: 120, rate: 0, wantFee: 0, wantPayout: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, payout := ComputeFees(tt.amount, tt.rate)
			assert.Equal(t, tt.wantFee, fee)
			assert.Equal(t, tt.wantPayout, payout)
		})
	}
}

func TestComputeFees_SumInvariant(t *testing.T) {
	// fee + payout must reconstruct the gross amount exactly for any
	// 2-decimal amount.
	amounts := []float64{25, 25.01, 49.99, 66.67, 100, 123.45, 250.55, 499.99}
	for _, amount := range amounts {
		fee, payout := ComputeFees(amount, 0.15)
		assert.Equal(t, amount, round2(fee+payout), "amount %v", amount)
	}
}
