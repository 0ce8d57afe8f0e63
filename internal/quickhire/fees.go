package quickhire

import "math"

// ComputeFees splits a gross amount into the platform fee and the worker
// payout. The fee is rounded to 2 decimals and the payout is the remainder,
// so fee + payout always equals the gross amount exactly.
func ComputeFees(amount, feeRate float64) (platformFee, workerPayout float64) {
	platformFee = round2(amount * feeRate)
	workerPayout = round2(amount - platformFee)
	return platformFee, workerPayout
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
