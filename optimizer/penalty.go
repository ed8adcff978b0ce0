package optimizer

import "math"

// Penalty implements the L1/L2 proximal operator shared by all three
// handlers. Lambda1 is the L1 penalty, Lambda2 the L2 penalty.
type Penalty struct {
	Lambda1 float32
	Lambda2 float32
}

// Prox computes sign(u)*max(0, |u|-lambda1) / (eta+lambda2). beta > 0 is
// enforced at configuration time, so eta+lambda2 is never zero.
func (p Penalty) Prox(u, eta float32) float32 {
	if float32(math.Abs(float64(u))) <= p.Lambda1 {
		return 0
	}
	sign := float32(1)
	if u < 0 {
		sign = -1
	}
	return sign * (float32(math.Abs(float64(u))) - p.Lambda1) / (eta + p.Lambda2)
}
