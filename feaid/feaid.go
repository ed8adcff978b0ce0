// Package feaid defines the global feature identifier and the per-key
// parameter entry shapes owned by a parameter server shard.
package feaid

// ID identifies a single coordinate of the global, sparse parameter vector.
// The ID space is sparse: most IDs never appear in any minibatch.
type ID = uint64

// SGDEntry is the parameter entry shape for the plain SGD handler.
type SGDEntry struct {
	W float32
}

// AdaGradEntry is the parameter entry shape for the AdaGrad handler.
// SqCumGrad stores sqrt(sum_i g_i^2) accumulated so far.
type AdaGradEntry struct {
	W         float32
	SqCumGrad float32
}

// FTRLEntry is the parameter entry shape for the FTRL-Proximal handler.
// Z accumulates the smoothed linear term; SqCumGrad is as in AdaGradEntry.
type FTRLEntry struct {
	W         float32
	Z         float32
	SqCumGrad float32
}
