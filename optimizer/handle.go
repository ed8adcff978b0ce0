// Package optimizer implements the per-key online update handlers a
// parameter server shard dispatches to: plain SGD, AdaGrad, and
// FTRL-Proximal, all sharing the L1/L2 proximal operator. Handler choice is
// process-wide and made once at shard construction, not per key — picking
// the concrete handler type up front lets Push/Pull dispatch statically
// instead of through a per-key virtual call.
package optimizer

import (
	"math"

	"github.com/asyncps/psengine/feaid"
	"github.com/asyncps/psengine/progress"
)

// Handle is the hook contract a parameter server shard invokes for every
// incoming batch. E is the per-key entry shape the handle owns
// (feaid.SGDEntry, feaid.AdaGradEntry, or feaid.FTRLEntry).
type Handle[E any] interface {
	// Start is called once per batch, before any Push/Pull in that batch.
	Start(push bool, timestamp int64)
	// Init is called exactly once when key is first observed; entry is
	// already zero-valued.
	Init(key feaid.ID, entry *E)
	// Push mutates entry in place using gradient.
	Push(key feaid.ID, gradient float32, entry *E)
	// Pull writes the scalar weight to send back for a Pull RPC.
	Pull(key feaid.ID, entry E, out *float32)
	// Finish is called once per batch, after every Push/Pull in that batch
	// has run; it may emit a progress delta.
	Finish() progress.Progress
	// Fields returns entry's persisted columns, in model-save order, so a
	// shard can dump itself without knowing E's concrete shape.
	Fields(entry E) []float32
}

// base holds the fields and nnz-accounting common to all three handlers.
type base struct {
	Penalty   Penalty
	Alpha     float32 // alpha, learning-rate scale
	Beta      float32 // beta, learning-rate offset
	nnzDelta  int64
	clamped   int64
}

// report accumulates the nnz(w) delta for one Push: if the weight went from
// zero to non-zero, nnz increases; if it went from non-zero to zero, nnz
// decreases.
func (b *base) report(oldW, newW float32) {
	if oldW == 0 && newW != 0 {
		b.nnzDelta++
	} else if oldW != 0 && newW == 0 {
		b.nnzDelta--
	}
}

func (b *base) finish() progress.Progress {
	p := progress.Progress{NnzW: b.nnzDelta, ClampedGrads: b.clamped}
	b.nnzDelta, b.clamped = 0, 0
	return p
}

func (b *base) clamp(g float32) float32 {
	if math.IsNaN(float64(g)) || math.IsInf(float64(g), 0) {
		b.clamped++
		return 0
	}
	return g
}

// SGDHandle implements plain SGD: alpha/(beta+sqrt(t)) as the learning rate,
// shared across all keys and advanced once per push-batch.
type SGDHandle struct {
	base
	t int64
	eta float32
}

// NewSGDHandle creates an SGD handle with the given learning-rate and
// penalty parameters. t starts at 1, matching the original trainer.
func NewSGDHandle(alpha, beta float32, penalty Penalty) *SGDHandle {
	return &SGDHandle{base: base{Penalty: penalty, Alpha: alpha, Beta: beta}, t: 1}
}

func (h *SGDHandle) Start(push bool, _ int64) {
	if push {
		h.eta = (h.Beta + float32(math.Sqrt(float64(h.t)))) / h.Alpha
		h.t++
	}
}

func (h *SGDHandle) Init(feaid.ID, *feaid.SGDEntry) {}

func (h *SGDHandle) Push(_ feaid.ID, gradient float32, entry *feaid.SGDEntry) {
	g := h.clamp(gradient)
	oldW := entry.W
	entry.W = h.Penalty.Prox(h.eta*entry.W-g, h.eta)
	h.report(oldW, entry.W)
}

func (h *SGDHandle) Pull(_ feaid.ID, entry feaid.SGDEntry, out *float32) {
	*out = entry.W
}

func (h *SGDHandle) Finish() progress.Progress { return h.finish() }

func (h *SGDHandle) Fields(entry feaid.SGDEntry) []float32 { return []float32{entry.W} }

// AdaGradHandle implements AdaGrad: alpha/(beta+sqrt(sum_t g_t^2)) as the
// per-key learning rate.
type AdaGradHandle struct {
	base
}

// NewAdaGradHandle creates an AdaGrad handle with the given learning-rate
// and penalty parameters.
func NewAdaGradHandle(alpha, beta float32, penalty Penalty) *AdaGradHandle {
	return &AdaGradHandle{base: base{Penalty: penalty, Alpha: alpha, Beta: beta}}
}

func (h *AdaGradHandle) Start(bool, int64) {}

func (h *AdaGradHandle) Init(feaid.ID, *feaid.AdaGradEntry) {}

func (h *AdaGradHandle) Push(_ feaid.ID, gradient float32, entry *feaid.AdaGradEntry) {
	g := h.clamp(gradient)
	sqrtN := entry.SqCumGrad
	entry.SqCumGrad = float32(math.Sqrt(float64(sqrtN*sqrtN + g*g)))

	eta := (entry.SqCumGrad + h.Beta) / h.Alpha
	oldW := entry.W
	entry.W = h.Penalty.Prox(eta*oldW-g, eta)
	h.report(oldW, entry.W)
}

func (h *AdaGradHandle) Pull(_ feaid.ID, entry feaid.AdaGradEntry, out *float32) {
	*out = entry.W
}

func (h *AdaGradHandle) Finish() progress.Progress { return h.finish() }

func (h *AdaGradHandle) Fields(entry feaid.AdaGradEntry) []float32 {
	return []float32{entry.W, entry.SqCumGrad}
}

// FTRLHandle implements FTRL-Proximal: an accumulated smoothed linear term z
// and a per-coordinate effective learning rate derived from sqrt(sum g^2).
type FTRLHandle struct {
	base
}

// NewFTRLHandle creates an FTRL-Proximal handle with the given
// learning-rate and penalty parameters.
func NewFTRLHandle(alpha, beta float32, penalty Penalty) *FTRLHandle {
	return &FTRLHandle{base: base{Penalty: penalty, Alpha: alpha, Beta: beta}}
}

func (h *FTRLHandle) Start(bool, int64) {}

func (h *FTRLHandle) Init(feaid.ID, *feaid.FTRLEntry) {}

func (h *FTRLHandle) Push(_ feaid.ID, gradient float32, entry *feaid.FTRLEntry) {
	g := h.clamp(gradient)
	sqrtN := entry.SqCumGrad
	entry.SqCumGrad = float32(math.Sqrt(float64(sqrtN*sqrtN + g*g)))

	oldW := entry.W
	sigma := (entry.SqCumGrad - sqrtN) / h.Alpha
	entry.Z += g - sigma*oldW

	entry.W = h.Penalty.Prox(-entry.Z, (h.Beta+entry.SqCumGrad)/h.Alpha)
	h.report(oldW, entry.W)
}

func (h *FTRLHandle) Pull(_ feaid.ID, entry feaid.FTRLEntry, out *float32) {
	*out = entry.W
}

func (h *FTRLHandle) Finish() progress.Progress { return h.finish() }

func (h *FTRLHandle) Fields(entry feaid.FTRLEntry) []float32 {
	return []float32{entry.W, entry.Z, entry.SqCumGrad}
}
