// Package loss defines the loss-module contract the worker pipeline
// consumes and a reference logistic-regression implementation. Other
// losses (squared, factorization-machine) are not implemented here;
// Interface is generic enough that they are drop-in implementations.
package loss

import (
	"github.com/asyncps/psengine/minibatch"
	"github.com/asyncps/psengine/progress"
)

// Interface is bound to one localized minibatch's rows and pulled weight
// buffer for the lifetime of a single pull→push round-trip.
type Interface interface {
	// Init binds the loss to rows and the weight buffer pulled for them
	// (aligned by local column index), using up to threads goroutines for
	// evaluation/gradient work.
	Init(rows minibatch.RowBlock, weights []float32, threads int)
	// Evaluate accumulates this minibatch's contribution (objective, AUC,
	// example count) into prog.
	Evaluate(prog *progress.Progress)
	// CalcGrad overwrites the weight buffer passed to Init, in place, with
	// per-coordinate gradients aligned to the same local column index.
	CalcGrad()
}
