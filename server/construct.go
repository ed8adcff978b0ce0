package server

import (
	"fmt"

	"github.com/asyncps/psengine/feaid"
	"github.com/asyncps/psengine/optimizer"
)

// Config carries the knobs shared by every online update handler: the
// learning-rate schedule (Alpha, Beta) and the elastic-net penalty
// (Lambda1, Lambda2), shared across whichever algorithm Algo names.
type Config struct {
	Algo    string // "sgd", "adagrad", or "ftrl"
	Alpha   float32
	Beta    float32
	Lambda1 float32
	Lambda2 float32
}

// New builds the Service for [low, high) configured by cfg, resolving the
// entry shape and handler algorithm once at construction rather than on
// every key, grounded on the original's CreateServer<Entry,Handle> factory
// template.
func New(low, high feaid.ID, cfg Config) (Service, error) {
	penalty := optimizer.Penalty{Lambda1: cfg.Lambda1, Lambda2: cfg.Lambda2}
	switch cfg.Algo {
	case "sgd":
		return NewShard[feaid.SGDEntry](low, high, optimizer.NewSGDHandle(cfg.Alpha, cfg.Beta, penalty)), nil
	case "adagrad":
		return NewShard[feaid.AdaGradEntry](low, high, optimizer.NewAdaGradHandle(cfg.Alpha, cfg.Beta, penalty)), nil
	case "ftrl":
		return NewShard[feaid.FTRLEntry](low, high, optimizer.NewFTRLHandle(cfg.Alpha, cfg.Beta, penalty)), nil
	default:
		return nil, fmt.Errorf("server: unknown algo %q", cfg.Algo)
	}
}
