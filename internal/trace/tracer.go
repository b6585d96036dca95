package trace

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/wavecal/internal/harness"
)

// Extras keys read by KosmosTracer.
const (
	KeyBins   = "bins"
	KeyGuess  = "guess"
	KeyWindow = "window"
)

// KosmosTracer runs Kosmos as a harness.Tracer. Extras "bins", "guess" and
// "window" override Options.
type KosmosTracer struct {
	Options KosmosOptions
}

var _ harness.Tracer = KosmosTracer{}

// Trace implements harness.Tracer.
func (k KosmosTracer) Trace(ctx context.Context, img mat.Matrix, extras harness.Extras) ([]float64, error) {
	opts := k.Options
	if n, ok, err := extras.Int(KeyBins); err != nil {
		return nil, err
	} else if ok {
		opts.Bins = n
	}
	if n, ok, err := extras.Int(KeyWindow); err != nil {
		return nil, err
	} else if ok {
		opts.Window = n
	}
	if g, ok, err := extras.Float(KeyGuess); err != nil {
		return nil, err
	} else if ok {
		opts.Guess = &g
	}

	t, err := Kosmos(ctx, img, opts)
	if err != nil {
		return nil, err
	}
	return t.Positions(), nil
}
