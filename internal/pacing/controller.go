package pacing

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Speed is the recommended narrative tempo for a stretch of scenes.
type Speed string

const (
	SpeedSlow     Speed = "slow"
	SpeedModerate Speed = "moderate"
	SpeedFast     Speed = "fast"
)

// DefaultCapFraction bounds a single transition to this fraction of the
// maximum possible pair distance.
const DefaultCapFraction = 0.4

const defaultEmbedConcurrency = 4

// Metrics describes the semantic movement of a scene sequence.
type Metrics struct {
	// TotalDistance is the summed transition distance.
	TotalDistance float64
	// Curve holds the per-transition distances, len(vectors)-1 entries.
	Curve []float64
	// Violations lists the transition indices whose distance exceeded
	// the per-step cap. Violations are reported, never clipped.
	Violations []int
	// NormalizedDistance is TotalDistance scaled by the maximum total
	// a sequence of this length could reach, capped at 1.
	NormalizedDistance float64
}

// Controller computes pacing metrics against a per-step distance cap.
type Controller struct {
	embedder    *Embedder
	capFraction float64
	concurrency int
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithCapFraction overrides the per-step cap, as a fraction of the
// maximum pair distance, in (0, 1].
func WithCapFraction(f float64) ControllerOption {
	return func(c *Controller) {
		if f > 0 && f <= 1 {
			c.capFraction = f
		}
	}
}

// WithEmbedConcurrency bounds the parallel embedding fan-out.
func WithEmbedConcurrency(n int) ControllerOption {
	return func(c *Controller) {
		if n >= 1 {
			c.concurrency = n
		}
	}
}

// NewController builds a controller with its own embedder.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		embedder:    NewEmbedder(),
		capFraction: DefaultCapFraction,
		concurrency: defaultEmbedConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed exposes the controller's embedder for single scenes.
func (c *Controller) Embed(text string) Vector {
	return c.embedder.Embed(text)
}

// StepCap is the absolute per-transition distance limit.
func (c *Controller) StepCap() float64 {
	return c.capFraction * MaxPairDistance
}

// PacingMetrics computes the distance curve over the vectors in
// presentation order. Fewer than two vectors yields zero metrics.
func (c *Controller) PacingMetrics(vectors []Vector) Metrics {
	if len(vectors) < 2 {
		return Metrics{}
	}
	m := Metrics{Curve: make([]float64, 0, len(vectors)-1)}
	stepCap := c.StepCap()
	for i := 1; i < len(vectors); i++ {
		d := Distance(vectors[i-1], vectors[i])
		m.Curve = append(m.Curve, d)
		m.TotalDistance += d
		if d > stepCap {
			m.Violations = append(m.Violations, i-1)
		}
	}
	max := float64(len(vectors)-1) * MaxPairDistance
	m.NormalizedDistance = m.TotalDistance / max
	if m.NormalizedDistance > 1 {
		m.NormalizedDistance = 1
	}
	return m
}

// EmbedScenes embeds all texts concurrently with a bounded group.
// Embedding is pure per scene, so order is restored by index. The run
// loop itself stays sequential; this serves the post-hoc analysis pass.
func (c *Controller) EmbedScenes(ctx context.Context, texts []string) ([]Vector, error) {
	vectors := make([]Vector, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			vectors[i] = c.embedder.Embed(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// SpeedFor recommends a narrative tempo from semantic density (the local
// transition distance, normalized by the step cap) and emotional
// intensity. High movement or high intensity reads fast; both low reads
// slow.
func (c *Controller) SpeedFor(transitionDistance, emotionalIntensity float64) Speed {
	density := 0.0
	if stepCap := c.StepCap(); stepCap > 0 {
		density = transitionDistance / stepCap
	}
	score := 0.6*density + 0.4*emotionalIntensity
	switch {
	case score >= 0.75:
		return SpeedFast
	case score >= 0.35:
		return SpeedModerate
	}
	return SpeedSlow
}
