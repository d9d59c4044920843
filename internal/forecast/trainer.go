package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/miradorstack/mirador-netforecast/internal/features"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

// TrainOptions controls model size and the optimisation loop.
type TrainOptions struct {
	HiddenSize   int
	Layers       int
	Epochs       int
	BatchSize    int
	LearningRate float64
	Patience     int
	MinDelta     float64
	Seed         int64
	Threshold    float64
	Now          func() time.Time
}

// DefaultTrainOptions mirrors the forecaster config defaults.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		HiddenSize:   64,
		Layers:       2,
		Epochs:       40,
		BatchSize:    64,
		LearningRate: 1e-3,
		Patience:     8,
		MinDelta:     1e-4,
		Seed:         42,
		Threshold:    80,
	}
}

// Train fits a new artifact on train and scores it on validation. With no validation
// windows the training set is scored instead. Training is deterministic for a given seed.
func Train(ctx context.Context, train, validation []features.Window, opts TrainOptions) (*Artifact, error) {
	if len(train) == 0 {
		return nil, utils.ErrTrainingDataEmpty
	}
	if len(validation) == 0 {
		validation = train
	}
	opts = withTrainDefaults(opts)

	arch := Architecture{
		WindowSize: len(train[0].Features),
		HiddenSize: opts.HiddenSize,
		Layers:     opts.Layers,
		Horizon:    len(train[0].Target),
	}
	if arch.WindowSize > 0 {
		arch.FeatureCount = len(train[0].Features[0])
	}
	if arch.WindowSize == 0 || arch.FeatureCount == 0 || arch.Horizon == 0 {
		return nil, fmt.Errorf("empty first window: %w", ErrWindowShape)
	}

	scaler := FitScaler(train, arch.FeatureCount)
	xTrain, yTrain, err := encodeWindows(train, arch, scaler)
	if err != nil {
		return nil, fmt.Errorf("training windows: %w", err)
	}
	xVal, yVal, err := encodeWindows(validation, arch, scaler)
	if err != nil {
		return nil, fmt.Errorf("validation windows: %w", err)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	layers := initLayers(arch, rng)
	grads := zeroLike(layers)
	optimiser := newAdam(layers, opts.LearningRate)

	best := math.Inf(1)
	bestLayers := cloneLayers(layers)
	stale := 0
	epochs := 0

	samples, _ := xTrain.Dims()
	order := make([]int, samples)
	for i := range order {
		order[i] = i
	}
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		epochs++
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for start := 0; start < len(order); start += opts.BatchSize {
			batch := order[start:min(start+opts.BatchSize, len(order))]
			acts := activations(layers, stackRows(xTrain, batch))
			delta := mat.NewDense(len(batch), arch.Horizon, nil)
			delta.Sub(acts[len(layers)], stackRows(yTrain, batch))
			delta.Scale(2/float64(len(batch)*arch.Horizon), delta)
			backward(layers, grads, acts, delta)
			optimiser.update(layers, grads)
		}

		loss := meanSquaredError(layers, xVal, yVal)
		if loss < best-opts.MinDelta {
			best = loss
			bestLayers = cloneLayers(layers)
			stale = 0
			continue
		}
		stale++
		if stale >= opts.Patience {
			break
		}
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	artifact := &Artifact{
		Arch:      arch,
		Layers:    bestLayers,
		Scaler:    scaler,
		TrainedAt: now().UTC(),
		Epochs:    epochs,
	}
	artifact.Metrics = Evaluate(artifact, validation, opts.Threshold)
	return artifact, nil
}

func withTrainDefaults(opts TrainOptions) TrainOptions {
	def := DefaultTrainOptions()
	if opts.HiddenSize <= 0 {
		opts.HiddenSize = def.HiddenSize
	}
	if opts.Layers <= 0 {
		opts.Layers = def.Layers
	}
	if opts.Epochs <= 0 {
		opts.Epochs = def.Epochs
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = def.LearningRate
	}
	if opts.Patience <= 0 {
		opts.Patience = def.Patience
	}
	if opts.MinDelta < 0 {
		opts.MinDelta = def.MinDelta
	}
	return opts
}

// encodeWindows flattens and scales windows into network inputs and scaled targets, one
// row per window.
func encodeWindows(windows []features.Window, arch Architecture, scaler Scaler) (*mat.Dense, *mat.Dense, error) {
	xs := mat.NewDense(len(windows), arch.InputSize(), nil)
	ys := mat.NewDense(len(windows), arch.Horizon, nil)
	for i, w := range windows {
		if len(w.Features) != arch.WindowSize || len(w.Target) != arch.Horizon {
			return nil, nil, fmt.Errorf("window %d: %w", i, ErrWindowShape)
		}
		x := xs.RawRowView(i)
		for r, row := range w.Features {
			if len(row) != arch.FeatureCount {
				return nil, nil, fmt.Errorf("window %d: %w", i, ErrWindowShape)
			}
			for j, v := range row {
				x[r*arch.FeatureCount+j] = scaler.Transform(v, j)
			}
		}
		y := ys.RawRowView(i)
		for k, v := range w.Target {
			y[k] = scaler.Transform(v, utilizationColumn)
		}
	}
	return xs, ys, nil
}

func meanSquaredError(layers []Layer, xs, ys *mat.Dense) float64 {
	rows, cols := ys.Dims()
	var diff mat.Dense
	diff.Sub(forward(layers, xs), ys)
	norm := mat.Norm(&diff, 2)
	return norm * norm / float64(rows*cols)
}
