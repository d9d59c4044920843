package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/miradorstack/mirador-netforecast/internal/artifact"
	"github.com/miradorstack/mirador-netforecast/internal/features"
	"github.com/miradorstack/mirador-netforecast/internal/models"
	"github.com/miradorstack/mirador-netforecast/internal/telemetry"
	"github.com/miradorstack/mirador-netforecast/internal/utils"
)

func smallOptions() TrainOptions {
	opts := DefaultTrainOptions()
	opts.HiddenSize = 8
	opts.Layers = 1
	opts.Epochs = 4
	opts.BatchSize = 16
	opts.LearningRate = 5e-3
	opts.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return opts
}

func smallWindows(t *testing.T) (train, validation []features.Window) {
	t.Helper()
	series := telemetry.GenerateSeries(200, time.Unix(0, 0), 2*time.Second, nil, 5)
	a, b := features.Split(series, 0.8)
	train = features.Build(a, 8, 3)
	validation = features.Build(b, 8, 3)
	if len(train) == 0 || len(validation) == 0 {
		t.Fatalf("expected windows, got %d/%d", len(train), len(validation))
	}
	return train, validation
}

func trainSmall(t *testing.T) (*Artifact, []features.Window) {
	t.Helper()
	train, validation := smallWindows(t)
	a, err := Train(context.Background(), train, validation, smallOptions())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	return a, validation
}

func TestTrainProducesUsableArtifact(t *testing.T) {
	a, validation := trainSmall(t)
	if a.Arch.WindowSize != 8 || a.Arch.Horizon != 3 || a.Arch.FeatureCount != 5 {
		t.Fatalf("unexpected architecture %+v", a.Arch)
	}
	if a.Epochs < 1 || a.Epochs > 4 {
		t.Fatalf("unexpected epoch count %d", a.Epochs)
	}
	out, err := a.Predict(validation[0].Features)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 predictions, got %d", len(out))
	}
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite prediction %v", out)
		}
	}
	if a.Metrics.Threshold != 80 || a.Metrics.RMSE <= 0 {
		t.Fatalf("unexpected metrics %+v", a.Metrics)
	}
}

func TestTrainIsDeterministic(t *testing.T) {
	first, validation := trainSmall(t)
	second, _ := trainSmall(t)
	a, _ := first.Predict(validation[3].Features)
	b, _ := second.Predict(validation[3].Features)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("predictions differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestTrainEmpty(t *testing.T) {
	if _, err := Train(context.Background(), nil, nil, smallOptions()); !errors.Is(err, utils.ErrTrainingDataEmpty) {
		t.Fatalf("expected ErrTrainingDataEmpty, got %v", err)
	}
}

func TestTrainWithoutValidationUsesTrainingSet(t *testing.T) {
	train, _ := smallWindows(t)
	a, err := Train(context.Background(), train, nil, smallOptions())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if a.Metrics.RMSE <= 0 {
		t.Fatalf("expected metrics evaluated on training windows, got %+v", a.Metrics)
	}
}

func TestTrainHonoursCancellation(t *testing.T) {
	train, validation := smallWindows(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Train(ctx, train, validation, smallOptions()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPredictErrors(t *testing.T) {
	f := NewForecaster(nil)
	if _, err := f.Predict(make([][]float64, 8)); !errors.Is(err, utils.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if f.Metrics().Ready {
		t.Fatalf("expected metrics not ready without artifact")
	}

	a, validation := trainSmall(t)
	f.Swap(a)
	if _, err := f.Predict(validation[0].Features[:7]); !errors.Is(err, ErrWindowShape) {
		t.Fatalf("expected ErrWindowShape for short window, got %v", err)
	}
	bad := append([][]float64(nil), validation[0].Features...)
	bad[2] = []float64{1, 2}
	if _, err := f.Predict(bad); !errors.Is(err, ErrWindowShape) {
		t.Fatalf("expected ErrWindowShape for narrow row, got %v", err)
	}
	if !f.Metrics().Ready {
		t.Fatalf("expected metrics ready with artifact")
	}
}

func TestCodecRoundTripIsBitIdentical(t *testing.T) {
	a, validation := trainSmall(t)
	blob, err := Encode(a)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(blob[:4]) != "NFCA" || blob[4] != 1 {
		t.Fatalf("unexpected header %q", blob[:5])
	}
	b, err := Decode(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !b.TrainedAt.Equal(a.TrainedAt) || b.Metrics != a.Metrics {
		t.Fatalf("metadata changed across round trip")
	}
	for _, w := range validation {
		want, _ := a.Predict(w.Features)
		got, _ := b.Predict(w.Features)
		for i := range want {
			if math.Float64bits(want[i]) != math.Float64bits(got[i]) {
				t.Fatalf("prediction %d differs: %v vs %v", i, want[i], got[i])
			}
		}
	}
}

func TestDecodeRejectsCorruptBlobs(t *testing.T) {
	a, _ := trainSmall(t)
	blob, _ := Encode(a)

	truncated := blob[:len(blob)/2]
	badMagic := append([]byte("XXXX"), blob[4:]...)
	badVersion := append([]byte(nil), blob...)
	badVersion[4] = 9

	broken := *a
	broken.Layers = cloneLayers(a.Layers)
	broken.Layers[0].Weights = broken.Layers[0].Weights[:3]
	badShape, _ := Encode(&broken)

	nan := *a
	nan.Layers = cloneLayers(a.Layers)
	nan.Layers[1].Bias[0] = math.NaN()
	badValue, _ := Encode(&nan)

	for name, b := range map[string][]byte{
		"empty": nil, "truncated": truncated, "magic": badMagic,
		"version": badVersion, "shape": badShape, "nan": badValue,
	} {
		if _, err := Decode(b); !errors.Is(err, utils.ErrArtifactCorrupt) {
			t.Fatalf("%s: expected ErrArtifactCorrupt, got %v", name, err)
		}
	}
}

func TestRegressionAndCongestionScores(t *testing.T) {
	rmse, mae, r2 := regressionScores([]float64{50, 50, 50}, []float64{49, 51, 50})
	if r2 != 0 {
		t.Fatalf("expected r2 0 for constant actuals, got %v", r2)
	}
	if math.Abs(mae-2.0/3) > 1e-12 || math.Abs(rmse-math.Sqrt(2.0/3)) > 1e-12 {
		t.Fatalf("unexpected rmse/mae %v/%v", rmse, mae)
	}

	p, r, f1 := congestionScores([]float64{90, 85, 40, 30}, []float64{95, 60, 82, 20}, 80)
	if p != 0.5 || r != 0.5 || math.Abs(f1-0.5) > 1e-12 {
		t.Fatalf("unexpected classification scores %v %v %v", p, r, f1)
	}
	p, r, f1 = congestionScores([]float64{10}, []float64{20}, 80)
	if p != 0 || r != 0 || f1 != 0 {
		t.Fatalf("expected zero scores without positives, got %v %v %v", p, r, f1)
	}
}

func TestScalerGuardsConstantFeature(t *testing.T) {
	s := FitScaler([]features.Window{{Features: [][]float64{{5, 1}, {5, 3}}}}, 2)
	if s.Transform(5, 0) != 0 || s.Inverse(0, 0) != 5 {
		t.Fatalf("constant feature not guarded: %+v", s)
	}
	if s.Transform(2, 1) != 0.5 {
		t.Fatalf("unexpected scaling %v", s.Transform(2, 1))
	}
}

type memoryStore struct {
	blob    []byte
	loadErr error
	saveErr error
	saves   int
}

func (m *memoryStore) Load(context.Context) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.blob == nil {
		return nil, artifact.ErrArtifactNotFound
	}
	return m.blob, nil
}

func (m *memoryStore) Save(_ context.Context, blob []byte) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.blob = append([]byte(nil), blob...)
	return nil
}

func bootstrapOptions() BootstrapOptions {
	return BootstrapOptions{
		WindowSize:     8,
		Horizon:        3,
		Interval:       2 * time.Second,
		TrainingPoints: 150,
		TrainRatio:     0.8,
		SeriesSeed:     9,
		Train:          smallOptions(),
	}
}

func TestBootstrapTrainsThenLoads(t *testing.T) {
	store := &memoryStore{}
	ctx := context.Background()

	first, err := Bootstrap(ctx, store, bootstrapOptions())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !first.Trained || store.saves != 1 {
		t.Fatalf("expected training and one save, got trained=%v saves=%d", first.Trained, store.saves)
	}

	second, err := Bootstrap(ctx, store, bootstrapOptions())
	if err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	if second.Trained || store.saves != 1 {
		t.Fatalf("expected persisted artifact to be reused")
	}
	if !second.Artifact.TrainedAt.Equal(first.Artifact.TrainedAt) {
		t.Fatalf("loaded artifact differs from saved one")
	}
}

func TestBootstrapRetrainsCorruptOrMismatched(t *testing.T) {
	store := &memoryStore{blob: []byte("NFCA\x01garbage")}
	res, err := Bootstrap(context.Background(), store, bootstrapOptions())
	if err != nil || !res.Trained {
		t.Fatalf("expected retrain on corrupt artifact, got %v %v", res.Trained, err)
	}

	opts := bootstrapOptions()
	opts.Horizon = 4
	res, err = Bootstrap(context.Background(), store, opts)
	if err != nil || !res.Trained || res.Artifact.Arch.Horizon != 4 {
		t.Fatalf("expected retrain on horizon change, got %+v %v", res, err)
	}
}

func TestBootstrapRetrainsOnFeatureCountMismatch(t *testing.T) {
	train, validation := smallWindows(t)
	narrow := func(ws []features.Window) []features.Window {
		out := make([]features.Window, len(ws))
		for i, w := range ws {
			rows := make([][]float64, len(w.Features))
			for r, row := range w.Features {
				rows[r] = row[:4]
			}
			out[i] = features.Window{Features: rows, Target: w.Target}
		}
		return out
	}
	stale, err := Train(context.Background(), narrow(train), narrow(validation), smallOptions())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if stale.Arch.FeatureCount != 4 {
		t.Fatalf("expected a 4-feature artifact, got %+v", stale.Arch)
	}
	blob, err := Encode(stale)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	store := &memoryStore{blob: blob}
	res, err := Bootstrap(context.Background(), store, bootstrapOptions())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !res.Trained || res.Artifact.Arch.FeatureCount != models.FeatureCount {
		t.Fatalf("expected retrain to %d features, got trained=%v arch=%+v", models.FeatureCount, res.Trained, res.Artifact.Arch)
	}
	if store.saves != 1 {
		t.Fatalf("expected the retrained artifact to replace the stale one, saves=%d", store.saves)
	}
}

func TestBootstrapSaveFailureIsNotFatal(t *testing.T) {
	store := &memoryStore{saveErr: errors.New("disk full")}
	res, err := Bootstrap(context.Background(), store, bootstrapOptions())
	if err != nil {
		t.Fatalf("expected save failure to be logged only, got %v", err)
	}
	if res.Artifact == nil {
		t.Fatalf("expected trained artifact to be served")
	}
}

func TestBootstrapEmptyTrainingData(t *testing.T) {
	opts := bootstrapOptions()
	opts.TrainingPoints = 5
	_, err := Bootstrap(context.Background(), &memoryStore{}, opts)
	if !errors.Is(err, utils.ErrTrainingDataEmpty) {
		t.Fatalf("expected ErrTrainingDataEmpty, got %v", err)
	}
}
