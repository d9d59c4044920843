package forecast

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Architecture fixes the shape of the forecaster network.
type Architecture struct {
	FeatureCount int
	WindowSize   int
	HiddenSize   int
	Layers       int
	Horizon      int
}

// InputSize is the length of the flattened input window.
func (a Architecture) InputSize() int { return a.FeatureCount * a.WindowSize }

// shapes returns (in, out) for every dense layer: Layers hidden layers then the linear head.
func (a Architecture) shapes() [][2]int {
	out := make([][2]int, 0, a.Layers+1)
	in := a.InputSize()
	for i := 0; i < a.Layers; i++ {
		out = append(out, [2]int{in, a.HiddenSize})
		in = a.HiddenSize
	}
	return append(out, [2]int{in, a.Horizon})
}

// Layer is a dense layer with row-major weights of shape [Out][In]. The flat slices are
// what the codec persists; weights() views them as a matrix without copying.
type Layer struct {
	In      int
	Out     int
	Weights []float64
	Bias    []float64
}

func newLayer(in, out int) Layer {
	return Layer{In: in, Out: out, Weights: make([]float64, in*out), Bias: make([]float64, out)}
}

func (l Layer) weights() *mat.Dense { return mat.NewDense(l.Out, l.In, l.Weights) }

// affine computes x·Wᵀ + b for a batch of row vectors.
func (l Layer) affine(x mat.Matrix) *mat.Dense {
	rows, _ := x.Dims()
	z := mat.NewDense(rows, l.Out, nil)
	z.Mul(x, l.weights().T())
	for i := 0; i < rows; i++ {
		floats.Add(z.RawRowView(i), l.Bias)
	}
	return z
}

func relu(_, _ int, v float64) float64 { return math.Max(v, 0) }

// initLayers draws He-uniform weights and zero biases.
func initLayers(arch Architecture, rng *rand.Rand) []Layer {
	shapes := arch.shapes()
	layers := make([]Layer, len(shapes))
	for i, s := range shapes {
		l := newLayer(s[0], s[1])
		limit := math.Sqrt(6 / float64(s[0]))
		for j := range l.Weights {
			l.Weights[j] = (rng.Float64()*2 - 1) * limit
		}
		layers[i] = l
	}
	return layers
}

func zeroLike(layers []Layer) []Layer {
	out := make([]Layer, len(layers))
	for i, l := range layers {
		out[i] = newLayer(l.In, l.Out)
	}
	return out
}

func cloneLayers(layers []Layer) []Layer {
	out := make([]Layer, len(layers))
	for i, l := range layers {
		out[i] = Layer{
			In:      l.In,
			Out:     l.Out,
			Weights: append([]float64(nil), l.Weights...),
			Bias:    append([]float64(nil), l.Bias...),
		}
	}
	return out
}

// forward runs a batch of flattened windows, one per row, and returns the head outputs.
func forward(layers []Layer, x *mat.Dense) *mat.Dense {
	return activations(layers, x)[len(layers)]
}

// activations returns the input followed by every layer output; hidden outputs are
// post-ReLU.
func activations(layers []Layer, x *mat.Dense) []*mat.Dense {
	acts := make([]*mat.Dense, len(layers)+1)
	acts[0] = x
	for l, layer := range layers {
		z := layer.affine(acts[l])
		if l < len(layers)-1 {
			z.Apply(relu, z)
		}
		acts[l+1] = z
	}
	return acts
}

// backward writes the batch parameter gradients into grads given dL/d(output), one row
// per sample.
func backward(layers, grads []Layer, acts []*mat.Dense, delta *mat.Dense) {
	for l := len(layers) - 1; l >= 0; l-- {
		layer := layers[l]
		in := acts[l]
		g := grads[l]
		rows, _ := delta.Dims()

		mat.NewDense(layer.Out, layer.In, g.Weights).Mul(delta.T(), in)
		clear(g.Bias)
		for i := 0; i < rows; i++ {
			floats.Add(g.Bias, delta.RawRowView(i))
		}
		if l == 0 {
			return
		}

		prev := mat.NewDense(rows, layer.In, nil)
		prev.Mul(delta, layer.weights())
		prev.Apply(func(i, j int, v float64) float64 {
			if in.At(i, j) <= 0 {
				return 0
			}
			return v
		}, prev)
		delta = prev
	}
}

// stackRows copies the selected rows of src into a new matrix, in order.
func stackRows(src *mat.Dense, idx []int) *mat.Dense {
	_, cols := src.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for i, r := range idx {
		out.SetRow(i, src.RawRowView(r))
	}
	return out
}

// adam implements the Adam optimiser over a layer stack.
type adam struct {
	lr, beta1, beta2, eps float64
	step                  int
	m, v                  []Layer
}

func newAdam(layers []Layer, lr float64) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8, m: zeroLike(layers), v: zeroLike(layers)}
}

func (a *adam) update(params, grads []Layer) {
	a.step++
	bc1 := 1 - math.Pow(a.beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.beta2, float64(a.step))
	for i := range params {
		a.apply(params[i].Weights, grads[i].Weights, a.m[i].Weights, a.v[i].Weights, bc1, bc2)
		a.apply(params[i].Bias, grads[i].Bias, a.m[i].Bias, a.v[i].Bias, bc1, bc2)
	}
}

func (a *adam) apply(p, g, m, v []float64, bc1, bc2 float64) {
	floats.Scale(a.beta1, m)
	floats.AddScaled(m, 1-a.beta1, g)
	floats.Scale(a.beta2, v)
	for j, gj := range g {
		v[j] += (1 - a.beta2) * gj * gj
		p[j] -= a.lr * (m[j] / bc1) / (math.Sqrt(v[j]/bc2) + a.eps)
	}
}
