package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Model is a text CNN: embedding, Conv1D layers (valid padding, relu,
// optional max pooling), global max pooling, then dense layers.
type Model struct {
	embedding *mat.Dense // vocab x dim
	convs     []convLayer
	dense     []denseLayer
}

type convLayer struct {
	width  int
	kernel *mat.Dense // width*in x out
	bias   []float64
	pool   int
}

type denseLayer struct {
	kernel     *mat.Dense // in x out
	bias       []float64
	activation string
}

// weightsFile is the JSON weight export. Kernels use the Keras layout:
// conv kernels are [width][in][out], dense kernels are [in][out].
type weightsFile struct {
	Embedding [][]float64 `json:"embedding"`
	Conv      []struct {
		Kernel [][][]float64 `json:"kernel"`
		Bias   []float64     `json:"bias"`
		Pool   int           `json:"pool"`
	} `json:"conv"`
	Dense []struct {
		Kernel     [][]float64 `json:"kernel"`
		Bias       []float64   `json:"bias"`
		Activation string      `json:"activation"`
	} `json:"dense"`
}

// LoadModel reads model weights from path.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading weights: %w", err)
	}
	return ParseModel(data)
}

// ParseModel decodes and validates a weight export.
func ParseModel(data []byte) (*Model, error) {
	var f weightsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing weights: %w", err)
	}

	emb, err := denseFrom(f.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	m := &Model{embedding: emb}
	_, dim := emb.Dims()

	for i, c := range f.Conv {
		width := len(c.Kernel)
		if width == 0 || len(c.Kernel[0]) != dim {
			return nil, fmt.Errorf("conv %d: kernel input channels do not match %d", i, dim)
		}
		var rows [][]float64
		for _, tap := range c.Kernel {
			if len(tap) != dim {
				return nil, fmt.Errorf("conv %d: ragged kernel", i)
			}
			rows = append(rows, tap...)
		}
		kernel, err := denseFrom(rows)
		if err != nil {
			return nil, fmt.Errorf("conv %d: %w", i, err)
		}
		_, out := kernel.Dims()
		if len(c.Bias) != out {
			return nil, fmt.Errorf("conv %d: bias has %d entries, want %d", i, len(c.Bias), out)
		}
		m.convs = append(m.convs, convLayer{width: width, kernel: kernel, bias: c.Bias, pool: c.Pool})
		dim = out
	}

	if len(f.Dense) == 0 {
		return nil, errors.New("weights have no dense layers")
	}
	for i, d := range f.Dense {
		kernel, err := denseFrom(d.Kernel)
		if err != nil {
			return nil, fmt.Errorf("dense %d: %w", i, err)
		}
		in, out := kernel.Dims()
		if in != dim {
			return nil, fmt.Errorf("dense %d: expects %d inputs, got %d", i, in, dim)
		}
		if len(d.Bias) != out {
			return nil, fmt.Errorf("dense %d: bias has %d entries, want %d", i, len(d.Bias), out)
		}
		switch d.Activation {
		case "relu", "softmax", "linear", "":
		default:
			return nil, fmt.Errorf("dense %d: unsupported activation %q", i, d.Activation)
		}
		m.dense = append(m.dense, denseLayer{kernel: kernel, bias: d.Bias, activation: d.Activation})
		dim = out
	}
	return m, nil
}

// VocabularySize returns the number of embedding rows.
func (m *Model) VocabularySize() int {
	r, _ := m.embedding.Dims()
	return r
}

// Classes returns the width of the output layer.
func (m *Model) Classes() int {
	_, c := m.dense[len(m.dense)-1].kernel.Dims()
	return c
}

// Predict runs the forward pass over a padded sequence and returns the
// output layer activations.
func (m *Model) Predict(seq []int) ([]float64, error) {
	if len(seq) == 0 {
		return nil, errors.New("empty input sequence")
	}
	vocab, dim := m.embedding.Dims()

	x := mat.NewDense(len(seq), dim, nil)
	for i, idx := range seq {
		if idx < 0 || idx >= vocab {
			return nil, fmt.Errorf("token index %d outside embedding of %d rows", idx, vocab)
		}
		x.SetRow(i, m.embedding.RawRowView(idx))
	}

	for i, c := range m.convs {
		var err error
		if x, err = c.forward(x); err != nil {
			return nil, fmt.Errorf("conv %d: %w", i, err)
		}
	}

	// global max pooling
	_, channels := x.Dims()
	v := make([]float64, channels)
	for j := range v {
		v[j] = floats.Max(mat.Col(nil, j, x))
	}

	for _, d := range m.dense {
		v = d.forward(v)
	}
	return v, nil
}

func (c convLayer) forward(x *mat.Dense) (*mat.Dense, error) {
	steps, in := x.Dims()
	positions := steps - c.width + 1
	if positions < 1 {
		return nil, fmt.Errorf("input of %d steps is shorter than kernel width %d", steps, c.width)
	}

	windows := mat.NewDense(positions, c.width*in, nil)
	for p := range positions {
		row := windows.RawRowView(p)
		for k := range c.width {
			copy(row[k*in:(k+1)*in], x.RawRowView(p+k))
		}
	}

	var y mat.Dense
	y.Mul(windows, c.kernel)
	y.Apply(func(_, j int, v float64) float64 {
		return math.Max(0, v+c.bias[j])
	}, &y)

	if c.pool <= 1 {
		return &y, nil
	}
	return maxPool(&y, c.pool), nil
}

// maxPool applies MaxPooling1D with stride equal to size and valid padding.
func maxPool(x *mat.Dense, size int) *mat.Dense {
	steps, channels := x.Dims()
	n := max(steps/size, 1)
	out := mat.NewDense(n, channels, nil)
	for i := range n {
		end := min((i+1)*size, steps)
		for j := range channels {
			best := math.Inf(-1)
			for s := i * size; s < end; s++ {
				best = math.Max(best, x.At(s, j))
			}
			out.Set(i, j, best)
		}
	}
	return out
}

func (d denseLayer) forward(in []float64) []float64 {
	_, n := d.kernel.Dims()
	out := mat.NewVecDense(n, nil)
	out.MulVec(d.kernel.T(), mat.NewVecDense(len(in), in))

	v := make([]float64, n)
	floats.Add(v, out.RawVector().Data)
	floats.Add(v, d.bias)

	switch d.activation {
	case "relu":
		for i := range v {
			v[i] = math.Max(0, v[i])
		}
	case "softmax":
		softmax(v)
	}
	return v
}

func softmax(v []float64) {
	peak := floats.Max(v)
	for i := range v {
		v[i] = math.Exp(v[i] - peak)
	}
	floats.Scale(1/floats.Sum(v), v)
}

func denseFrom(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("empty matrix")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(r), cols)
		}
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}
