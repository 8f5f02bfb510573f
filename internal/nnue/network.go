package nnue

// Network dimensions.
const (
	L1Size     = 128 // feature transformer output per perspective
	L2Size     = 32
	L3Size     = 32
	NumBuckets = 8 // layer stacks selected by piece count

	// Quantization
	ActivationMax = 127
	WeightShift   = 6 // hidden layer outputs are scaled down by 2^6
	OutputShift   = 4
)

// LayerStack holds the dense layers of one bucket. Weights are stored
// output-major so each output is one dot product over a contiguous row.
type LayerStack struct {
	B1 [L2Size]int32
	W1 [L2Size][2 * L1Size]int8
	B2 [L3Size]int32
	W2 [L3Size][L2Size]int8
	B3 int32
	W3 [L3Size]int8
}

// Network holds every weight of the evaluator.
type Network struct {
	FTBias    [L1Size]int16
	FTWeights []int16 // NumFeatures rows of L1Size
	Stacks    [NumBuckets]LayerStack
}

// NewNetwork allocates a network with zero weights.
func NewNetwork() *Network {
	return &Network{FTWeights: make([]int16, NumFeatures*L1Size)}
}

func (n *Network) ftRow(f int) []int16 {
	return n.FTWeights[f*L1Size : (f+1)*L1Size : (f+1)*L1Size]
}

// Bucket selects the layer stack for a position with count pieces on the board.
func Bucket(count int) int {
	b := (count - 1) / 5
	if b < 0 {
		return 0
	}
	if b >= NumBuckets {
		return NumBuckets - 1
	}
	return b
}

// kernels computes the hot loops. The scalar and accelerated sets must give
// bit-identical results.
type kernels struct {
	addRow func(acc *[L1Size]int16, row []int16)
	subRow func(acc *[L1Size]int16, row []int16)
	dot    func(a []uint8, w []int8) int32
}

var scalarKernels = kernels{addRow: addRowScalar, subRow: subRowScalar, dot: dotScalar}

func defaultKernels() kernels {
	if HasAcceleration() {
		return accelKernels
	}
	return scalarKernels
}

func addRowScalar(acc *[L1Size]int16, row []int16) {
	for i := range acc {
		acc[i] += row[i]
	}
}

func subRowScalar(acc *[L1Size]int16, row []int16) {
	for i := range acc {
		acc[i] -= row[i]
	}
}

func dotScalar(a []uint8, w []int8) int32 {
	var sum int32
	for i := range a {
		sum += int32(a[i]) * int32(w[i])
	}
	return sum
}

func clip(x int32) uint8 {
	if x < 0 {
		return 0
	}
	if x > ActivationMax {
		return ActivationMax
	}
	return uint8(x)
}

// forward runs the dense layers of one bucket. us and them are the
// feature transformer outputs of the side to move and its opponent.
func (n *Network) forward(us, them *[L1Size]int16, bucket int, k kernels) int {
	ls := &n.Stacks[bucket]

	var in [2 * L1Size]uint8
	for i := 0; i < L1Size; i++ {
		in[i] = clip(int32(us[i]))
		in[L1Size+i] = clip(int32(them[i]))
	}

	var h1 [L2Size]uint8
	for j := 0; j < L2Size; j++ {
		h1[j] = clip((ls.B1[j] + k.dot(in[:], ls.W1[j][:])) >> WeightShift)
	}

	var h2 [L3Size]uint8
	for j := 0; j < L3Size; j++ {
		h2[j] = clip((ls.B2[j] + k.dot(h1[:], ls.W2[j][:])) >> WeightShift)
	}

	out := ls.B3 + k.dot(h2[:], ls.W3[:])
	return int(out >> OutputShift)
}
