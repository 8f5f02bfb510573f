package nnue

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/frand"
)

// Weight file format constants
const (
	MagicNumber = 0x4B4E5553 // "SUNK" little-endian
	Version     = 2
)

// Architecture describes the network topology. Its hash is stored in the
// weight file header so a file built for another topology is rejected.
const Architecture = "HalfKPHand[81x1535]->128x2->32->32->1;buckets=8;shift=6/4"

// ErrEvaluatorFile is returned for a missing, truncated or incompatible weight file.
var ErrEvaluatorFile = errors.New("evaluator file")

// FileHeader is the header of the weight file, little-endian.
type FileHeader struct {
	Magic       uint32
	Version     uint32
	FeatureSize uint32
	L1Size      uint32
	L2Size      uint32
	L3Size      uint32
	Buckets     uint32
	ArchHash    uint64
}

// ArchHash returns the hash of Architecture.
func ArchHash() uint64 {
	return xxhash.Sum64String(Architecture)
}

func expectedHeader() FileHeader {
	return FileHeader{
		Magic:       MagicNumber,
		Version:     Version,
		FeatureSize: NumFeatures,
		L1Size:      L1Size,
		L2Size:      L2Size,
		L3Size:      L3Size,
		Buckets:     NumBuckets,
		ArchHash:    ArchHash(),
	}
}

func (h FileHeader) check() error {
	want := expectedHeader()
	switch {
	case h.Magic != want.Magic:
		return fmt.Errorf("%w: bad magic %#x", ErrEvaluatorFile, h.Magic)
	case h.Version != want.Version:
		return fmt.Errorf("%w: unsupported version %d, want %d", ErrEvaluatorFile, h.Version, want.Version)
	case h.FeatureSize != want.FeatureSize, h.L1Size != want.L1Size, h.L2Size != want.L2Size,
		h.L3Size != want.L3Size, h.Buckets != want.Buckets:
		return fmt.Errorf("%w: dimensions %d/%d/%d/%d x%d, want %d/%d/%d/%d x%d", ErrEvaluatorFile,
			h.FeatureSize, h.L1Size, h.L2Size, h.L3Size, h.Buckets,
			want.FeatureSize, want.L1Size, want.L2Size, want.L3Size, want.Buckets)
	case h.ArchHash != want.ArchHash:
		return fmt.Errorf("%w: architecture hash %#x, want %#x", ErrEvaluatorFile, h.ArchHash, want.ArchHash)
	}
	return nil
}

// LoadFile reads a network from a weight file.
func LoadFile(filename string) (*Network, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEvaluatorFile, err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a network from r. The stream must end right after the last weight.
//
// Layout after the header:
//   - FTBias: L1Size int16
//   - FTWeights: NumFeatures*L1Size int16
//   - per bucket: B1, W1, B2, W2, B3, W3
func Load(r io.Reader) (*Network, error) {
	br := bufio.NewReaderSize(r, 1<<16)

	var header FileHeader
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrEvaluatorFile, err)
	}
	if err := header.check(); err != nil {
		return nil, err
	}

	n := NewNetwork()
	if err := binary.Read(br, binary.LittleEndian, &n.FTBias); err != nil {
		return nil, fmt.Errorf("%w: read feature bias: %w", ErrEvaluatorFile, err)
	}
	if err := binary.Read(br, binary.LittleEndian, n.FTWeights); err != nil {
		return nil, fmt.Errorf("%w: read feature weights: %w", ErrEvaluatorFile, err)
	}
	for b := range n.Stacks {
		if err := binary.Read(br, binary.LittleEndian, &n.Stacks[b]); err != nil {
			return nil, fmt.Errorf("%w: read layer stack %d: %w", ErrEvaluatorFile, b, err)
		}
	}

	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after weights", ErrEvaluatorFile)
	}
	return n, nil
}

// Save writes the network in the format Load reads.
func (n *Network) Save(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 1<<16)
	header := expectedHeader()
	if err := binary.Write(bw, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, &n.FTBias); err != nil {
		return fmt.Errorf("write feature bias: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, n.FTWeights); err != nil {
		return fmt.Errorf("write feature weights: %w", err)
	}
	for b := range n.Stacks {
		if err := binary.Write(bw, binary.LittleEndian, &n.Stacks[b]); err != nil {
			return fmt.Errorf("write layer stack %d: %w", b, err)
		}
	}
	return bw.Flush()
}

// SaveFile writes the network to filename.
func (n *Network) SaveFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := n.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RandomNetwork returns a network with small deterministic pseudo-random
// weights. It plays poorly and is meant for tests and benchmarks.
func RandomNetwork(seed uint64) *Network {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	rng := frand.NewCustom(key[:], 1024, 12)

	n := NewNetwork()

	buf := make([]byte, len(n.FTWeights))
	rng.Read(buf)
	for i, b := range buf {
		n.FTWeights[i] = int16(int8(b)) >> 2 // -32..31
	}
	for i := range n.FTBias {
		n.FTBias[i] = int16(rng.Intn(128))
	}

	small := func() int8 { return int8(rng.Intn(64) - 32) }
	for b := range n.Stacks {
		ls := &n.Stacks[b]
		for j := range ls.W1 {
			ls.B1[j] = int32(rng.Intn(4096)) - 1024
			for i := range ls.W1[j] {
				ls.W1[j][i] = small()
			}
		}
		for j := range ls.W2 {
			ls.B2[j] = int32(rng.Intn(4096)) - 1024
			for i := range ls.W2[j] {
				ls.W2[j][i] = small()
			}
		}
		ls.B3 = int32(rng.Intn(8192)) - 4096
		for i := range ls.W3 {
			ls.W3[i] = small()
		}
	}
	return n
}
