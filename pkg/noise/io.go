package noise

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
)

// fogvol is the on-disk container for baked noise volumes: an 8-byte magic,
// a little-endian uint32 lattice size, then size³ little-endian float32
// values in a single zstd frame.
var fogvolMagic = [8]byte{'F', 'O', 'G', 'V', 'O', 'L', '0', '1'}

const maxVolumeSize = 1024

// Save writes the volume as a zstd-compressed fogvol stream
func (v *Volume) Save(w io.Writer) error {
	if _, err := w.Write(fogvolMagic[:]); err != nil {
		return fmt.Errorf("failed to write fogvol magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(v.size)); err != nil {
		return fmt.Errorf("failed to write fogvol header: %w", err)
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}

	raw := make([]byte, len(v.data)*4)
	for i, f := range v.data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(f))
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return fmt.Errorf("failed to write fogvol data: %w", err)
	}
	return enc.Close()
}

// SaveFile writes the volume to a fogvol file at path
func (v *Volume) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := v.Save(f); err != nil {
		return err
	}
	return f.Close()
}

// LoadVolume reads a volume from a fogvol stream
func LoadVolume(r io.Reader) (*Volume, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("failed to read fogvol magic: %w", err)
	}
	if magic != fogvolMagic {
		return nil, fmt.Errorf("not a fogvol stream (magic %q)", magic[:])
	}

	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, fmt.Errorf("failed to read fogvol header: %w", err)
	}
	if size < 2 || size > maxVolumeSize {
		return nil, fmt.Errorf("fogvol lattice size %d out of range [2, %d]", size, maxVolumeSize)
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	v, err := newVolume(int(size))
	if err != nil {
		return nil, err
	}
	raw := make([]byte, len(v.data)*4)
	if _, err := io.ReadFull(dec, raw); err != nil {
		return nil, fmt.Errorf("failed to read fogvol data: %w", err)
	}
	for i := range v.data {
		v.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return v, nil
}

// LoadVolumeFile reads a volume from a fogvol file at path
func LoadVolumeFile(path string) (*Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return LoadVolume(f)
}
