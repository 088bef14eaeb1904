package loaders

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/exp/mmap"

	"github.com/Ameobea/go-volumetric-fog/pkg/renderer"
)

// fogbuf is the on-disk container for raw frame buffers: an 8-byte magic,
// little-endian uint32 width, height and channel count (1 for depth, 3 for
// color), then width*height*channels little-endian float32 values.
var fogbufMagic = [8]byte{'F', 'O', 'G', 'B', 'U', 'F', '0', '1'}

const (
	depthChannels = 1
	colorChannels = 3
	fogChannels   = 4
	maxBufferDim  = 16384
)

func writeBuffer(w io.Writer, width, height, channels int, data []float32) error {
	if _, err := w.Write(fogbufMagic[:]); err != nil {
		return fmt.Errorf("failed to write fogbuf magic: %w", err)
	}
	header := [3]uint32{uint32(width), uint32(height), uint32(channels)}
	if err := binary.Write(w, binary.LittleEndian, header[:]); err != nil {
		return fmt.Errorf("failed to write fogbuf header: %w", err)
	}

	raw := make([]byte, len(data)*4)
	for i, f := range data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(f))
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("failed to write fogbuf data: %w", err)
	}
	return nil
}

func readBuffer(r io.Reader, wantChannels int) (width, height int, data []float32, err error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return 0, 0, nil, fmt.Errorf("failed to read fogbuf magic: %w", err)
	}
	if magic != fogbufMagic {
		return 0, 0, nil, fmt.Errorf("not a fogbuf stream (magic %q)", magic[:])
	}

	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, header[:]); err != nil {
		return 0, 0, nil, fmt.Errorf("failed to read fogbuf header: %w", err)
	}
	w, h, channels := int(header[0]), int(header[1]), int(header[2])
	if w < 1 || h < 1 || w > maxBufferDim || h > maxBufferDim {
		return 0, 0, nil, fmt.Errorf("fogbuf dimensions %dx%d out of range [1, %d]", w, h, maxBufferDim)
	}
	if channels != wantChannels {
		return 0, 0, nil, fmt.Errorf("fogbuf has %d channels, want %d", channels, wantChannels)
	}

	raw := make([]byte, w*h*channels*4)
	if _, err := io.ReadFull(r, raw); err != nil {
		return 0, 0, nil, fmt.Errorf("failed to read fogbuf data: %w", err)
	}
	data = make([]float32, w*h*channels)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return w, h, data, nil
}

// WriteDepthBuffer writes a depth buffer as a fogbuf stream
func WriteDepthBuffer(w io.Writer, buf *renderer.DepthBuffer) error {
	return writeBuffer(w, buf.Width(), buf.Height(), depthChannels, buf.Data())
}

// ReadDepthBuffer reads a depth buffer from a fogbuf stream
func ReadDepthBuffer(r io.Reader) (*renderer.DepthBuffer, error) {
	width, height, data, err := readBuffer(r, depthChannels)
	if err != nil {
		return nil, err
	}
	return renderer.NewDepthBufferFromData(width, height, data)
}

// WriteColorBuffer writes a color buffer as a fogbuf stream
func WriteColorBuffer(w io.Writer, buf *renderer.ColorBuffer) error {
	return writeBuffer(w, buf.Width(), buf.Height(), colorChannels, buf.Data())
}

// ReadColorBuffer reads a color buffer from a fogbuf stream
func ReadColorBuffer(r io.Reader) (*renderer.ColorBuffer, error) {
	width, height, data, err := readBuffer(r, colorChannels)
	if err != nil {
		return nil, err
	}
	return renderer.NewColorBufferFromData(width, height, data)
}

// WriteFogImage writes a rendered fog pass (RGBA, float32 precision) as a
// fogbuf stream. March states and step counts are not stored.
func WriteFogImage(w io.Writer, img *renderer.FogImage) error {
	rgba := img.RGBAData()
	data := make([]float32, len(rgba))
	for i, v := range rgba {
		data[i] = float32(v)
	}
	return writeBuffer(w, img.Width(), img.Height(), fogChannels, data)
}

// ReadFogImage reads a fog pass from a fogbuf stream
func ReadFogImage(r io.Reader) (*renderer.FogImage, error) {
	width, height, data, err := readBuffer(r, fogChannels)
	if err != nil {
		return nil, err
	}
	rgba := make([]float64, len(data))
	for i, v := range data {
		rgba[i] = float64(v)
	}
	return renderer.NewFogImageFromRGBA(width, height, rgba)
}

// SaveDepthBufferFile writes a depth buffer to a fogbuf file at path
func SaveDepthBufferFile(path string, buf *renderer.DepthBuffer) error {
	return saveFile(path, func(w io.Writer) error { return WriteDepthBuffer(w, buf) })
}

// SaveColorBufferFile writes a color buffer to a fogbuf file at path
func SaveColorBufferFile(path string, buf *renderer.ColorBuffer) error {
	return saveFile(path, func(w io.Writer) error { return WriteColorBuffer(w, buf) })
}

// SaveFogImageFile writes a fog pass to a fogbuf file at path
func SaveFogImageFile(path string, img *renderer.FogImage) error {
	return saveFile(path, func(w io.Writer) error { return WriteFogImage(w, img) })
}

// LoadFogImageFile reads a fog pass from a fogbuf file
func LoadFogImageFile(path string) (*renderer.FogImage, error) {
	r, closer, err := openMapped(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return ReadFogImage(r)
}

// LoadDepthBufferFile reads a depth buffer from a fogbuf file. The file is
// memory-mapped, so multi-megabyte buffers skip the double copy through a
// read buffer.
func LoadDepthBufferFile(path string) (*renderer.DepthBuffer, error) {
	r, closer, err := openMapped(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return ReadDepthBuffer(r)
}

// LoadColorBufferFile reads a color buffer from a fogbuf file
func LoadColorBufferFile(path string) (*renderer.ColorBuffer, error) {
	r, closer, err := openMapped(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return ReadColorBuffer(r)
}

func saveFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return err
	}
	return f.Close()
}

// openMapped memory-maps path and wraps it as a sequential reader
func openMapped(path string) (io.Reader, io.Closer, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to map %s: %w", path, err)
	}
	return io.NewSectionReader(r, 0, int64(r.Len())), r, nil
}
