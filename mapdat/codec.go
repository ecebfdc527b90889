package mapdat

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
)

// Codec compresses envelopes with zstd. Concurrency 1 gives the single-threaded
// encoder, any other value a multi-threaded one (0 means GOMAXPROCS). The frames
// are self-describing, so decoding never depends on the setting used to write.
type Codec struct {
	Concurrency int
}

// SingleThreaded is used for the final map artifact.
var SingleThreaded = Codec{Concurrency: 1}

// MultiThreaded is used for large latency sensitive writes such as the watermask cache.
var MultiThreaded = Codec{Concurrency: 0}

func (c Codec) threads() int {
	if c.Concurrency <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.Concurrency
}

// Compress returns data as a zstd stream at the default level.
func (c Codec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(c.threads()))
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress inflates a zstd stream fully into memory.
func (c Codec) Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}

// WriteFile compresses data and writes it to path, creating or truncating the file.
func (c Codec) WriteFile(path string, data []byte) error {
	compressed, err := c.Compress(data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)
	if _, err := w.Write(compressed); err != nil {
		_ = file.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		return err
	}
	log.Debugf("wrote %s (%d bytes, %d uncompressed)", path, len(compressed), len(data))
	return file.Close()
}

// ReadFile reads and decompresses the file at path.
func (c Codec) ReadFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.Decompress(raw)
}

// WriteMap serializes and compresses m to path.
func (c Codec) WriteMap(path string, m *Map) error {
	return c.WriteFile(path, EncodeMap(m))
}

// ReadMap loads a map written by WriteMap.
func (c Codec) ReadMap(path string) (*Map, error) {
	data, err := c.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeMap(data)
}

// WriteTable serializes and compresses t to path.
func (c Codec) WriteTable(path string, t WatermaskTable) error {
	return c.WriteFile(path, EncodeTable(t))
}

// ReadTable loads a table written by WriteTable.
func (c Codec) ReadTable(path string) (WatermaskTable, error) {
	data, err := c.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeTable(data)
}

// ReadMap loads a map artifact with a default codec.
func ReadMap(path string) (*Map, error) {
	return SingleThreaded.ReadMap(path)
}

// WriteMap writes a map artifact with the single-threaded codec.
func WriteMap(path string, m *Map) error {
	return SingleThreaded.WriteMap(path, m)
}
