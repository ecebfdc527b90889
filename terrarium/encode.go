package terrarium

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// Encoder writes a raster stream chunk by chunk.
type Encoder struct {
	w             io.Writer
	kind          Kind
	width, height uint32
	wroteHeader   bool
}

// NewEncoder prepares a stream for a width x height raster of the given kind.
// The header is written with the first chunk, or by Close for an empty raster.
func NewEncoder(w io.Writer, kind Kind, width, height uint32) *Encoder {
	return &Encoder{w: w, kind: kind, width: width, height: height}
}

func (e *Encoder) header() error {
	if e.wroteHeader {
		return nil
	}
	buf := make([]byte, 0, len(Signature)+10)
	buf = append(buf, Signature...)
	buf = append(buf, Version)
	buf = binary.BigEndian.AppendUint32(buf, e.width)
	buf = binary.BigEndian.AppendUint32(buf, e.height)
	buf = append(buf, byte(e.kind))
	if _, err := e.w.Write(buf); err != nil {
		return err
	}
	e.wroteHeader = true
	return nil
}

// WriteChunk filters chunk and writes it to be placed at (x, y). The chunk may
// extend past the raster; a decoder drops the outside part.
func (e *Encoder) WriteChunk(chunk *Raster, x, y uint32, filter Filter) error {
	if chunk.kind != e.kind {
		return &KindMismatchError{Src: chunk.kind, Dst: e.kind, Op: "encode"}
	}
	if err := e.header(); err != nil {
		return err
	}

	residual := NewRaster(chunk.kind, chunk.width, chunk.height)
	if err := filter.Predict(chunk, residual); err != nil {
		return err
	}

	var payload bytes.Buffer
	for _, v := range []uint32{x, y, chunk.width, chunk.height} {
		_ = binary.Write(&payload, binary.BigEndian, v)
	}
	payload.WriteByte(byte(filter))
	xw, err := xz.NewWriter(&payload)
	if err != nil {
		return err
	}
	if _, err := xw.Write(residual.bytes()); err != nil {
		return err
	}
	if err := xw.Close(); err != nil {
		return err
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(payload.Len()))
	if _, err := e.w.Write(prefix[:]); err != nil {
		return err
	}
	_, err = e.w.Write(payload.Bytes())
	return err
}

// Close writes the header if no chunk was written.
func (e *Encoder) Close() error {
	return e.header()
}

// Encode writes r as a grid of size x size chunks, all using filter.
func Encode(w io.Writer, r *Raster, size uint32, filter Filter) error {
	if size == 0 {
		return fmt.Errorf("terrarium: chunk size must be positive")
	}
	enc := NewEncoder(w, r.kind, r.width, r.height)
	whole := DataView{Width: r.width, Height: r.height}
	for y := uint32(0); y < r.height; y += size {
		for x := uint32(0); x < r.width; x += size {
			cw, ch := min(size, r.width-x), min(size, r.height-y)
			chunk := NewRaster(r.kind, cw, ch)
			if err := CopyRegion(r, whole, chunk, DataView{X: x, Y: y, Width: cw, Height: ch}); err != nil {
				return err
			}
			if err := enc.WriteChunk(chunk, x, y, filter); err != nil {
				return err
			}
		}
	}
	return enc.Close()
}

// bytes returns the samples in stream order (big-endian words for i16).
func (r *Raster) bytes() []byte {
	switch r.kind {
	case KindUint8:
		return r.u8
	case KindInt8:
		out := make([]byte, len(r.i8))
		for i, v := range r.i8 {
			out[i] = byte(v)
		}
		return out
	default:
		out := make([]byte, 0, 2*len(r.i16))
		for _, v := range r.i16 {
			out = binary.BigEndian.AppendUint16(out, uint16(v))
		}
		return out
	}
}
