package terrarium

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
)

// Signature opens every raster stream.
const Signature = "TERRARIUM/RASTER"

// Version is the only supported format version.
const Version = 0

const chunkHeaderSize = 17

// Decode reads one raster from r. A signature, version or sample kind the
// decoder does not understand aborts with a SignatureError, VersionError or
// FormatError; any read failure is wrapped and returned. No partial raster is
// ever returned.
func Decode(r io.Reader) (*Raster, error) {
	var header [len(Signature) + 1 + 4 + 4 + 1]byte
	if _, err := io.ReadFull(r, header[:len(Signature)]); err != nil {
		return nil, fmt.Errorf("terrarium: read signature: %w", err)
	}
	if string(header[:len(Signature)]) != Signature {
		e := &SignatureError{}
		copy(e.Got[:], header[:len(Signature)])
		return nil, e
	}

	rest := header[len(Signature):]
	if _, err := io.ReadFull(r, rest[:1]); err != nil {
		return nil, fmt.Errorf("terrarium: read version: %w", err)
	}
	if rest[0] != Version {
		return nil, &VersionError{Version: rest[0]}
	}
	if _, err := io.ReadFull(r, rest[1:]); err != nil {
		return nil, fmt.Errorf("terrarium: read header: %w", err)
	}
	width := binary.BigEndian.Uint32(rest[1:5])
	height := binary.BigEndian.Uint32(rest[5:9])
	kind := Kind(rest[9])
	if !kind.valid() {
		return nil, &FormatError{Kind: rest[9]}
	}
	if err := checkSize(width, height); err != nil {
		return nil, err
	}

	raster := NewRaster(kind, width, height)
	full := DataView{Width: width, Height: height}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("terrarium: read chunks: %w", err)
	}
	for off := 0; off < len(data); {
		if len(data)-off < 4 {
			return nil, fmt.Errorf("terrarium: chunk length at offset %d: %w", off, io.ErrUnexpectedEOF)
		}
		n := int(binary.BigEndian.Uint32(data[off:]))
		off += 4
		if n > len(data)-off {
			return nil, fmt.Errorf("terrarium: chunk of %d bytes at offset %d: %w", n, off, io.ErrUnexpectedEOF)
		}
		if err := decodeChunk(data[off:off+n], raster, full); err != nil {
			return nil, err
		}
		off += n
	}
	return raster, nil
}

// decodeChunk reconstructs one chunk on its own grid and patches the overlap
// into raster.
func decodeChunk(chunk []byte, raster *Raster, full DataView) error {
	if len(chunk) < chunkHeaderSize {
		return fmt.Errorf("terrarium: chunk header: %w", io.ErrUnexpectedEOF)
	}
	view := DataView{
		X:      binary.BigEndian.Uint32(chunk[0:]),
		Y:      binary.BigEndian.Uint32(chunk[4:]),
		Width:  binary.BigEndian.Uint32(chunk[8:]),
		Height: binary.BigEndian.Uint32(chunk[12:]),
	}
	filter := filterFromID(chunk[16])
	if err := checkSize(view.Width, view.Height); err != nil {
		return err
	}

	xr, err := xz.NewReader(bytes.NewReader(chunk[chunkHeaderSize:]))
	if err != nil {
		return fmt.Errorf("terrarium: chunk %+v: %w", view, err)
	}
	filtered, err := readSamples(xr, raster.kind, view.Width, view.Height)
	if err != nil {
		return fmt.Errorf("terrarium: chunk %+v samples: %w", view, err)
	}

	reconstructed := NewRaster(raster.kind, view.Width, view.Height)
	if err := filter.Reconstruct(filtered, reconstructed); err != nil {
		return err
	}
	return CopyRegion(reconstructed, view, raster, full)
}

func readSamples(r io.Reader, kind Kind, width, height uint32) (*Raster, error) {
	want := int64(width) * int64(height) * int64(kind.Size())
	// grow with the payload, the declared size is untrusted
	raw, err := io.ReadAll(io.LimitReader(r, want))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) < want {
		return nil, io.ErrUnexpectedEOF
	}
	out := NewRaster(kind, width, height)
	switch kind {
	case KindUint8:
		copy(out.u8, raw)
	case KindInt8:
		for i, b := range raw {
			out.i8[i] = int8(b)
		}
	default:
		for i := range out.i16 {
			out.i16[i] = int16(binary.BigEndian.Uint16(raw[2*i:]))
		}
	}
	return out, nil
}

// DecodeFile decodes the raster stored at path.
func DecodeFile(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("terrarium: %w", err)
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}
