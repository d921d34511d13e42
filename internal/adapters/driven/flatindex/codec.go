package flatindex

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

// Binary layout, little-endian:
//
//	magic "DAFX" | version u16 | codec u8 | pad u8 | dimension u32 |
//	count u64 | raw length u64 | stored length u64 | crc32 u32 | payload
//
// The checksum covers the raw (uncompressed) payload.
var magic = [4]byte{'D', 'A', 'F', 'X'}

const formatVersion uint16 = 1

// Codec identifiers stored in the header.
const (
	codecNone uint8 = 0
	codecLZ4  uint8 = 1
	codecZstd uint8 = 2
)

// Refuse absurd headers before allocating.
const maxPayload = 1 << 34

type fileHeader struct {
	Magic     [4]byte
	Version   uint16
	Codec     uint8
	Pad       uint8
	Dimension uint32
	Count     uint64
	RawLen    uint64
	StoredLen uint64
	Checksum  uint32
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

func codecFor(c domain.Compression) uint8 {
	switch c {
	case domain.CompressionLZ4:
		return codecLZ4
	case domain.CompressionZstd:
		return codecZstd
	default:
		return codecNone
	}
}

// encode writes the header and payload.
func encode(w io.Writer, dim int, data []float32, compression domain.Compression) (int64, error) {
	raw := make([]byte, len(data)*4)
	for i, f := range data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(f))
	}

	codec := codecFor(compression)
	stored, err := compress(raw, codec)
	if err != nil {
		return 0, fmt.Errorf("compress vectors: %w", err)
	}
	// Incompressible payloads are stored raw.
	if stored == nil || len(stored) >= len(raw) {
		codec = codecNone
		stored = raw
	}

	count := 0
	if dim > 0 {
		count = len(data) / dim
	}
	hdr := fileHeader{
		Magic:     magic,
		Version:   formatVersion,
		Codec:     codec,
		Dimension: uint32(dim),
		Count:     uint64(count),
		RawLen:    uint64(len(raw)),
		StoredLen: uint64(len(stored)),
		Checksum:  crc32.ChecksumIEEE(raw),
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		return 0, err
	}
	n, err := w.Write(buf.Bytes())
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(stored)
	return int64(n + m), err
}

func compress(raw []byte, codec uint8) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch codec {
	case codecLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		return dst[:n], nil
	case codecZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(raw, nil), nil
	default:
		return nil, nil
	}
}

// decode reads the header and payload, verifying every field.
func decode(r io.Reader) (int, []float32, error) {
	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return 0, nil, corrupt("read header", err)
	}
	if hdr.Magic != magic {
		return 0, nil, corrupt(fmt.Sprintf("bad magic %q", hdr.Magic[:]), nil)
	}
	if hdr.Version != formatVersion {
		return 0, nil, corrupt(fmt.Sprintf("unsupported version %d", hdr.Version), nil)
	}
	if hdr.Dimension == 0 && hdr.Count != 0 {
		return 0, nil, corrupt(fmt.Sprintf("%d vectors of dimension 0", hdr.Count), nil)
	}
	if hdr.Dimension > 0 && hdr.Count > maxPayload/4/uint64(hdr.Dimension) {
		return 0, nil, corrupt(fmt.Sprintf("%d vectors of dimension %d is too large", hdr.Count, hdr.Dimension), nil)
	}
	if hdr.RawLen != hdr.Count*uint64(hdr.Dimension)*4 {
		return 0, nil, corrupt(fmt.Sprintf("payload length %d does not fit %d vectors of dimension %d",
			hdr.RawLen, hdr.Count, hdr.Dimension), nil)
	}
	if hdr.RawLen > maxPayload || hdr.StoredLen > maxPayload {
		return 0, nil, corrupt("payload too large", nil)
	}

	stored := make([]byte, hdr.StoredLen)
	if _, err := io.ReadFull(r, stored); err != nil {
		return 0, nil, corrupt("read payload", err)
	}
	if extra, _ := io.Copy(io.Discard, r); extra > 0 {
		return 0, nil, corrupt(fmt.Sprintf("%d trailing bytes", extra), nil)
	}

	raw, err := decompress(stored, hdr.Codec, int(hdr.RawLen))
	if err != nil {
		return 0, nil, corrupt("decompress payload", err)
	}
	if uint64(len(raw)) != hdr.RawLen {
		return 0, nil, corrupt(fmt.Sprintf("payload is %d bytes, header says %d", len(raw), hdr.RawLen), nil)
	}
	if sum := crc32.ChecksumIEEE(raw); sum != hdr.Checksum {
		return 0, nil, corrupt(fmt.Sprintf("checksum %08x does not match %08x", sum, hdr.Checksum), nil)
	}

	data := make([]float32, len(raw)/4)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return int(hdr.Dimension), data, nil
}

func decompress(stored []byte, codec uint8, rawLen int) ([]byte, error) {
	switch codec {
	case codecNone:
		return stored, nil
	case codecLZ4:
		dst := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(stored, dst)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case codecZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		return dec.DecodeAll(stored, make([]byte, 0, rawLen))
	default:
		return nil, fmt.Errorf("unknown codec %d", codec)
	}
}

func corrupt(reason string, err error) error {
	return &domain.CorruptIndexError{Path: "vector blob", Reason: reason, Err: err}
}
