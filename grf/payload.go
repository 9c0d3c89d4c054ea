package grf

import (
	"bytes"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/xerrors"
)

// encodedPayload is the Payload Writer's output: on-disk bytes plus the
// three size fields a FileEntry records.
type encodedPayload struct {
	bytes                 []byte
	size                  uint32
	sizeCompressed        uint32
	sizeCompressedAligned uint32
}

// encodePayload streams r through DEFLATE (zlib-wrapped) at default
// compression, then — for version 1.x archives only — pads the compressed
// stream to a multiple of 8 bytes and applies the content obfuscation cycle
// derived from (relativePath, paddedLength). Version 2 payloads are
// returned as the compressor produced them.
func encodePayload(relativePath string, r io.Reader, v Version) (encodedPayload, error) {
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	size, err := io.Copy(zw, r)
	if err != nil {
		return encodedPayload{}, xerrors.Errorf("compressing %q: %w", relativePath, err)
	}
	if err := zw.Close(); err != nil {
		return encodedPayload{}, xerrors.Errorf("compressing %q: %w", relativePath, err)
	}
	sizeU32, err := toUint32(size)
	if err != nil {
		return encodedPayload{}, xerrors.Errorf("%w: %q uncompressed size: %v", ErrSerialization, relativePath, err)
	}

	data := compressed.Bytes()
	sizeCompressed, err := toUint32(int64(len(data)))
	if err != nil {
		return encodedPayload{}, xerrors.Errorf("%w: %q compressed size: %v", ErrSerialization, relativePath, err)
	}

	if !v.Obfuscated() {
		return encodedPayload{
			bytes:                 data,
			size:                  sizeU32,
			sizeCompressed:        sizeCompressed,
			sizeCompressedAligned: sizeCompressed,
		}, nil
	}

	padded := padTo8(data)
	alignedU32, err := toUint32(int64(len(padded)))
	if err != nil {
		return encodedPayload{}, xerrors.Errorf("%w: %q aligned size: %v", ErrSerialization, relativePath, err)
	}
	cycle := encryptionCycle(relativePath, len(padded))
	obfuscatePayload(padded, cycle)

	return encodedPayload{
		bytes:                 padded,
		size:                  sizeU32,
		sizeCompressed:        sizeCompressed,
		sizeCompressedAligned: alignedU32,
	}, nil
}

// padTo8 returns data zero-padded up to the next multiple of 8 bytes,
// copying only when padding is actually required.
func padTo8(data []byte) []byte {
	rem := len(data) % 8
	if rem == 0 {
		return data
	}
	padded := make([]byte, len(data)+(8-rem))
	copy(padded, data)
	return padded
}

// toUint32 casts a non-negative int64 to uint32, failing with
// ErrSerialization on overflow rather than silently truncating.
func toUint32(n int64) (uint32, error) {
	if n < 0 || n > math.MaxUint32 {
		return 0, xerrors.Errorf("%w: %d does not fit in 32 bits", ErrSerialization, n)
	}
	return uint32(n), nil
}
