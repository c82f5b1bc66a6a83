// Package glb reads binary glTF containers: a 12-byte header followed by a
// JSON chunk and an optional BIN chunk.
package glb

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/Faultbox/rigport/pkg/importerr"
)

// Container constants.
const (
	Magic       = 0x46546C67 // "glTF"
	Version     = 2
	HeaderSize  = 12
	ChunkHeader = 8

	ChunkJSON = 0x4E4F534A // "JSON"
	ChunkBIN  = 0x004E4942 // "BIN\0"
)

// Container is a decoded GLB file. JSON and BIN alias the input buffer.
type Container struct {
	Version uint32
	Length  uint32
	JSON    []byte
	BIN     []byte
}

// IsGLB reports whether data starts with the GLB magic.
func IsGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == Magic
}

// Read decodes the header and chunks of a GLB buffer.
func Read(data []byte) (*Container, error) {
	if len(data) < HeaderSize {
		return nil, importerr.At(importerr.ErrUnexpectedEndOfInput, len(data), "GLB header needs %d bytes", HeaderSize)
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != Magic {
		return nil, importerr.At(importerr.ErrMalformedSyntax, 0, "invalid GLB magic 0x%08x", magic)
	}

	c := &Container{
		Version: binary.LittleEndian.Uint32(data[4:8]),
		Length:  binary.LittleEndian.Uint32(data[8:12]),
	}
	if c.Version != Version {
		return nil, importerr.At(importerr.ErrMalformedSyntax, 4, "unsupported GLB version %d", c.Version)
	}
	if int64(c.Length) > int64(len(data)) {
		return nil, importerr.At(importerr.ErrUnexpectedEndOfInput, len(data), "header declares %d bytes, have %d", c.Length, len(data))
	}
	if c.Length < HeaderSize {
		return nil, importerr.At(importerr.ErrInconsistentAsset, 8, "declared length %d shorter than header", c.Length)
	}
	body := data[:c.Length]

	offset := HeaderSize
	chunkType, payload, next, err := readChunk(body, offset)
	if err != nil {
		return nil, err
	}
	if chunkType != ChunkJSON {
		return nil, importerr.At(importerr.ErrMalformedSyntax, offset+4, "first chunk must be JSON, got 0x%08x", chunkType)
	}
	c.JSON = payload
	offset = next

	if offset < len(body) {
		chunkType, payload, next, err = readChunk(body, offset)
		if err != nil {
			return nil, err
		}
		if chunkType != ChunkBIN {
			return nil, importerr.At(importerr.ErrMalformedSyntax, offset+4, "second chunk must be BIN, got 0x%08x", chunkType)
		}
		c.BIN = payload
		offset = next
	}

	if offset != len(body) {
		return nil, importerr.At(importerr.ErrInconsistentAsset, offset, "%d unexpected bytes after chunks", len(body)-offset)
	}
	return c, nil
}

func readChunk(body []byte, offset int) (chunkType uint32, payload []byte, next int, err error) {
	if len(body)-offset < ChunkHeader {
		return 0, nil, 0, importerr.At(importerr.ErrUnexpectedEndOfInput, offset, "truncated chunk header")
	}
	length := binary.LittleEndian.Uint32(body[offset:])
	chunkType = binary.LittleEndian.Uint32(body[offset+4:])
	start := offset + ChunkHeader
	if int64(length) > int64(len(body)-start) {
		return 0, nil, 0, importerr.At(importerr.ErrUnexpectedEndOfInput, offset, "chunk declares %d bytes, have %d", length, len(body)-start)
	}
	end := start + int(length)
	return chunkType, body[start:end], end, nil
}

// ReadFile reads and decodes a GLB file from disk.
func ReadFile(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GLB file: %w", err)
	}
	return Read(data)
}

// Encode builds a GLB buffer from a JSON document and binary payload, padding
// both chunks to 4 bytes. An empty bin omits the BIN chunk.
func Encode(json, bin []byte) []byte {
	jsonLen := pad4(len(json))
	total := HeaderSize + ChunkHeader + jsonLen
	if len(bin) > 0 {
		total += ChunkHeader + pad4(len(bin))
	}

	out := make([]byte, 0, total)
	out = binary.LittleEndian.AppendUint32(out, Magic)
	out = binary.LittleEndian.AppendUint32(out, Version)
	out = binary.LittleEndian.AppendUint32(out, uint32(total))

	out = binary.LittleEndian.AppendUint32(out, uint32(jsonLen))
	out = binary.LittleEndian.AppendUint32(out, ChunkJSON)
	out = append(out, json...)
	for i := len(json); i < jsonLen; i++ {
		out = append(out, ' ')
	}

	if len(bin) > 0 {
		binLen := pad4(len(bin))
		out = binary.LittleEndian.AppendUint32(out, uint32(binLen))
		out = binary.LittleEndian.AppendUint32(out, ChunkBIN)
		out = append(out, bin...)
		for i := len(bin); i < binLen; i++ {
			out = append(out, 0)
		}
	}
	return out
}

func pad4(n int) int {
	return (n + 3) &^ 3
}
