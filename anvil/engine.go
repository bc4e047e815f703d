package anvil

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anvilkeep/anvilstore/compress"
)

const (
	sectorSize = 4096
	// headerSectors is sector 0 (the offset table) plus sector 1 (the
	// timestamp table); chunk payloads start at sector 2.
	headerSectors = 2

	compressionGzip = 1
	compressionZlib = 2

	// chunkHeaderSize is the 4-byte big-endian length field plus the
	// 1-byte compression-type field that precedes every chunk payload.
	chunkHeaderSize = 5
)

// Engine reads and overwrites chunk payloads within a folder of region
// files. A zero Engine is not valid; use NewEngine.
type Engine struct {
	dir  string
	opts Options
}

// NewEngine returns an Engine rooted at dir, which must already contain (or
// will contain) this world's .mca region files.
func NewEngine(dir string, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{dir: dir, opts: o}
}

func (e *Engine) regionPath(id RegionID) string {
	return filepath.Join(e.dir, fmt.Sprintf("r.%d.%d.mca", id.X, id.Z))
}

// LoadChunk reads the decompressed payload bytes for one chunk. present is
// false with a nil error when the chunk's slot in the offset table is all
// zero — "not yet generated" is a successful, distinguished result, not an
// error.
func (e *Engine) LoadChunk(id ChunkID) (payload []byte, present bool, err error) {
	region := ChunkToRegion(id.X, id.Z)
	path := e.regionPath(region)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
		}
		return nil, false, fmt.Errorf("%w: %s: %v", ErrAccess, path, err)
	}
	defer f.Close()

	slot := localIndex(id)
	word, err := readOffsetWord(f, slot)
	if err != nil {
		return nil, false, err
	}
	offsetSectors, _ := decodeOffsetWord(word)
	if offsetSectors == 0 {
		e.opts.log.Debug("chunk not present", "region", path, "chunk", id)
		return nil, false, nil
	}

	base := int64(offsetSectors) * sectorSize

	var header [chunkHeaderSize]byte
	if _, err := f.ReadAt(header[:], base); err != nil {
		return nil, false, fmt.Errorf("%w: chunk header at %s: %v", ErrRead, path, err)
	}
	length := binary.BigEndian.Uint32(header[0:4])
	compressionType := header[4]
	if length == 0 || (compressionType != compressionGzip && compressionType != compressionZlib) {
		return nil, false, fmt.Errorf("%w: %s chunk (%d,%d): length=%d compressionType=%d",
			ErrInvalidHeader, path, id.X, id.Z, length, compressionType)
	}

	// length counts the bytes following the 4-byte length field, including
	// the compression-type byte already consumed above, so the body is
	// length-1 bytes.
	bodyLen := int64(length) - 1
	body := make([]byte, bodyLen)
	if _, err := f.ReadAt(body, base+chunkHeaderSize); err != nil {
		return nil, false, fmt.Errorf("%w: chunk body at %s: %v", ErrRead, path, err)
	}

	decompressed, err := compress.Inflate(body, compressionType == compressionZlib)
	if err != nil {
		return nil, false, err
	}

	e.opts.log.Debug("loaded chunk", "region", path, "chunk", id, "bytes", len(decompressed))
	return decompressed, true, nil
}

// OverwriteChunk replaces a chunk's compressed body in place, keeping its
// existing compression framing. It never grows a chunk beyond its existing
// sector allocation: if the recompressed payload would not fit,
// ErrInsufficientSpace is returned and the file is left byte-identical to
// before the call. The region file must already exist and already contain
// this chunk's slot; this core never creates a region file or allocates a
// chunk's first sector run (see SaveRegion for populating a new file).
func (e *Engine) OverwriteChunk(id ChunkID, payload []byte) error {
	region := ChunkToRegion(id.X, id.Z)
	path := e.regionPath(region)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
		}
		return fmt.Errorf("%w: %s: %v", ErrAccess, path, err)
	}
	defer f.Close()

	slot := localIndex(id)
	word, err := readOffsetWord(f, slot)
	if err != nil {
		return err
	}
	offsetSectors, allocatedSectors := decodeOffsetWord(word)
	capacity := int64(allocatedSectors)*sectorSize - chunkHeaderSize
	base := int64(offsetSectors) * sectorSize

	var existingCompressionType byte
	if offsetSectors != 0 {
		var header [chunkHeaderSize]byte
		if _, err := f.ReadAt(header[:], base); err != nil {
			return fmt.Errorf("%w: chunk header at %s: %v", ErrRead, path, err)
		}
		existingCompressionType = header[4]
		if existingCompressionType != compressionGzip && existingCompressionType != compressionZlib {
			return fmt.Errorf("%w: %s chunk (%d,%d): compressionType=%d",
				ErrInvalidHeader, path, id.X, id.Z, existingCompressionType)
		}
	}
	// offsetSectors == 0 means this slot has no existing allocation at
	// all; capacity is then <= 0 and every payload is refused below,
	// without ever treating sector-0 offset-table bytes as a chunk
	// header.

	compressed, err := compress.Deflate(payload, existingCompressionType == compressionZlib)
	if err != nil {
		return err
	}

	if int64(len(compressed))+1 > capacity {
		e.opts.log.Warn("overwrite refused: insufficient space", "region", path, "chunk", id,
			"need", len(compressed)+1, "have", capacity)
		return fmt.Errorf("%w: chunk (%d,%d) needs %d bytes, has %d",
			ErrInsufficientSpace, id.X, id.Z, len(compressed)+1, capacity)
	}

	var header [chunkHeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(compressed)+1))
	header[4] = existingCompressionType
	if _, err := f.WriteAt(header[:], base); err != nil {
		return fmt.Errorf("%w: chunk header at %s: %v", ErrWrite, path, err)
	}
	if _, err := f.WriteAt(compressed, base+chunkHeaderSize); err != nil {
		return fmt.Errorf("%w: chunk body at %s: %v", ErrWrite, path, err)
	}

	if e.opts.updateTimestamps {
		if err := e.writeTimestamp(f, slot); err != nil {
			return err
		}
	}

	e.opts.log.Debug("overwrote chunk", "region", path, "chunk", id, "bytes", len(compressed))
	return nil
}

func (e *Engine) writeTimestamp(f *os.File, slot int) error {
	var ts [4]byte
	binary.BigEndian.PutUint32(ts[:], uint32(e.opts.clock().Unix()))
	if _, err := f.WriteAt(ts[:], int64(sectorSize+slot*4)); err != nil {
		return fmt.Errorf("%w: timestamp table: %v", ErrWrite, err)
	}
	return nil
}

// readOffsetWord reads the slot'th big-endian 32-bit word from the offset
// table (sector 0).
func readOffsetWord(f *os.File, slot int) (uint32, error) {
	var buf [4]byte
	if _, err := f.ReadAt(buf[:], int64(slot*4)); err != nil {
		return 0, fmt.Errorf("%w: offset table: %v", ErrRead, err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// decodeOffsetWord splits an offset-table word into its sector offset
// (upper 24 bits) and sector count (lowest 8 bits).
func decodeOffsetWord(word uint32) (offsetSectors uint32, sectorCount uint8) {
	return word >> 8, uint8(word & 0xFF)
}

// encodeOffsetWord is the inverse of decodeOffsetWord.
func encodeOffsetWord(offsetSectors uint32, sectorCount uint8) uint32 {
	return (offsetSectors << 8) | uint32(sectorCount)
}
