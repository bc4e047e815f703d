package anvil

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/orcaman/writerseeker"

	"github.com/anvilkeep/anvilstore/compress"
)

// SaveRegion writes every chunk in chunks into a brand-new region file at
// <dir>/r.<rx>.<rz>.mca, creating dir if needed. Unlike OverwriteChunk, this
// builds a file from nothing, so there is no existing sector allocation to
// respect — it is the one operation in this package that allocates sector
// runs. Each payload is compressed with zlib framing.
//
// Every id in chunks must satisfy ChunkToRegion(id.X, id.Z) == {rx, rz};
// otherwise SaveRegion returns ErrWrongRegion before touching disk. Filing a
// chunk under the wrong region by its local slot index alone would produce a
// file LoadChunk — which re-derives the region from the chunk's own
// coordinates — could never find it in, silently breaking the
// SaveRegion/LoadChunk round trip.
//
// The body is assembled in memory with a seekable writer (rather than a
// plain bytes.Buffer) because the location and timestamp tables must be
// patched in after every chunk's final sector position is known, then the
// whole thing is flushed to a temp file and renamed into place so a crash
// mid-write never leaves a half-written .mca behind.
func SaveRegion(dir string, rx, rz int32, chunks map[ChunkID][]byte, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	target := RegionID{X: rx, Z: rz}
	for id := range chunks {
		if got := ChunkToRegion(id.X, id.Z); got != target {
			return fmt.Errorf("%w: chunk (%d,%d) belongs to region (%d,%d), not (%d,%d)",
				ErrWrongRegion, id.X, id.Z, got.X, got.Z, rx, rz)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create region dir %s: %v", ErrAccess, dir, err)
	}

	var ws writerseeker.WriterSeeker
	if _, err := ws.Write(make([]byte, headerSectors*sectorSize)); err != nil {
		return fmt.Errorf("%w: reserve header sectors: %v", ErrWrite, err)
	}

	var locations [1024]uint32
	var timestamps [1024]uint32
	now := uint32(o.clock().Unix())

	currentSector := uint32(headerSectors)
	for id, payload := range chunks {
		compressed, err := compress.Deflate(payload, true)
		if err != nil {
			return fmt.Errorf("compress chunk (%d,%d): %w", id.X, id.Z, err)
		}

		bodyLen := uint32(len(compressed)) + 1 // +1 for the compression-type byte
		totalLen := uint32(4) + bodyLen        // 4-byte length field + body (which includes the type byte)
		sectorCount := (totalLen + sectorSize - 1) / sectorSize
		if sectorCount > 0xFF {
			return fmt.Errorf("chunk (%d,%d) needs %d sectors, more than the 8-bit field can hold", id.X, id.Z, sectorCount)
		}

		var header [chunkHeaderSize]byte
		binary.BigEndian.PutUint32(header[0:4], bodyLen)
		header[4] = compressionZlib
		if _, err := ws.Write(header[:]); err != nil {
			return fmt.Errorf("%w: chunk header: %v", ErrWrite, err)
		}
		if _, err := ws.Write(compressed); err != nil {
			return fmt.Errorf("%w: chunk body: %v", ErrWrite, err)
		}
		if pad := int64(sectorCount)*sectorSize - int64(totalLen); pad > 0 {
			if _, err := ws.Write(make([]byte, pad)); err != nil {
				return fmt.Errorf("%w: sector padding: %v", ErrWrite, err)
			}
		}

		slot := localIndex(id)
		locations[slot] = encodeOffsetWord(currentSector, uint8(sectorCount))
		timestamps[slot] = now
		currentSector += sectorCount
	}

	if err := patchTable(&ws, 0, locations[:]); err != nil {
		return err
	}
	if err := patchTable(&ws, sectorSize, timestamps[:]); err != nil {
		return err
	}

	path := filepath.Join(dir, fmt.Sprintf("r.%d.%d.mca", rx, rz))
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: create temp region file: %v", ErrOpen, err)
	}
	defer func() {
		f.Close()
		os.Remove(tmp)
	}()

	if _, err := io.Copy(f, ws.BytesReader()); err != nil {
		return fmt.Errorf("%w: write region file: %v", ErrWrite, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close region file: %v", ErrWrite, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: rename region file into place: %v", ErrWrite, err)
	}

	o.log.Debug("saved region", "path", path, "chunks", len(chunks))
	return nil
}

// patchTable seeks to byteOffset and overwrites it with table's 1024
// big-endian words — used to fill in the location and timestamp sectors
// after every chunk's final position is known.
func patchTable(ws *writerseeker.WriterSeeker, byteOffset int64, table []uint32) error {
	buf := make([]byte, len(table)*4)
	for i, w := range table {
		binary.BigEndian.PutUint32(buf[i*4:i*4+4], w)
	}
	if _, err := ws.Seek(byteOffset, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek to patch table: %v", ErrSeek, err)
	}
	if _, err := ws.Write(buf); err != nil {
		return fmt.Errorf("%w: patch table: %v", ErrWrite, err)
	}
	return nil
}
