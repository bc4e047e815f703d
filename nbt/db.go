package nbt

import (
	"fmt"
	"os"

	"github.com/anvilkeep/anvilstore/compress"
)

// gzipMagic is the two-byte gzip stream signature, 0x1F 0x8B, read here as
// the little-endian word it forms on disk.
const gzipMagic = 0x8B1F

// LoadDB reads a whole savegame-database file into memory. If it begins with
// the gzip magic it is inflated (gzip framing only — a zlib-wrapped
// database was never a case the original handled); otherwise the file's
// bytes are returned unchanged, since an uncompressed NBT database is valid
// input. The caller parses the result with ParseTag.
func LoadDB(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nbt: load db %s: %w", path, err)
	}

	if len(data) >= 2 && uint16(data[0])|uint16(data[1])<<8 == gzipMagic {
		decompressed, err := compress.Inflate(data, false)
		if err != nil {
			return nil, fmt.Errorf("nbt: load db %s: %w", path, err)
		}
		return decompressed, nil
	}

	return data, nil
}
