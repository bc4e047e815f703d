// Package anvil implements the sector-indexed region-file storage engine:
// coordinate translation between world blocks, chunks and regions, and
// reading/overwriting individual chunk payloads within a region file's
// sector grid.
package anvil

import "math"

// chunksPerRegion is the width (and depth) of a region's chunk grid.
const chunksPerRegion = 32

// blocksPerChunk is the width (and depth) of a chunk's block grid.
const blocksPerChunk = 16

// ChunkID names one chunk column by its chunk-grid coordinates.
type ChunkID struct {
	X, Z int32
}

// RegionID names one region file by its region-grid coordinates.
type RegionID struct {
	X, Z int32
}

// CoordsToChunk maps world-block coordinates to the chunk containing them.
// wy is accepted but unused: this core addresses single columns only.
// Division floors toward negative infinity, never truncates toward zero, so
// negative coordinates land in the correct chunk on both sides of zero.
func CoordsToChunk(wx, wy, wz float64) ChunkID {
	_ = wy
	return ChunkID{
		X: int32(math.Floor(wx / blocksPerChunk)),
		Z: int32(math.Floor(wz / blocksPerChunk)),
	}
}

// ChunkToRegion maps a chunk to the region containing it, again via
// arithmetic floor division (by chunksPerRegion).
func ChunkToRegion(cx, cz int32) RegionID {
	return RegionID{
		X: floorDiv32(cx, chunksPerRegion),
		Z: floorDiv32(cz, chunksPerRegion),
	}
}

// CoordsToRegion composes CoordsToChunk and ChunkToRegion.
func CoordsToRegion(wx, wy, wz float64) RegionID {
	c := CoordsToChunk(wx, wy, wz)
	return ChunkToRegion(c.X, c.Z)
}

// floorDiv32 divides a by b with the result floored toward negative infinity;
// for a power-of-two b (as chunksPerRegion is) this equals Go's arithmetic
// shift `a >> log2(b)` for either sign of a. Go's native `/` truncates toward
// zero, so the correction term handles the negative-and-unaligned case
// explicitly.
func floorDiv32(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// localIndex returns a chunk's slot index within its region's 32x32 grid:
// localX + localZ*32, where localX/localZ are the low 5 bits of the chunk's
// two's-complement coordinate (i.e. coordinate mod 32, always nonnegative).
func localIndex(id ChunkID) int {
	lx := int(id.X) & (chunksPerRegion - 1)
	lz := int(id.Z) & (chunksPerRegion - 1)
	return lx + lz*chunksPerRegion
}
