package anvil

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mustSaveRegion(t *testing.T, dir string, rx, rz int32, chunks map[ChunkID][]byte) {
	t.Helper()
	if err := SaveRegion(dir, rx, rz, chunks); err != nil {
		t.Fatalf("SaveRegion: %v", err)
	}
}

// Basic round trip: save a region, load a chunk back out, overwrite it,
// load it again.
func TestOverwriteThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	original := []byte("the original chunk payload, small and simple")
	mustSaveRegion(t, dir, 0, 0, map[ChunkID][]byte{{X: 0, Z: 0}: original})

	e := NewEngine(dir)

	loaded, present, err := e.LoadChunk(ChunkID{X: 0, Z: 0})
	if err != nil {
		t.Fatalf("LoadChunk: %v", err)
	}
	if !present {
		t.Fatal("expected chunk to be present")
	}
	if !bytes.Equal(loaded, original) {
		t.Fatalf("loaded %q, want %q", loaded, original)
	}

	updated := []byte("a different, still-small payload")
	if err := e.OverwriteChunk(ChunkID{X: 0, Z: 0}, updated); err != nil {
		t.Fatalf("OverwriteChunk: %v", err)
	}

	reloaded, present, err := e.LoadChunk(ChunkID{X: 0, Z: 0})
	if err != nil {
		t.Fatalf("LoadChunk after overwrite: %v", err)
	}
	if !present {
		t.Fatal("expected chunk to be present after overwrite")
	}
	if !bytes.Equal(reloaded, updated) {
		t.Fatalf("reloaded %q, want %q", reloaded, updated)
	}
}

// A freshly zeroed slot returns present=false, not an error.
func TestLoadChunkNotPresentReturnsNoError(t *testing.T) {
	dir := t.TempDir()
	mustSaveRegion(t, dir, 0, 0, map[ChunkID][]byte{{X: 0, Z: 0}: []byte("present")})

	e := NewEngine(dir)
	_, present, err := e.LoadChunk(ChunkID{X: 5, Z: 5}) // same region, empty slot
	if err != nil {
		t.Fatalf("expected no error for an unpresent chunk, got %v", err)
	}
	if present {
		t.Fatal("expected present=false for an unpresent chunk")
	}
}

// A region file contains a chunk occupying 1 sector. Overwriting with a
// payload whose compressed length exceeds the sector's capacity is refused,
// and the file is left byte-identical.
func TestOverwriteRefusesWhenTooLarge(t *testing.T) {
	dir := t.TempDir()
	mustSaveRegion(t, dir, 0, 0, map[ChunkID][]byte{{X: 0, Z: 0}: []byte("tiny")})

	path := filepath.Join(dir, "r.0.0.mca")
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	// Incompressible random data large enough that its zlib-compressed
	// form exceeds a single 4096-byte sector's ~4091-byte capacity.
	big := make([]byte, 8192)
	rand.New(rand.NewSource(1)).Read(big)

	e := NewEngine(dir)
	err = e.OverwriteChunk(ChunkID{X: 0, Z: 0}, big)
	if err == nil {
		t.Fatal("expected InsufficientSpace, got nil")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture after refused overwrite: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("region file bytes changed after a refused overwrite")
	}
}

// Refusal preserves contents for a payload far larger than the slot: 1 MiB of
// incompressible data against a 1-sector allocation.
func TestOverwriteRefusalIsAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	mustSaveRegion(t, dir, 0, 0, map[ChunkID][]byte{{X: 0, Z: 0}: []byte("x")})

	path := filepath.Join(dir, "r.0.0.mca")
	before, _ := os.ReadFile(path)

	big := make([]byte, 1<<20)
	rand.New(rand.NewSource(2)).Read(big)

	e := NewEngine(dir)
	if err := e.OverwriteChunk(ChunkID{X: 0, Z: 0}, big); err == nil {
		t.Fatal("expected refusal for a 1MiB incompressible payload against a 1-sector slot")
	}

	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Fatal("refused overwrite mutated the file")
	}
}

func TestLoadChunkMissingRegionFileIsError(t *testing.T) {
	e := NewEngine(t.TempDir())
	_, _, err := e.LoadChunk(ChunkID{X: 0, Z: 0})
	if err == nil {
		t.Fatal("expected an error loading from a folder with no region files")
	}
}

func TestOverwriteChunkMissingRegionFileIsError(t *testing.T) {
	e := NewEngine(t.TempDir())
	err := e.OverwriteChunk(ChunkID{X: 0, Z: 0}, []byte("payload"))
	if err == nil {
		t.Fatal("expected an error overwriting into a folder with no region files")
	}
}

// OverwriteChunk updates only the overwritten slot's timestamp word.
func TestOverwriteUpdatesOnlyItsOwnTimestamp(t *testing.T) {
	dir := t.TempDir()
	baselineTime := int64(1600000000)
	if err := SaveRegion(dir, 0, 0, map[ChunkID][]byte{
		{X: 0, Z: 0}: []byte("chunk a"),
		{X: 1, Z: 0}: []byte("chunk b"),
	}, WithClock(func() time.Time { return time.Unix(baselineTime, 0) })); err != nil {
		t.Fatalf("SaveRegion: %v", err)
	}

	fixedTime := int64(1700000000)
	e := NewEngine(dir, WithClock(func() time.Time { return time.Unix(fixedTime, 0) }))

	if err := e.OverwriteChunk(ChunkID{X: 0, Z: 0}, []byte("updated chunk a")); err != nil {
		t.Fatalf("OverwriteChunk: %v", err)
	}

	path := filepath.Join(dir, "r.0.0.mca")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open region: %v", err)
	}
	defer f.Close()

	var ts [4]byte
	if _, err := f.ReadAt(ts[:], sectorSize+0*4); err != nil {
		t.Fatalf("read timestamp slot 0: %v", err)
	}
	got := uint32(ts[0])<<24 | uint32(ts[1])<<16 | uint32(ts[2])<<8 | uint32(ts[3])
	if got != uint32(fixedTime) {
		t.Fatalf("slot 0 timestamp = %d, want %d", got, fixedTime)
	}

	var ts1 [4]byte
	if _, err := f.ReadAt(ts1[:], sectorSize+1*4); err != nil {
		t.Fatalf("read timestamp slot 1: %v", err)
	}
	got1 := uint32(ts1[0])<<24 | uint32(ts1[1])<<16 | uint32(ts1[2])<<8 | uint32(ts1[3])
	if got1 != uint32(baselineTime) {
		t.Fatalf("slot 1 timestamp = %d, want unchanged baseline %d", got1, baselineTime)
	}
}
