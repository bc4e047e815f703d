package anvil

import "errors"

// Sentinel errors, named after the region-engine failure taxonomy: access,
// open, and the three I/O failure kinds read/seek/write, plus the three
// outcomes specific to chunk storage (a malformed chunk header, a refused
// overwrite, and a chunk handed to SaveRegion for the wrong region).
var (
	ErrAccess            = errors.New("anvil: region file not accessible")
	ErrOpen              = errors.New("anvil: region file could not be opened")
	ErrRead              = errors.New("anvil: region file read failed")
	ErrSeek              = errors.New("anvil: region file seek failed")
	ErrWrite             = errors.New("anvil: region file write failed")
	ErrInvalidHeader     = errors.New("anvil: chunk header is malformed")
	ErrInsufficientSpace = errors.New("anvil: recompressed chunk exceeds its allocated sectors")
	ErrWrongRegion       = errors.New("anvil: chunk does not belong to the target region")
)
