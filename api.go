// Package chainfs simulates a file system that stores files as linked chains of
// fixed-size blocks, the way FAT-style systems do.
//
// The interfaces here are what front ends (such as the interactive shell in
// cmd/chainfs) program against. The implementation lives in drivers/linked.
package chainfs

import (
	"github.com/dargueta/chainfs/common"
)

// ReadingStore is the interface for stores supporting read operations.
type ReadingStore interface {
	// ReadFile returns the contents of the named file, one character per block,
	// in chain order.
	ReadFile(name string) (string, error)
	// Stat returns summary information about the store.
	Stat() FSStat
}

// WritingStore is the interface for stores supporting write operations. Files
// are immutable once written; there is no append or truncate.
type WritingStore interface {
	// CreateFile stores `content` under a new name. It fails without changing
	// anything if the name is taken or there aren't enough free blocks.
	CreateFile(name string, content string) error
	// DeleteFile removes the named file and returns its blocks to the free list.
	DeleteFile(name string) error
}

// InspectingStore is the interface for stores that can show their internal
// state. Neither method may modify the store.
type InspectingStore interface {
	// Inspect returns a snapshot of every block, every file and the free chain.
	// If some chain is damaged the snapshot is still returned, as complete as
	// possible, along with the error.
	Inspect() (Snapshot, error)
	// Check verifies the store's invariants and reports every violation found.
	Check() error
}

// Store is the interface for stores implementing all capabilities.
type Store interface {
	ReadingStore
	WritingStore
	InspectingStore
}

// FSStat gives summary information about a store, loosely modeled on statvfs(3).
type FSStat struct {
	TotalBlocks uint
	BlocksFree  uint
	BlocksUsed  uint
	Files       uint
	// PayloadBits is the width of the data unit stored in one block.
	PayloadBits uint
	// MaxNameLength is the longest allowed file name, in characters. Zero means
	// there's no limit.
	MaxNameLength uint
}

// BlockInfo describes a single block in a [Snapshot].
type BlockInfo struct {
	Index   common.BlockID
	Payload common.Payload
	Next    common.BlockID
	// Owner is the name of the file whose chain contains this block. It's empty
	// for free blocks and for blocks no chain could be traced to.
	Owner string
	Free  bool
}

// FileInfo describes a single file in a [Snapshot].
type FileInfo struct {
	Name   string
	Head   common.BlockID
	Length uint
	// Blocks lists the file's chain in order, from Head to the last block.
	Blocks []common.BlockID
}

// Snapshot is a read-only copy of a store's state.
type Snapshot struct {
	TotalBlocks uint
	Blocks      []BlockInfo
	// Files are in the order they were created.
	Files []FileInfo
	// FreeBlocks is the free chain in order, starting from FreeHead.
	FreeBlocks []common.BlockID
	FreeHead   common.BlockID
	FreeCount  uint
	// Checksum is a hash of the raw disk image. Two snapshots with the same
	// checksum have identical blocks.
	Checksum uint64
}
