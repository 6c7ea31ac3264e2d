// Package common contains definitions of fundamental types shared by the block
// arena, the free list, the directory and the file store.
package common

// BlockID is the index of a block in the arena. Chains link blocks together by
// storing the BlockID of the next block rather than a reference to it.
type BlockID uint16

// None terminates a chain. It's the largest value a 16-bit link can hold, so no
// arena can have more than None blocks.
const None = BlockID(0xFFFF)

// MaxBlocks is the largest number of blocks an arena can have.
const MaxBlocks = uint(None)

// Payload is the data unit stored in a single block. Zero marks an unused block.
type Payload uint16

// EmptyPayload is the payload of a block that holds no data.
const EmptyPayload = Payload(0)
