// Package arena provides the fixed-size array of blocks that every chain on the
// disk is built from.
//
// Each block is stored as a single 32-bit word: the payload goes in the low 16
// bits and the link to the next block in the high 16 bits. The arena enforces
// bounds on block indices and nothing else; keeping chains consistent is the
// caller's job.
package arena

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dargueta/chainfs/common"
	"github.com/dargueta/chainfs/errors"
	"github.com/noxer/bytewriter"
)

// BytesPerBlock is the size of one packed block in the raw image.
const BytesPerBlock = 4

// Block is the unpacked form of a single block.
type Block struct {
	Payload common.Payload
	Next    common.BlockID
}

// Pack converts a block to its on-disk 32-bit representation.
func Pack(block Block) uint32 {
	return (uint32(block.Next) << 16) | uint32(block.Payload)
}

// Unpack converts a 32-bit word back into a block.
func Unpack(word uint32) Block {
	return Block{
		Payload: common.Payload(word & 0xffff),
		Next:    common.BlockID(word >> 16),
	}
}

type Arena struct {
	words []uint32
}

// New creates an arena of `totalBlocks` empty blocks. Every block's payload is
// empty and its link is [common.None]; no chain is built.
func New(totalBlocks uint) (*Arena, error) {
	if totalBlocks == 0 || totalBlocks > common.MaxBlocks {
		return nil, errors.NewWithMessage(
			errors.EINVAL,
			fmt.Sprintf(
				"invalid block count: %d not in range [1, %d]",
				totalBlocks,
				common.MaxBlocks,
			),
		)
	}

	emptyWord := Pack(Block{Payload: common.EmptyPayload, Next: common.None})
	words := make([]uint32, totalBlocks)
	for i := range words {
		words[i] = emptyWord
	}
	return &Arena{words: words}, nil
}

// Load reads a raw image of `totalBlocks` packed blocks from `stream`, in the
// format produced by [Arena.MarshalBinary].
func Load(stream io.Reader, totalBlocks uint) (*Arena, error) {
	arena, err := New(totalBlocks)
	if err != nil {
		return nil, err
	}

	err = binary.Read(stream, binary.LittleEndian, arena.words)
	if err != nil {
		return nil, errors.NewFromError(errors.EIO, err)
	}
	return arena, nil
}

// TotalBlocks gives the number of blocks in the arena.
func (arena *Arena) TotalBlocks() uint {
	return uint(len(arena.words))
}

// CheckBounds returns an error if `id` isn't a valid index into the arena.
func (arena *Arena) CheckBounds(id common.BlockID) error {
	if uint(id) >= uint(len(arena.words)) {
		return errors.NewWithMessage(
			errors.EINVAL,
			fmt.Sprintf("invalid block ID %d: not in range [0, %d)", id, len(arena.words)),
		)
	}
	return nil
}

// Get returns the block at index `id`.
func (arena *Arena) Get(id common.BlockID) (Block, error) {
	err := arena.CheckBounds(id)
	if err != nil {
		return Block{}, err
	}
	return Unpack(arena.words[id]), nil
}

// Set overwrites both fields of the block at index `id`.
func (arena *Arena) Set(id common.BlockID, block Block) error {
	err := arena.CheckBounds(id)
	if err != nil {
		return err
	}
	arena.words[id] = Pack(block)
	return nil
}

// Payload returns the data stored in block `id`.
func (arena *Arena) Payload(id common.BlockID) (common.Payload, error) {
	block, err := arena.Get(id)
	return block.Payload, err
}

// Next returns the link stored in block `id`.
func (arena *Arena) Next(id common.BlockID) (common.BlockID, error) {
	block, err := arena.Get(id)
	return block.Next, err
}

// SetNext changes the link of block `id` without touching its payload.
func (arena *Arena) SetNext(id common.BlockID, next common.BlockID) error {
	block, err := arena.Get(id)
	if err != nil {
		return err
	}
	block.Next = next
	return arena.Set(id, block)
}

// Clear empties the payload of block `id` and points it at `next`.
func (arena *Arena) Clear(id common.BlockID, next common.BlockID) error {
	return arena.Set(id, Block{Payload: common.EmptyPayload, Next: next})
}

// MarshalBinary returns the raw image of the arena: one little-endian 32-bit
// word per block, in index order.
func (arena *Arena) MarshalBinary() ([]byte, error) {
	output := make([]byte, len(arena.words)*BytesPerBlock)
	writer := bytewriter.New(output)

	err := binary.Write(writer, binary.LittleEndian, arena.words)
	if err != nil {
		return nil, err
	}
	return output, nil
}
