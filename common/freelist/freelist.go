// Package freelist manages the chain of unallocated blocks in an arena.
//
// The free list doesn't keep a separate table of free blocks. Like the chains of
// every file, it's threaded through the `next` links of the blocks themselves,
// starting at Head(). Blocks are handed out from the head of the chain, so a
// file's blocks don't need to be contiguous.
package freelist

import (
	"fmt"
	"strings"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/chainfs/common"
	"github.com/dargueta/chainfs/common/arena"
	"github.com/dargueta/chainfs/errors"
)

// ReclaimPolicy determines where released blocks are put back into the free
// chain. This is observable: it decides which indices later allocations get.
type ReclaimPolicy int

const (
	// Prepend puts each released block at the head of the free chain, one at a
	// time. A released file chain ends up reversed at the front of the list.
	Prepend ReclaimPolicy = iota
	// Append puts released blocks at the tail of the free chain, in the order
	// they were given.
	Append
)

func (policy ReclaimPolicy) String() string {
	switch policy {
	case Prepend:
		return "prepend"
	case Append:
		return "append"
	default:
		return fmt.Sprintf("ReclaimPolicy(%d)", int(policy))
	}
}

// ParseReclaimPolicy converts the name of a policy (case-insensitive) to its
// value. An empty string gives the default, [Prepend].
func ParseReclaimPolicy(name string) (ReclaimPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "prepend":
		return Prepend, nil
	case "append":
		return Append, nil
	default:
		return Prepend, errors.NewWithMessage(
			errors.EINVAL,
			fmt.Sprintf("unknown reclaim policy %q; expected \"prepend\" or \"append\"", name),
		)
	}
}

type FreeList struct {
	arena  *arena.Arena
	policy ReclaimPolicy
	head   common.BlockID
	tail   common.BlockID
	count  uint
	// isFree has one bit per block, set if the block is in the free chain.
	isFree bitmap.Bitmap
}

// New threads every block of `blockArena` into a single free chain,
// 0 -> 1 -> ... -> N-1, overwriting whatever the blocks held before.
func New(blockArena *arena.Arena, policy ReclaimPolicy) (*FreeList, error) {
	totalBlocks := blockArena.TotalBlocks()
	list := &FreeList{
		arena:  blockArena,
		policy: policy,
		head:   0,
		tail:   common.BlockID(totalBlocks - 1),
		count:  totalBlocks,
		isFree: bitmap.New(int(totalBlocks)),
	}

	for i := uint(0); i < totalBlocks; i++ {
		next := common.BlockID(i + 1)
		if i+1 == totalBlocks {
			next = common.None
		}

		err := blockArena.Clear(common.BlockID(i), next)
		if err != nil {
			return nil, err
		}
		list.isFree.Set(int(i), true)
	}
	return list, nil
}

// Count gives the number of blocks in the free chain.
func (list *FreeList) Count() uint {
	return list.count
}

// Head gives the first block of the free chain, or [common.None] if the chain is
// empty.
func (list *FreeList) Head() common.BlockID {
	return list.head
}

func (list *FreeList) Policy() ReclaimPolicy {
	return list.policy
}

// IsFree reports whether block `id` is currently in the free chain. Indices
// outside the arena are never free.
func (list *FreeList) IsFree(id common.BlockID) bool {
	if uint(id) >= list.arena.TotalBlocks() {
		return false
	}
	return list.isFree.Get(int(id))
}

// Allocate detaches `count` blocks from the head of the free chain and returns
// them in the order they were detached. The blocks are not necessarily
// contiguous, and their links are left pointing wherever they pointed in the
// free chain; the caller is expected to overwrite them.
//
// If fewer than `count` blocks are free this fails with [errors.ENOSPC], and if
// the free chain turns out to be damaged it fails with [errors.EUCLEAN]. Either
// way the free list is not modified.
func (list *FreeList) Allocate(count uint) ([]common.BlockID, error) {
	if count > list.count {
		return nil, errors.NewWithMessage(
			errors.ENOSPC,
			fmt.Sprintf("need %d blocks, only %d free", count, list.count),
		)
	}

	// Collect everything before touching any state so that a broken chain
	// leaves the list exactly as it was.
	allocated := make([]common.BlockID, 0, count)
	taken := bitmap.New(int(list.arena.TotalBlocks()))
	current := list.head
	for uint(len(allocated)) < count {
		if !list.IsFree(current) || taken.Get(int(current)) {
			return nil, errors.NewWithMessage(
				errors.EUCLEAN,
				fmt.Sprintf(
					"free chain broken after %d of %d blocks: link to %d",
					len(allocated),
					list.count,
					current,
				),
			)
		}

		next, err := list.arena.Next(current)
		if err != nil {
			return nil, errors.NewFromError(errors.EUCLEAN, err)
		}
		allocated = append(allocated, current)
		taken.Set(int(current), true)
		current = next
	}

	for _, id := range allocated {
		list.isFree.Set(int(id), false)
	}
	list.head = current
	list.count -= count
	if list.count == 0 {
		list.head = common.None
		list.tail = common.None
	}
	return allocated, nil
}

// Release puts blocks back into the free chain according to the list's
// [ReclaimPolicy], clearing their payloads.
//
// All of `ids` are checked before any is released. It fails with
// [errors.EINVAL] if an index is out of range or repeated, and with
// [errors.EALREADY] if a block is already free. On failure nothing is released.
func (list *FreeList) Release(ids []common.BlockID) error {
	seen := bitmap.New(int(list.arena.TotalBlocks()))
	for _, id := range ids {
		err := list.arena.CheckBounds(id)
		if err != nil {
			return err
		}
		if list.isFree.Get(int(id)) {
			return errors.NewWithMessage(
				errors.EALREADY, fmt.Sprintf("block %d is already free", id))
		}
		if seen.Get(int(id)) {
			return errors.NewWithMessage(
				errors.EINVAL, fmt.Sprintf("block %d released twice in one call", id))
		}
		seen.Set(int(id), true)
	}

	for _, id := range ids {
		var err error
		if list.policy == Append {
			err = list.pushBack(id)
		} else {
			err = list.pushFront(id)
		}
		if err != nil {
			return err
		}
		list.isFree.Set(int(id), true)
		list.count++
	}
	return nil
}

func (list *FreeList) pushFront(id common.BlockID) error {
	err := list.arena.Clear(id, list.head)
	if err != nil {
		return err
	}
	if list.head == common.None {
		list.tail = id
	}
	list.head = id
	return nil
}

func (list *FreeList) pushBack(id common.BlockID) error {
	err := list.arena.Clear(id, common.None)
	if err != nil {
		return err
	}
	if list.head == common.None {
		list.head = id
	} else {
		err = list.arena.SetNext(list.tail, id)
		if err != nil {
			return err
		}
	}
	list.tail = id
	return nil
}

// Blocks returns the indices in the free chain, in chain order. The walk stops
// after as many steps as there are blocks in the arena; if the chain hasn't
// ended by then, or if it doesn't match Count(), it's damaged and this returns
// what it found so far along with an [errors.EUCLEAN] error.
func (list *FreeList) Blocks() ([]common.BlockID, error) {
	limit := list.arena.TotalBlocks()
	blocks := make([]common.BlockID, 0, list.count)

	current := list.head
	for current != common.None {
		if uint(len(blocks)) >= limit {
			return blocks, errors.NewWithMessage(
				errors.EUCLEAN,
				fmt.Sprintf("free chain doesn't end within %d blocks; cycle suspected", limit),
			)
		}

		next, err := list.arena.Next(current)
		if err != nil {
			return blocks, errors.NewFromError(errors.EUCLEAN, err)
		}
		blocks = append(blocks, current)
		current = next
	}

	if uint(len(blocks)) != list.count {
		return blocks, errors.NewWithMessage(
			errors.EUCLEAN,
			fmt.Sprintf("free chain has %d blocks but %d are counted", len(blocks), list.count),
		)
	}
	return blocks, nil
}
