package linked

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/cespare/xxhash/v2"
	"github.com/dargueta/chainfs"
	"github.com/dargueta/chainfs/common"
	"github.com/dargueta/chainfs/errors"
	"github.com/hashicorp/go-multierror"
)

// Inspect returns a snapshot of the whole store. It doesn't modify anything.
//
// If a chain is damaged, the snapshot includes as much of it as could be
// walked and the error is returned alongside the snapshot.
func (driver *Driver) Inspect() (chainfs.Snapshot, error) {
	var result *multierror.Error
	totalBlocks := driver.arena.TotalBlocks()

	snapshot := chainfs.Snapshot{
		TotalBlocks: totalBlocks,
		Blocks:      make([]chainfs.BlockInfo, totalBlocks),
		FreeHead:    driver.freeList.Head(),
		FreeCount:   driver.freeList.Count(),
	}

	for i := range snapshot.Blocks {
		block, err := driver.arena.Get(common.BlockID(i))
		if err != nil {
			return snapshot, err
		}
		snapshot.Blocks[i] = chainfs.BlockInfo{
			Index:   common.BlockID(i),
			Payload: block.Payload,
			Next:    block.Next,
			Free:    driver.freeList.IsFree(common.BlockID(i)),
		}
	}

	for _, entry := range driver.directory.Entries() {
		chain, err := driver.fileChain(entry)
		if err != nil {
			result = multierror.Append(result, err)
		}

		for _, id := range chain {
			if uint(id) < totalBlocks && snapshot.Blocks[id].Owner == "" {
				snapshot.Blocks[id].Owner = entry.Name
			}
		}
		snapshot.Files = append(snapshot.Files, chainfs.FileInfo{
			Name:   entry.Name,
			Head:   entry.Head,
			Length: entry.Length,
			Blocks: chain,
		})
	}

	freeBlocks, err := driver.freeList.Blocks()
	if err != nil {
		result = multierror.Append(result, err)
	}
	snapshot.FreeBlocks = freeBlocks

	image, err := driver.arena.MarshalBinary()
	if err != nil {
		return snapshot, errors.NewFromError(errors.EIO, err)
	}
	snapshot.Checksum = xxhash.Sum64(image)

	if result != nil {
		return snapshot, errors.NewFromError(errors.EUCLEAN, result)
	}
	return snapshot, nil
}

// Check verifies that:
//
//   - every file's chain ends within the arena's size and matches its recorded
//     length;
//   - every block is in exactly one chain, either a file's or the free list;
//   - the free chain is as long as the free block counter says;
//   - free blocks hold no data.
//
// All problems found are reported together, as an [errors.EUCLEAN] error. It
// returns nil if the store is consistent.
func (driver *Driver) Check() error {
	var result *multierror.Error
	totalBlocks := int(driver.arena.TotalBlocks())

	// owners[i] is the name of the first chain block i was found in. A second
	// sighting means two chains share the block.
	seen := bitmap.New(totalBlocks)
	owners := make([]string, totalBlocks)

	claim := func(id common.BlockID, owner string) {
		if seen.Get(int(id)) {
			result = multierror.Append(
				result,
				fmt.Errorf("block %d is in both %s and %s", id, owners[id], owner),
			)
			return
		}
		seen.Set(int(id), true)
		owners[id] = owner
	}

	usedBlocks := uint(0)
	for _, entry := range driver.directory.Entries() {
		chain, err := driver.fileChain(entry)
		if err != nil {
			result = multierror.Append(result, err)
		}
		for _, id := range chain {
			claim(id, fmt.Sprintf("file %q", entry.Name))
		}
		usedBlocks += uint(len(chain))
	}

	freeBlocks, err := driver.freeList.Blocks()
	if err != nil {
		result = multierror.Append(result, err)
	}
	for _, id := range freeBlocks {
		claim(id, "the free list")

		payload, err := driver.arena.Payload(id)
		if err == nil && payload != common.EmptyPayload {
			result = multierror.Append(
				result, fmt.Errorf("free block %d still holds data", id))
		}
	}

	for i := 0; i < totalBlocks; i++ {
		if !seen.Get(i) {
			result = multierror.Append(
				result, fmt.Errorf("block %d isn't in any chain", i))
		}
	}

	if usedBlocks+driver.freeList.Count() != uint(totalBlocks) {
		result = multierror.Append(
			result,
			fmt.Errorf(
				"%d blocks in files plus %d free doesn't add up to %d",
				usedBlocks,
				driver.freeList.Count(),
				totalBlocks,
			),
		)
	}

	if result != nil {
		driver.logger.Error("consistency check failed: %d problems", len(result.Errors))
		return errors.NewFromError(errors.EUCLEAN, result)
	}
	return nil
}
