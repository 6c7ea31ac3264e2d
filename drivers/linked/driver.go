// Package linked implements a file store using linked allocation: every file is
// a chain of blocks, each holding one character and the index of the next
// block. Free blocks form a chain of their own.
//
// A [Driver] owns its arena, free list and directory outright. Nothing else can
// reach them, so every public method is a complete transaction: callers never
// observe a half-created or half-deleted file. A Driver is not safe for
// concurrent use.
package linked

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dargueta/chainfs"
	"github.com/dargueta/chainfs/common"
	"github.com/dargueta/chainfs/common/arena"
	"github.com/dargueta/chainfs/common/directory"
	"github.com/dargueta/chainfs/common/freelist"
	"github.com/dargueta/chainfs/errors"
	"github.com/dargueta/chainfs/utilities/log"
)

type Driver struct {
	arena     *arena.Arena
	freeList  *freelist.FreeList
	directory *directory.Directory
	options   Options
	logger    log.Logger
}

var _ chainfs.Store = (*Driver)(nil)

// New creates a store with every block free and an empty directory.
func New(options Options) (*Driver, error) {
	options, err := options.withDefaults()
	if err != nil {
		return nil, err
	}

	blockArena, err := arena.New(options.TotalBlocks)
	if err != nil {
		return nil, err
	}

	freeList, err := freelist.New(blockArena, options.ReclaimPolicy)
	if err != nil {
		return nil, err
	}

	driver := &Driver{
		arena:     blockArena,
		freeList:  freeList,
		directory: directory.New(),
		options:   options,
		logger:    options.Logger.WithField("component", "linked"),
	}
	driver.logger.Debug(
		"initialized %d blocks (%d-bit payload, %s reclaim)",
		options.TotalBlocks,
		options.PayloadBits,
		options.ReclaimPolicy,
	)
	return driver, nil
}

// Options returns the configuration the driver was created with, defaults
// filled in.
func (driver *Driver) Options() Options {
	return driver.options
}

////////////////////////////////////////////////////////////////////////////////
// Validation

func (driver *Driver) validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewWithMessage(errors.EINVAL, "file name can't be empty")
	}

	nameLength := uint(utf8.RuneCountInString(name))
	if driver.options.MaxNameLength > 0 && nameLength > driver.options.MaxNameLength {
		return errors.NewWithMessage(
			errors.ENAMETOOLONG,
			fmt.Sprintf(
				"%q is %d characters; the limit is %d",
				name,
				nameLength,
				driver.options.MaxNameLength,
			),
		)
	}
	return nil
}

// encodeContent converts `content` to one payload per character. Characters
// that don't fit in a block, and NUL (the empty-block marker), are rejected.
func (driver *Driver) encodeContent(content string) ([]common.Payload, error) {
	if !utf8.ValidString(content) {
		return nil, errors.NewWithMessage(errors.EINVAL, "content is not valid UTF-8")
	}

	limit := rune(1)<<driver.options.PayloadBits - 1
	payloads := make([]common.Payload, 0, utf8.RuneCountInString(content))
	for position, char := range []rune(content) {
		if char == 0 {
			return nil, errors.NewWithMessage(
				errors.EINVAL,
				fmt.Sprintf("character %d is NUL, which marks an empty block", position),
			)
		}
		if char > limit {
			return nil, errors.NewWithMessage(
				errors.EINVAL,
				fmt.Sprintf(
					"character %d (%q, U+%04X) doesn't fit in a %d-bit block",
					position,
					char,
					char,
					driver.options.PayloadBits,
				),
			)
		}
		payloads = append(payloads, common.Payload(char))
	}
	return payloads, nil
}

////////////////////////////////////////////////////////////////////////////////
// Chains

// walkChain follows a chain from `head` to [common.None] and returns the blocks
// in order. It gives up with [errors.EUCLEAN] after as many steps as there are
// blocks, or on a link pointing outside the arena, so a damaged chain can
// never make it loop forever.
func (driver *Driver) walkChain(head common.BlockID) ([]common.BlockID, error) {
	limit := driver.arena.TotalBlocks()
	chain := []common.BlockID{}

	current := head
	for current != common.None {
		if uint(len(chain)) >= limit {
			return chain, errors.NewWithMessage(
				errors.EUCLEAN,
				fmt.Sprintf(
					"chain starting at block %d doesn't end within %d blocks; cycle suspected",
					head,
					limit,
				),
			)
		}

		next, err := driver.arena.Next(current)
		if err != nil {
			return chain, errors.NewFromError(errors.EUCLEAN, err)
		}
		chain = append(chain, current)
		current = next
	}
	return chain, nil
}

// fileChain walks the chain of a directory entry and checks it against the
// length recorded when the file was created.
func (driver *Driver) fileChain(entry directory.Entry) ([]common.BlockID, error) {
	chain, err := driver.walkChain(entry.Head)
	if err != nil {
		return chain, errors.NewWithMessage(
			errors.EUCLEAN, fmt.Sprintf("file %q: %s", entry.Name, err.Error()))
	}
	if uint(len(chain)) != entry.Length {
		return chain, errors.NewWithMessage(
			errors.EUCLEAN,
			fmt.Sprintf(
				"file %q should have %d blocks but its chain has %d",
				entry.Name,
				entry.Length,
				len(chain),
			),
		)
	}
	return chain, nil
}

////////////////////////////////////////////////////////////////////////////////
// Implementing the Store interface

// CreateFile stores `content` under `name`, one character per block. The blocks
// come from the head of the free list and need not be contiguous. Empty
// content is allowed and uses no blocks.
//
// Errors:
//
//   - [errors.EINVAL]: the name is blank or the content has a character that
//     can't be stored.
//   - [errors.ENAMETOOLONG]: the name exceeds Options.MaxNameLength.
//   - [errors.EEXIST]: a file with that name exists. Nothing is allocated.
//   - [errors.ENOSPC]: there aren't enough free blocks. Nothing is allocated.
//
// On any error the store is unchanged.
func (driver *Driver) CreateFile(name string, content string) error {
	err := driver.validateName(name)
	if err != nil {
		return err
	}

	if _, err = driver.directory.Lookup(name); err == nil {
		return errors.NewWithMessage(errors.EEXIST, fmt.Sprintf("file %q already exists", name))
	}

	payloads, err := driver.encodeContent(content)
	if err != nil {
		return err
	}

	blocks, err := driver.freeList.Allocate(uint(len(payloads)))
	if err != nil {
		driver.logger.Warn("can't create %q: %s", name, err.Error())
		return err
	}

	head := common.None
	if len(blocks) > 0 {
		head = blocks[0]
	}

	err = driver.threadChain(blocks, payloads)
	if err == nil {
		err = driver.directory.Insert(
			directory.Entry{Name: name, Head: head, Length: uint(len(blocks))})
	}
	if err != nil {
		// Give the blocks back so a failure doesn't leak them.
		releaseErr := driver.freeList.Release(blocks)
		if releaseErr != nil {
			return errors.NewFromError(errors.EUCLEAN, releaseErr)
		}
		return err
	}

	driver.logger.Info(
		"created %q: %d blocks starting at %s, %d free",
		name,
		len(blocks),
		FormatBlockID(head),
		driver.freeList.Count(),
	)
	driver.logger.Debug("chain for %q: %v", name, blocks)
	return nil
}

// threadChain writes one payload into each block and links the blocks in the
// order given. The last block points to [common.None].
func (driver *Driver) threadChain(blocks []common.BlockID, payloads []common.Payload) error {
	for i, id := range blocks {
		next := common.None
		if i+1 < len(blocks) {
			next = blocks[i+1]
		}

		err := driver.arena.Set(id, arena.Block{Payload: payloads[i], Next: next})
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadFile returns the contents of the named file. It fails with
// [errors.ENOENT] if there's no such file, and with [errors.EUCLEAN] if the
// file's chain is damaged.
func (driver *Driver) ReadFile(name string) (string, error) {
	entry, err := driver.directory.Lookup(name)
	if err != nil {
		return "", err
	}

	chain, err := driver.fileChain(entry)
	if err != nil {
		driver.logger.Error("can't read %q: %s", name, err.Error())
		return "", err
	}

	var builder strings.Builder
	builder.Grow(len(chain))
	for _, id := range chain {
		payload, err := driver.arena.Payload(id)
		if err != nil {
			return "", errors.NewFromError(errors.EUCLEAN, err)
		}
		builder.WriteRune(rune(payload))
	}

	driver.logger.Debug("read %q: %d blocks", name, len(chain))
	return builder.String(), nil
}

// DeleteFile removes the named file and returns all of its blocks to the free
// list in a single step. It fails with [errors.ENOENT] if there's no such file.
//
// The chain is walked before the file is removed. If it's damaged this fails
// with [errors.EUCLEAN] and the file is left where it is, since there's no
// safe way to tell which blocks it really owns.
func (driver *Driver) DeleteFile(name string) error {
	entry, err := driver.directory.Lookup(name)
	if err != nil {
		return err
	}

	chain, err := driver.fileChain(entry)
	if err != nil {
		driver.logger.Error("can't delete %q: %s", name, err.Error())
		return err
	}

	if _, err = driver.directory.Remove(name); err != nil {
		return err
	}

	err = driver.freeList.Release(chain)
	if err != nil {
		// The chain was valid a moment ago, so the free list disagrees with the
		// directory about who owns a block. Put the entry back so the blocks
		// stay accounted for.
		_ = driver.directory.Insert(entry)
		return errors.NewFromError(errors.EUCLEAN, err)
	}

	driver.logger.Info(
		"deleted %q: %d blocks released, %d free", name, len(chain), driver.freeList.Count())
	return nil
}

// Stat returns summary information about the store.
func (driver *Driver) Stat() chainfs.FSStat {
	free := driver.freeList.Count()
	return chainfs.FSStat{
		TotalBlocks:   driver.arena.TotalBlocks(),
		BlocksFree:    free,
		BlocksUsed:    driver.arena.TotalBlocks() - free,
		Files:         uint(driver.directory.Len()),
		PayloadBits:   driver.options.PayloadBits,
		MaxNameLength: driver.options.MaxNameLength,
	}
}

// FormatBlockID renders a block index for humans, showing [common.None] as
// "NULL".
func FormatBlockID(id common.BlockID) string {
	if id == common.None {
		return "NULL"
	}
	return fmt.Sprintf("%d", id)
}
