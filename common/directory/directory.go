// Package directory implements the flat table mapping file names to the first
// block of their chains.
package directory

import (
	"fmt"

	"github.com/dargueta/chainfs/common"
	"github.com/dargueta/chainfs/errors"
)

// Entry is a single file in the directory. Head is [common.None] for an empty
// file. Length is the number of blocks in the file's chain when it was created.
type Entry struct {
	Name   string
	Head   common.BlockID
	Length uint
}

// Directory keeps its entries in the order they were inserted, so listings are
// stable from one call to the next.
type Directory struct {
	entries []Entry
	index   map[string]int
}

func New() *Directory {
	return &Directory{
		index: make(map[string]int),
	}
}

// Len gives the number of entries in the directory.
func (dir *Directory) Len() int {
	return len(dir.entries)
}

// Lookup returns the entry for `name`, or an error with code [errors.ENOENT] if
// there isn't one.
func (dir *Directory) Lookup(name string) (Entry, error) {
	position, ok := dir.index[name]
	if !ok {
		return Entry{}, notFound(name)
	}
	return dir.entries[position], nil
}

// Insert adds a new entry. If an entry with the same name exists this fails with
// [errors.EEXIST] and the directory is unchanged.
func (dir *Directory) Insert(entry Entry) error {
	if _, exists := dir.index[entry.Name]; exists {
		return errors.NewWithMessage(
			errors.EEXIST, fmt.Sprintf("%q is already in the directory", entry.Name))
	}

	dir.index[entry.Name] = len(dir.entries)
	dir.entries = append(dir.entries, entry)
	return nil
}

// Remove deletes the entry for `name` and returns it, so the caller can reclaim
// its blocks.
func (dir *Directory) Remove(name string) (Entry, error) {
	position, ok := dir.index[name]
	if !ok {
		return Entry{}, notFound(name)
	}

	removed := dir.entries[position]
	dir.entries = append(dir.entries[:position], dir.entries[position+1:]...)
	delete(dir.index, name)

	// Everything after the removed entry moved down one slot.
	for i := position; i < len(dir.entries); i++ {
		dir.index[dir.entries[i].Name] = i
	}
	return removed, nil
}

// Entries returns a copy of all entries in insertion order.
func (dir *Directory) Entries() []Entry {
	entries := make([]Entry, len(dir.entries))
	copy(entries, dir.entries)
	return entries
}

func notFound(name string) error {
	return errors.NewWithMessage(
		errors.ENOENT, fmt.Sprintf("%q is not in the directory", name))
}
