package testing

import (
	"testing"

	"github.com/dargueta/chainfs"
	"github.com/dargueta/chainfs/drivers/linked"
	"github.com/dargueta/chainfs/utilities/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewStore creates a store with the given options, failing the test if that
// isn't possible. Logging is discarded unless `options.Logger` is set.
func NewStore(t *testing.T, options linked.Options) *linked.Driver {
	if options.Logger == nil {
		options.Logger = log.NewNopLogger()
	}

	driver, err := linked.New(options)
	require.NoError(t, err, "failed to create store")
	return driver
}

// NewReferenceStore creates the default 32-block store.
func NewReferenceStore(t *testing.T) *linked.Driver {
	return NewStore(t, linked.Options{})
}

// AssertConsistent checks every invariant of the store: each block is in
// exactly one chain, and the free count plus the length of every file adds up
// to the total number of blocks.
func AssertConsistent(t *testing.T, store chainfs.InspectingStore) {
	t.Helper()
	assert.NoError(t, store.Check(), "store is inconsistent")

	snapshot, err := store.Inspect()
	require.NoError(t, err, "inspecting the store failed")

	total := snapshot.FreeCount
	for _, file := range snapshot.Files {
		total += uint(len(file.Blocks))
	}
	assert.Equal(t, snapshot.TotalBlocks, total, "blocks aren't conserved")
	assert.Len(t, snapshot.FreeBlocks, int(snapshot.FreeCount), "free chain length is wrong")
}

// MustCreate creates a file and fails the test immediately if that fails.
func MustCreate(t *testing.T, store chainfs.WritingStore, name, content string) {
	t.Helper()
	require.NoErrorf(t, store.CreateFile(name, content), "failed to create %q", name)
}
