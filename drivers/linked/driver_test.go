package linked_test

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/dargueta/chainfs/common"
	"github.com/dargueta/chainfs/common/freelist"
	"github.com/dargueta/chainfs/disks"
	"github.com/dargueta/chainfs/drivers/linked"
	"github.com/dargueta/chainfs/errors"
	chainfstest "github.com/dargueta/chainfs/testing"
	"github.com/dargueta/chainfs/utilities/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blockRange(start, end common.BlockID) []common.BlockID {
	result := []common.BlockID{}
	for i := start; i < end; i++ {
		result = append(result, i)
	}
	return result
}

func fileBlocks(t *testing.T, store *linked.Driver, name string) []common.BlockID {
	snapshot, err := store.Inspect()
	require.NoError(t, err)
	for _, file := range snapshot.Files {
		if file.Name == name {
			return file.Blocks
		}
	}
	t.Fatalf("file %q not in snapshot", name)
	return nil
}

func TestNew__Defaults(t *testing.T) {
	store := chainfstest.NewReferenceStore(t)
	stat := store.Stat()

	assert.EqualValues(t, 32, stat.TotalBlocks)
	assert.EqualValues(t, 32, stat.BlocksFree)
	assert.EqualValues(t, 0, stat.BlocksUsed)
	assert.EqualValues(t, 0, stat.Files)
	assert.EqualValues(t, 16, stat.PayloadBits)
	chainfstest.AssertConsistent(t, store)
}

func TestNew__InvalidOptions(t *testing.T) {
	_, err := linked.New(linked.Options{PayloadBits: 12})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = linked.New(linked.Options{TotalBlocks: 70000})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestOptionsFromProfile(t *testing.T) {
	profile, err := disks.GetPredefinedProfile("classroom")
	require.NoError(t, err)

	options, err := linked.OptionsFromProfile(profile)
	require.NoError(t, err)
	assert.EqualValues(t, 32, options.TotalBlocks)
	assert.EqualValues(t, 4, options.MaxNameLength)
	assert.Equal(t, freelist.Prepend, options.ReclaimPolicy)

	profile.ReclaimPolicy = "random"
	_, err = linked.OptionsFromProfile(profile)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

// The sequence of operations from the original exercise: fill most of the
// disk, fail to fit a fourth file, delete the second, and then the fourth file
// fits in the reclaimed blocks.
func TestReferenceScenario__Prepend(t *testing.T) {
	store := chainfstest.NewReferenceStore(t)

	chainfstest.MustCreate(t, store, "f1", "Pernambuco")
	chainfstest.MustCreate(t, store, "f2", "Sao Paulo")
	chainfstest.MustCreate(t, store, "f3", "Alagoas")
	assert.EqualValues(t, 6, store.Stat().BlocksFree)
	assert.Equal(t, blockRange(10, 19), fileBlocks(t, store, "f2"))

	err := store.CreateFile("f4", "Santa Catarina")
	assert.ErrorIs(t, err, errors.ErrInsufficientSpace)
	assert.EqualValues(t, 6, store.Stat().BlocksFree)

	require.NoError(t, store.DeleteFile("f2"))
	assert.EqualValues(t, 15, store.Stat().BlocksFree)

	chainfstest.MustCreate(t, store, "f4", "Santa Catarina")
	assert.EqualValues(t, 1, store.Stat().BlocksFree)

	// f2's blocks come back reversed, followed by the untouched tail of the
	// disk.
	expected := []common.BlockID{18, 17, 16, 15, 14, 13, 12, 11, 10, 26, 27, 28, 29, 30}
	assert.Equal(t, expected, fileBlocks(t, store, "f4"))

	content, err := store.ReadFile("f4")
	require.NoError(t, err)
	assert.Equal(t, "Santa Catarina", content)

	for name, expected := range map[string]string{"f1": "Pernambuco", "f3": "Alagoas"} {
		content, err := store.ReadFile(name)
		require.NoError(t, err)
		assert.Equal(t, expected, content)
	}
	chainfstest.AssertConsistent(t, store)
}

func TestReferenceScenario__Append(t *testing.T) {
	store := chainfstest.NewStore(t, linked.Options{ReclaimPolicy: freelist.Append})

	chainfstest.MustCreate(t, store, "f1", "Pernambuco")
	chainfstest.MustCreate(t, store, "f2", "Sao Paulo")
	chainfstest.MustCreate(t, store, "f3", "Alagoas")
	require.NoError(t, store.DeleteFile("f2"))
	chainfstest.MustCreate(t, store, "f4", "Santa Catarina")

	expected := append(blockRange(26, 32), blockRange(10, 18)...)
	assert.Equal(t, expected, fileBlocks(t, store, "f4"))

	content, err := store.ReadFile("f4")
	require.NoError(t, err)
	assert.Equal(t, "Santa Catarina", content)
	chainfstest.AssertConsistent(t, store)
}

func TestCreateFile__RoundTrip(t *testing.T) {
	contents := map[string]string{
		"single":  "x",
		"spaces":  "  a b  ",
		"unicode": "São Paulo",
		"full":    "0123456789abcdefghijklmnopqrstuv",
	}

	for name, content := range contents {
		t.Run(name, func(t *testing.T) {
			store := chainfstest.NewReferenceStore(t)
			chainfstest.MustCreate(t, store, name, content)

			readBack, err := store.ReadFile(name)
			require.NoError(t, err)
			assert.Equal(t, content, readBack)
			chainfstest.AssertConsistent(t, store)
		})
	}
}

func TestCreateFile__EmptyContent(t *testing.T) {
	store := chainfstest.NewReferenceStore(t)
	chainfstest.MustCreate(t, store, "empty", "")

	snapshot, err := store.Inspect()
	require.NoError(t, err)
	require.Len(t, snapshot.Files, 1)
	assert.Equal(t, common.None, snapshot.Files[0].Head)
	assert.Empty(t, snapshot.Files[0].Blocks)
	assert.EqualValues(t, 32, store.Stat().BlocksFree)

	content, err := store.ReadFile("empty")
	require.NoError(t, err)
	assert.Equal(t, "", content)

	require.NoError(t, store.DeleteFile("empty"))
	chainfstest.AssertConsistent(t, store)
}

func TestCreateFile__DuplicateName(t *testing.T) {
	store := chainfstest.NewReferenceStore(t)
	chainfstest.MustCreate(t, store, "f1", "abc")

	before, err := store.Inspect()
	require.NoError(t, err)

	err = store.CreateFile("f1", "defg")
	assert.ErrorIs(t, err, errors.ErrDuplicateName)

	after, err := store.Inspect()
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed create modified the store")

	content, _ := store.ReadFile("f1")
	assert.Equal(t, "abc", content)
}

// A create that doesn't fit must leave every block, the free chain and the
// directory exactly as they were.
func TestCreateFile__InsufficientSpaceChangesNothing(t *testing.T) {
	store := chainfstest.NewStore(t, linked.Options{TotalBlocks: 10})
	chainfstest.MustCreate(t, store, "a", "1234")
	chainfstest.MustCreate(t, store, "b", "56")
	require.NoError(t, store.DeleteFile("a"))

	before, err := store.Inspect()
	require.NoError(t, err)

	err = store.CreateFile("c", "123456789")
	assert.ErrorIs(t, err, errors.ErrInsufficientSpace)

	after, err := store.Inspect()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.EqualValues(t, 8, store.Stat().BlocksFree)

	_, err = store.ReadFile("c")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestCreateFile__InvalidInput(t *testing.T) {
	store := chainfstest.NewStore(t, linked.Options{PayloadBits: 8, MaxNameLength: 4})

	assert.ErrorIs(t, store.CreateFile("", "abc"), errors.ErrInvalidArgument)
	assert.ErrorIs(t, store.CreateFile("   ", "abc"), errors.ErrInvalidArgument)
	assert.ErrorIs(t, store.CreateFile("toolong", "abc"), errors.ErrNameTooLong)
	assert.ErrorIs(t, store.CreateFile("ok", "Łódź"), errors.ErrInvalidArgument)
	assert.ErrorIs(t, store.CreateFile("nul", "a\x00b"), errors.ErrInvalidArgument)
	assert.ErrorIs(t, store.CreateFile("utf", "\xff\xfe"), errors.ErrInvalidArgument)

	// Four characters is fine, and so is Latin-1 text in an 8-bit block.
	chainfstest.MustCreate(t, store, "café", "ação")

	assert.EqualValues(t, 1, store.Stat().Files)
	assert.EqualValues(t, 28, store.Stat().BlocksFree)
	chainfstest.AssertConsistent(t, store)
}

func TestCreateFile__SixteenBitPayloadRejectsAstralCharacters(t *testing.T) {
	store := chainfstest.NewReferenceStore(t)
	err := store.CreateFile("emoji", "hi 🙂")
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.EqualValues(t, 32, store.Stat().BlocksFree)
}

func TestReadFile__NotFound(t *testing.T) {
	store := chainfstest.NewReferenceStore(t)
	_, err := store.ReadFile("nope")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDeleteFile__Twice(t *testing.T) {
	store := chainfstest.NewReferenceStore(t)
	chainfstest.MustCreate(t, store, "f1", "abc")

	assert.NoError(t, store.DeleteFile("f1"))
	assert.ErrorIs(t, store.DeleteFile("f1"), errors.ErrNotFound)
	assert.EqualValues(t, 32, store.Stat().BlocksFree)
	chainfstest.AssertConsistent(t, store)
}

func TestDeleteFile__ClearsBlocks(t *testing.T) {
	store := chainfstest.NewReferenceStore(t)
	chainfstest.MustCreate(t, store, "f1", "abc")
	require.NoError(t, store.DeleteFile("f1"))

	snapshot, err := store.Inspect()
	require.NoError(t, err)
	for _, block := range snapshot.Blocks {
		assert.Equalf(t, common.EmptyPayload, block.Payload, "block %d still has data", block.Index)
		assert.True(t, block.Free)
		assert.Empty(t, block.Owner)
	}
}

// Files built from a badly fragmented free list must still read back
// correctly.
func TestFragmentation(t *testing.T) {
	store := chainfstest.NewReferenceStore(t)
	for i := 0; i < 16; i++ {
		chainfstest.MustCreate(t, store, fmt.Sprintf("f%d", i), "ab")
	}
	for i := 0; i < 16; i += 2 {
		require.NoError(t, store.DeleteFile(fmt.Sprintf("f%d", i)))
	}

	chainfstest.MustCreate(t, store, "big", "sixteen chars!!!")
	blocks := fileBlocks(t, store, "big")
	require.Len(t, blocks, 16)

	contiguous := true
	for i := 1; i < len(blocks); i++ {
		if blocks[i] != blocks[i-1]+1 {
			contiguous = false
		}
	}
	assert.False(t, contiguous, "expected the file to be scattered across the disk")

	content, err := store.ReadFile("big")
	require.NoError(t, err)
	assert.Equal(t, "sixteen chars!!!", content)
	chainfstest.AssertConsistent(t, store)
}

// Run a long random sequence of operations and make sure the invariants hold
// after every single one.
func TestRandomOperationsPreserveInvariants(t *testing.T) {
	for _, policy := range []freelist.ReclaimPolicy{freelist.Prepend, freelist.Append} {
		t.Run(policy.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(1977))
			store := chainfstest.NewStore(t, linked.Options{TotalBlocks: 48, ReclaimPolicy: policy})
			contents := map[string]string{}

			for step := 0; step < 400; step++ {
				name := fmt.Sprintf("f%d", rng.Intn(12))
				if rng.Intn(3) == 0 {
					err := store.DeleteFile(name)
					if _, exists := contents[name]; exists {
						require.NoErrorf(t, err, "step %d: delete %q", step, name)
						delete(contents, name)
					} else {
						require.ErrorIsf(t, err, errors.ErrNotFound, "step %d", step)
					}
				} else {
					content := string(bytes.Repeat([]byte{byte('a' + rng.Intn(26))}, rng.Intn(15)))
					err := store.CreateFile(name, content)
					free := store.Stat().BlocksFree
					switch {
					case err == nil:
						contents[name] = content
					case errors.Code(err) == errors.EEXIST:
						require.Containsf(t, contents, name, "step %d", step)
					default:
						require.ErrorIsf(t, err, errors.ErrInsufficientSpace, "step %d", step)
						require.Greaterf(t, uint(len(content)), free, "step %d", step)
					}
				}

				chainfstest.AssertConsistent(t, store)
			}

			for name, expected := range contents {
				content, err := store.ReadFile(name)
				require.NoError(t, err)
				assert.Equal(t, expected, content)
			}
		})
	}
}

func TestLogging(t *testing.T) {
	var buffer bytes.Buffer
	logger := log.NewStandardLogger(log.WithOutput(&buffer), log.WithLevel(log.LevelInfo))
	store := chainfstest.NewStore(t, linked.Options{Logger: logger})

	chainfstest.MustCreate(t, store, "f1", "abc")
	assert.Contains(t, buffer.String(), `component=linked created "f1": 3 blocks starting at 0, 29 free`)

	require.NoError(t, store.DeleteFile("f1"))
	assert.Contains(t, buffer.String(), `deleted "f1": 3 blocks released, 32 free`)
}

func TestInspect__ChecksumTracksContents(t *testing.T) {
	first := chainfstest.NewReferenceStore(t)
	second := chainfstest.NewReferenceStore(t)

	before, err := first.Inspect()
	require.NoError(t, err)

	chainfstest.MustCreate(t, first, "f1", "abc")
	chainfstest.MustCreate(t, second, "f1", "abc")
	afterFirst, err := first.Inspect()
	require.NoError(t, err)
	afterSecond, err := second.Inspect()
	require.NoError(t, err)

	assert.NotEqual(t, before.Checksum, afterFirst.Checksum)
	assert.Equal(t, afterFirst.Checksum, afterSecond.Checksum)
	assert.Equal(t, "f1", afterFirst.Blocks[2].Owner)
	assert.Equal(t, common.BlockID(3), afterFirst.FreeHead)
}

func TestFormatBlockID(t *testing.T) {
	assert.Equal(t, "NULL", linked.FormatBlockID(common.None))
	assert.Equal(t, "17", linked.FormatBlockID(17))
}
