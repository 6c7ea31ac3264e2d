package testing

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// ImageStream returns a stream over a raw disk image, such as one returned by
// arena.Arena.MarshalBinary().
//
//   - Writes to the stream modify `rawImage`.
//   - While the stream can be written to, its size is fixed to len(rawImage).
//     Attempting to write past the end of this buffer will trigger an error.
func ImageStream(t *testing.T, rawImage []byte) io.ReadWriteSeeker {
	require.Greater(t, len(rawImage), 0, "raw image is empty")
	return bytesextra.NewReadWriteSeeker(rawImage)
}

// PatchLink overwrites the link of one block in a raw image stream, leaving its
// payload alone, and rewinds the stream. It's for building damaged images.
func PatchLink(t *testing.T, image io.WriteSeeker, block uint, next uint16) {
	// Each block is a little-endian word with the link in the upper half.
	_, err := image.Seek(int64(block)*4+2, io.SeekStart)
	require.NoErrorf(t, err, "failed to seek to block %d", block)

	err = binary.Write(image, binary.LittleEndian, next)
	require.NoErrorf(t, err, "failed to patch link of block %d", block)

	_, err = image.Seek(0, io.SeekStart)
	require.NoError(t, err, "failed to rewind image")
}
