package linked

import (
	"io"

	"github.com/dargueta/chainfs/common"
	"github.com/dargueta/chainfs/common/arena"
)

// RawImage returns the raw contents of the driver's arena.
func (driver *Driver) RawImage() ([]byte, error) {
	return driver.arena.MarshalBinary()
}

// LoadRawImage overwrites every block of the arena with an image read from
// `stream`, without touching the free list or the directory. This is how tests
// damage a store.
func (driver *Driver) LoadRawImage(stream io.Reader) error {
	loaded, err := arena.Load(stream, driver.arena.TotalBlocks())
	if err != nil {
		return err
	}

	for i := common.BlockID(0); uint(i) < loaded.TotalBlocks(); i++ {
		block, err := loaded.Get(i)
		if err != nil {
			return err
		}
		if err = driver.arena.Set(i, block); err != nil {
			return err
		}
	}
	return nil
}
