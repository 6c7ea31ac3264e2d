package linked

import (
	"fmt"

	"github.com/dargueta/chainfs/common"
	"github.com/dargueta/chainfs/common/freelist"
	"github.com/dargueta/chainfs/disks"
	"github.com/dargueta/chainfs/errors"
	"github.com/dargueta/chainfs/utilities/log"
)

const (
	DefaultTotalBlocks = 32
	DefaultPayloadBits = 16
)

// Options configures a new [Driver]. Zero values are replaced with defaults by
// [New], so the zero Options gives the reference 32-block disk.
type Options struct {
	// TotalBlocks is the number of blocks in the arena, at most [common.MaxBlocks].
	TotalBlocks uint
	// PayloadBits is the width of one block's data unit: 8 or 16.
	PayloadBits uint
	// MaxNameLength limits file names, in characters. 0 means unlimited.
	MaxNameLength uint
	// ReclaimPolicy decides where freed blocks go in the free chain.
	ReclaimPolicy freelist.ReclaimPolicy
	// Logger receives operation logs. Nil discards them.
	Logger log.Logger
}

// OptionsFromProfile converts a predefined disk profile into driver options.
// The caller still needs to set the logger.
func OptionsFromProfile(profile disks.Profile) (Options, error) {
	policy, err := freelist.ParseReclaimPolicy(profile.ReclaimPolicy)
	if err != nil {
		return Options{}, err
	}

	return Options{
		TotalBlocks:   profile.TotalBlocks,
		PayloadBits:   profile.PayloadBits,
		MaxNameLength: profile.MaxNameLength,
		ReclaimPolicy: policy,
	}, nil
}

// withDefaults fills in unset fields and validates the result.
func (options Options) withDefaults() (Options, error) {
	if options.TotalBlocks == 0 {
		options.TotalBlocks = DefaultTotalBlocks
	}
	if options.PayloadBits == 0 {
		options.PayloadBits = DefaultPayloadBits
	}
	if options.Logger == nil {
		options.Logger = log.NewNopLogger()
	}

	if options.TotalBlocks > common.MaxBlocks {
		return options, errors.NewWithMessage(
			errors.EINVAL,
			fmt.Sprintf(
				"too many blocks: %d not in range [1, %d]",
				options.TotalBlocks,
				common.MaxBlocks,
			),
		)
	}
	if options.PayloadBits != 8 && options.PayloadBits != 16 {
		return options, errors.NewWithMessage(
			errors.EINVAL,
			fmt.Sprintf("payload must be 8 or 16 bits wide, got %d", options.PayloadBits),
		)
	}
	return options, nil
}
