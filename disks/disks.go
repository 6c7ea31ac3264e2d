package disks

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
)

// Profile is a predefined disk configuration.
type Profile struct {
	Name string `csv:"name"`
	Slug string `csv:"slug"`

	// TotalBlocks gives the number of blocks in the disk.
	TotalBlocks uint `csv:"total_blocks"`

	// PayloadBits gives the width of the data unit in a single block. Every
	// block holds exactly one character, so this limits which characters can
	// be stored.
	PayloadBits uint `csv:"payload_bits"`

	// MaxNameLength is the longest file name allowed, in characters. 0 means
	// unlimited.
	MaxNameLength uint `csv:"max_name_length"`

	// ReclaimPolicy is either "prepend" or "append".
	ReclaimPolicy string `csv:"reclaim_policy"`
	Notes         string `csv:"notes"`
}

// DefaultProfileSlug is the profile used when none is given.
const DefaultProfileSlug = "reference"

//go:embed disk-profiles.csv
var diskProfilesRawCSV string
var diskProfiles map[string]Profile

// GetPredefinedProfile returns the profile with the given slug.
func GetPredefinedProfile(slug string) (Profile, error) {
	profile, ok := diskProfiles[slug]
	if ok {
		return profile, nil
	}

	err := fmt.Errorf("no predefined disk profile exists with slug %q", slug)
	return Profile{}, err
}

// ListProfiles returns all predefined profiles sorted by slug.
func ListProfiles() []Profile {
	profiles := make([]Profile, 0, len(diskProfiles))
	for _, profile := range diskProfiles {
		profiles = append(profiles, profile)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Slug < profiles[j].Slug
	})
	return profiles
}

func parseProfiles(rawCSV string) (map[string]Profile, error) {
	csvReader := csv.NewReader(strings.NewReader(rawCSV))
	csvReader.Comma = '|'

	var rows []Profile
	err := gocsv.UnmarshalCSV(csvReader, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to decode disk profiles: %w", err)
	}

	profiles := make(map[string]Profile, len(rows))
	for i, row := range rows {
		_, exists := profiles[row.Slug]
		if exists {
			return nil, fmt.Errorf(
				"duplicate definition for profile %q found on row %d", row.Slug, i+1)
		}
		profiles[row.Slug] = row
	}
	return profiles, nil
}

func init() {
	profiles, err := parseProfiles(diskProfilesRawCSV)
	if err != nil {
		panic(err)
	}
	diskProfiles = profiles
}
