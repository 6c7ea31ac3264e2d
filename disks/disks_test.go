package disks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPredefinedProfile__Reference(t *testing.T) {
	profile, err := GetPredefinedProfile(DefaultProfileSlug)
	require.NoError(t, err)

	assert.Equal(t, "Reference disk", profile.Name)
	assert.EqualValues(t, 32, profile.TotalBlocks)
	assert.EqualValues(t, 16, profile.PayloadBits)
	assert.EqualValues(t, 0, profile.MaxNameLength)
	assert.Equal(t, "prepend", profile.ReclaimPolicy)
}

func TestGetPredefinedProfile__Missing(t *testing.T) {
	_, err := GetPredefinedProfile("zip-drive")
	assert.Error(t, err)
}

func TestListProfiles__Sorted(t *testing.T) {
	profiles := ListProfiles()
	require.NotEmpty(t, profiles)
	for i := 1; i < len(profiles); i++ {
		assert.Less(t, profiles[i-1].Slug, profiles[i].Slug)
	}
}

func TestParseProfiles__Duplicate(t *testing.T) {
	raw := "slug|name|total_blocks|payload_bits|max_name_length|reclaim_policy|notes\n" +
		"a|A|8|16|0|prepend|\n" +
		"a|A again|8|16|0|prepend|\n"
	_, err := parseProfiles(raw)
	assert.ErrorContains(t, err, "duplicate definition")
}
