// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BCSkins-com/bcskins-inspect/internal/models"
)

func TestParseLink_OwnerForm(t *testing.T) {
	link := "steam://rungame/730/76561202255233023/+csgo_econ_action_preview S76561198000000000A123456789D987654321"

	d, err := ParseLink(link)
	require.NoError(t, err)
	assert.EqualValues(t, 76561198000000000, d.S)
	assert.EqualValues(t, 123456789, d.A)
	assert.EqualValues(t, 987654321, d.D)
	assert.Zero(t, d.M)
}

func TestParseLink_MarketForm(t *testing.T) {
	link := "steam://rungame/730/76561202255233023/+csgo_econ_action_preview M12345A123456789D987654321"

	d, err := ParseLink(link)
	require.NoError(t, err)
	assert.EqualValues(t, 12345, d.M)
	assert.True(t, d.IsMarketItem())
}

func TestParseLink_PercentEncodedSpace(t *testing.T) {
	link := "steam://rungame/730/76561202255233023/+csgo_econ_action_preview%20S76561198000000000A123D456"

	d, err := ParseLink(link)
	require.NoError(t, err)
	assert.EqualValues(t, 76561198000000000, d.S)
	assert.EqualValues(t, 123, d.A)
	assert.EqualValues(t, 456, d.D)
}

func TestParseLink_Malformed(t *testing.T) {
	_, err := ParseLink("not a steam link")
	require.Error(t, err)
}

func TestRoundTrip_OwnerDescriptor(t *testing.T) {
	d := models.Descriptor{S: 76561198000000000, A: 111, D: 222}

	parsed, err := ParseLink(Format(d))
	require.NoError(t, err)
	assert.Equal(t, d.S, parsed.S)
	assert.Equal(t, d.A, parsed.A)
	assert.Equal(t, d.D, parsed.D)
	assert.Equal(t, d.M, parsed.M)
}

func TestRoundTrip_MarketDescriptor(t *testing.T) {
	d := models.Descriptor{M: 555, A: 111, D: 222}

	parsed, err := ParseLink(Format(d))
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestValidate_RejectsBothSAndM(t *testing.T) {
	d := models.Descriptor{S: 1, M: 1, A: 1, D: 1}
	require.Error(t, Validate(d))
}

func TestValidate_RejectsNeitherSNorM(t *testing.T) {
	d := models.Descriptor{A: 1, D: 1}
	require.Error(t, Validate(d))
}

func TestValidate_RequiresAssetAndProof(t *testing.T) {
	d := models.Descriptor{S: 1}
	require.Error(t, Validate(d))
}
