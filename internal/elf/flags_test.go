package elf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagTokens_Empty(t *testing.T) {
	flags, warnings, err := ParseFlagTokens("")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, SectionFlag(0), flags)
}

func TestParseFlagTokens_KnownTokens(t *testing.T) {
	flags, warnings, err := ParseFlagTokens("alloc,code,readonly")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.NotZero(t, flags&SHF_ALLOC)
	assert.NotZero(t, flags&SHF_EXECINSTR)
	assert.NotZero(t, flags&InternalReadonly)
}

func TestParseFlagTokens_CaseInsensitiveAndWhitespace(t *testing.T) {
	flags, warnings, err := ParseFlagTokens(" ALLOC , Code ")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.NotZero(t, flags&SHF_ALLOC)
	assert.NotZero(t, flags&SHF_EXECINSTR)
}

func TestParseFlagTokens_UnrecognizedTokenWarnsNotErrors(t *testing.T) {
	flags, warnings, err := ParseFlagTokens("alloc,bogus")
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "bogus")
	assert.NotZero(t, flags&SHF_ALLOC)
}

func TestApplyFlags_ReadonlyClearsWrite(t *testing.T) {
	existing := SHF_ALLOC | SHF_WRITE
	parsed, _, err := ParseFlagTokens("readonly")
	require.NoError(t, err)

	result := ApplyFlags(existing, parsed)
	assert.Zero(t, result&SHF_WRITE)
	assert.NotZero(t, result&SHF_ALLOC)
}

func TestApplyFlags_DataSetsWrite(t *testing.T) {
	parsed, _, err := ParseFlagTokens("data")
	require.NoError(t, err)

	result := ApplyFlags(0, parsed)
	assert.NotZero(t, result&SHF_WRITE)
}

func TestApplyFlags_OrsInExistingBits(t *testing.T) {
	existing := SHF_ALLOC
	parsed, _, err := ParseFlagTokens("code")
	require.NoError(t, err)

	result := ApplyFlags(existing, parsed)
	assert.NotZero(t, result&SHF_ALLOC)
	assert.NotZero(t, result&SHF_EXECINSTR)
}
