package kdf

import (
	"testing"

	logger "github.com/harwoeck/liblog/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azoo.dev/utils/xtee/suite"
	"azoo.dev/utils/xtee/tee"
)

func runCase(t *testing.T, c suite.Case) *suite.Summary {
	r := suite.NewRegistry()
	require.NoError(t, r.Register(c))

	return suite.NewRunner(logger.MustNewStd()).Run(r.Cases())
}

func TestNewCase(t *testing.T) {
	s := newSoftSession(t)

	summary := runCase(t, NewCase(s, newDriver(), Options{}))
	require.Len(t, summary.Cases, 1)
	assert.Equal(t, "10001", summary.Cases[0].ID)
	assert.True(t, summary.Passed())
	assert.Zero(t, summary.SubcasesFailed)
	// 10 HKDF, 1 Concat KDF, 5 PBKDF2 and 6 scrypt subcases
	assert.Equal(t, 22, summary.SubcasesPassed)

	stats := s.Stats()
	assert.Equal(t, stats.Allocated, stats.Freed)
}

func TestNewCase_Families(t *testing.T) {
	s := newSoftSession(t)

	summary := runCase(t, NewCase(s, newDriver(), Options{Families: []Family{FamilyConcatKDF, FamilyPBKDF2}}))
	assert.True(t, summary.Passed())
	assert.Equal(t, 6, summary.SubcasesPassed)

	names := make([]string, 0, len(summary.Cases[0].Subcases))
	for _, sc := range summary.Cases[0].Subcases {
		names = append(names, sc.Name)
	}
	assert.Equal(t, "Concat KDF JWA-37 C (SHA-256)", names[0])
	assert.Equal(t, "PBKDF2 RFC 6070 6 (HMAC-SHA1)", names[5])
}

func TestNewCase_ContinuesAfterFailure(t *testing.T) {
	s := newCountingSession(newSoftSession(t))
	s.fail["DeriveKey"] = tee.Errorf(tee.StatusBadState, "injected")

	summary := runCase(t, NewCase(s, newDriver(), Options{Families: []Family{FamilyScrypt}}))
	assert.False(t, summary.Passed())
	assert.False(t, summary.Halted)
	assert.Equal(t, 6, summary.SubcasesFailed)
	assert.Zero(t, summary.SubcasesPassed)
	assert.Equal(t, s.allocs, s.frees)

	for _, sc := range summary.Cases[0].Subcases {
		assert.Contains(t, sc.Error, string(StepDerive))
	}
}
