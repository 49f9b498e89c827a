package kdf

import (
	"azoo.dev/utils/xtee/suite"
	"azoo.dev/utils/xtee/tee"
)

// Options selects what the key derivation case runs.
type Options struct {
	// IncludeSlow adds vectors marked as slow, for example the PBKDF2 vector
	// with 16777216 iterations.
	IncludeSlow bool
	// Families restricts the case to the given families. All families run
	// if it is empty.
	Families []Family
}

// RunFamily runs every vector of family f as its own subcase of t. A vector
// with a zero-length optional buffer runs once per variant. Failures are
// recorded and the next vector runs regardless.
func RunFamily(t *suite.T, s tee.Session, d *Driver, f Family, slow bool) {
	for _, v := range Catalog(f, slow) {
		v := v
		for _, variant := range Variants(&v) {
			variant := variant
			t.Subcase(SubcaseName(&v, variant), func() error {
				return d.Run(s, &v, variant)
			})
			if t.Halted() {
				return
			}
		}
	}
}

// NewCase returns the key derivation case. It runs the catalog of every
// selected family against s.
func NewCase(s tee.Session, d *Driver, opts Options) suite.Case {
	families := opts.Families
	if len(families) == 0 {
		families = Families
	}

	return suite.Case{
		ID:          "10001",
		Title:       "Test TEE Internal API key derivation extensions",
		Description: "Derives keys with HKDF, Concat KDF, PBKDF2 and scrypt and compares them to published test vectors",
		Requirement: "TEE Internal API key derivation extensions",
		Run: func(t *suite.T) {
			for _, f := range families {
				RunFamily(t, s, d, f, opts.IncludeSlow)
			}
		},
	}
}
