package kdf

import (
	"azoo.dev/utils/xtee/tee"
)

// Phase selects which attribute list Encode produces.
type Phase int

const (
	// PhasePopulate is the list populating the key object: the primary
	// secret only.
	PhasePopulate Phase = iota
	// PhaseDerive is the parameter list of the derive step.
	PhaseDerive
)

func (p Phase) String() string {
	if p == PhasePopulate {
		return "populate"
	}
	return "derive"
}

// Encode translates v into the attribute list of phase. The result depends
// only on its arguments and is freshly allocated on every call. Buffer
// attributes reference v's buffers, which stay valid for the duration of the
// boundary call.
//
// Derive lists are ordered optional buffers first, then value attributes:
//
//	HKDF:       [salt] [info] okm-length
//	Concat KDF: [other-info] dkm-length
//	PBKDF2:     [salt] dkm-length iteration-count
//	scrypt:     [salt] N r p dk-length
//
// With VariantOmitted a zero-length optional buffer is left out of the list.
func Encode(v *Vector, phase Phase, variant Variant) []tee.Attribute {
	if phase == PhasePopulate {
		spec, ok := families[v.Family]
		if !ok {
			return nil
		}
		return []tee.Attribute{tee.NewRefAttribute(spec.secretAttr, v.Secret)}
	}

	var attrs []tee.Attribute
	for _, a := range v.optionalBuffers() {
		if len(a.Ref) == 0 && variant == VariantOmitted {
			continue
		}
		attrs = append(attrs, a)
	}

	outLen := uint32(len(v.Expected))
	switch v.Family {
	case FamilyHKDF:
		attrs = append(attrs, tee.NewValueAttribute(tee.AttrHKDFOKMLength, outLen, 0))
	case FamilyConcatKDF:
		attrs = append(attrs, tee.NewValueAttribute(tee.AttrConcatKDFDKMLength, outLen, 0))
	case FamilyPBKDF2:
		attrs = append(attrs,
			tee.NewValueAttribute(tee.AttrPBKDF2DKMLength, outLen, 0),
			tee.NewValueAttribute(tee.AttrPBKDF2IterationCount, v.Iterations, 0))
	case FamilyScrypt:
		attrs = append(attrs,
			tee.NewValueAttribute(tee.AttrScryptN, v.N, 0),
			tee.NewValueAttribute(tee.AttrScryptR, v.R, 0),
			tee.NewValueAttribute(tee.AttrScryptP, v.P, 0),
			tee.NewValueAttribute(tee.AttrScryptDKLength, outLen, 0))
	}
	return attrs
}
