// Package kdf drives key derivations through a tee.Session and checks them
// against published test vectors.
//
// Every vector runs the same seven steps: allocate an operation, allocate
// and populate a key object with the primary secret, bind it to the
// operation and free it, allocate the derived object, derive, and read the
// derived secret back. Handles opened along the way are released on every
// exit path.
package kdf

import (
	"fmt"

	"azoo.dev/utils/xtee/tee"
)

// Family is a derivation family. Families differ in the attributes their
// derive step accepts.
type Family int

const (
	FamilyHKDF Family = iota + 1
	FamilyConcatKDF
	FamilyPBKDF2
	FamilyScrypt
)

// Families lists all families in the order they are run.
var Families = []Family{FamilyHKDF, FamilyConcatKDF, FamilyPBKDF2, FamilyScrypt}

type familySpec struct {
	name       string
	subcase    string
	keyType    tee.ObjectType
	secretAttr tee.AttributeID
}

var families = map[Family]*familySpec{
	FamilyHKDF:      {"HKDF", "HKDF RFC 5869", tee.TypeHKDFIKM, tee.AttrHKDFIKM},
	FamilyConcatKDF: {"Concat KDF", "Concat KDF", tee.TypeConcatKDFZ, tee.AttrConcatKDFZ},
	FamilyPBKDF2:    {"PBKDF2", "PBKDF2", tee.TypePBKDF2Password, tee.AttrPBKDF2Password},
	FamilyScrypt:    {"scrypt", "Scrypt vector", tee.TypeScryptPassword, tee.AttrScryptPassword},
}

func (f Family) String() string {
	if spec, ok := families[f]; ok {
		return spec.name
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// Vector is one compiled-in test vector. Fields a family does not use are
// left empty.
type Vector struct {
	Family Family
	// ID identifies the vector within its family. For example: "A.1"
	ID string
	// Label is the human readable name used in reports.
	Label     string
	Algorithm tee.Algorithm

	// Secret is the primary secret: input keying material, shared secret Z
	// or password.
	Secret []byte
	// Salt is the optional salt of HKDF, PBKDF2 and scrypt.
	Salt []byte
	// Info is the optional HKDF info or Concat KDF OtherInfo.
	Info []byte

	// Iterations is the PBKDF2 iteration count.
	Iterations uint32
	// N, R and P are the scrypt cost factor, block size and parallelism.
	N, R, P uint32

	// Expected is the derived key. Its length is the requested length.
	Expected []byte

	// WorkingMemory documents the scrypt working memory in bytes. It is
	// informational only.
	WorkingMemory int
	// Slow marks vectors excluded from default runs because of their cost.
	Slow bool
}

// optionalBuffers returns the optional buffer attributes of v's derive
// step in attribute order.
func (v *Vector) optionalBuffers() []tee.Attribute {
	switch v.Family {
	case FamilyHKDF:
		return []tee.Attribute{
			tee.NewRefAttribute(tee.AttrHKDFSalt, v.Salt),
			tee.NewRefAttribute(tee.AttrHKDFInfo, v.Info),
		}
	case FamilyConcatKDF:
		return []tee.Attribute{tee.NewRefAttribute(tee.AttrConcatKDFOtherInfo, v.Info)}
	case FamilyPBKDF2:
		return []tee.Attribute{tee.NewRefAttribute(tee.AttrPBKDF2Salt, v.Salt)}
	case FamilyScrypt:
		return []tee.Attribute{tee.NewRefAttribute(tee.AttrScryptSalt, v.Salt)}
	}
	return nil
}

// Variant selects how zero-length optional buffers are passed.
type Variant int

const (
	// VariantDefault passes every optional buffer. Used for vectors without
	// zero-length optional buffers.
	VariantDefault Variant = iota
	// VariantEmpty passes zero-length optional buffers as present, empty
	// references.
	VariantEmpty
	// VariantOmitted leaves zero-length optional buffers out of the list.
	VariantOmitted
)

func (v Variant) String() string {
	switch v {
	case VariantDefault:
		return "default"
	case VariantEmpty:
		return "empty buffers"
	case VariantOmitted:
		return "omitted buffers"
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// Variants returns the variants v has to run with. A vector with any
// zero-length optional buffer runs both as VariantEmpty and VariantOmitted,
// since the two representations must derive the same key.
func Variants(v *Vector) []Variant {
	for _, a := range v.optionalBuffers() {
		if len(a.Ref) == 0 {
			return []Variant{VariantEmpty, VariantOmitted}
		}
	}
	return []Variant{VariantDefault}
}

// SubcaseName composes the reported name of v run as variant.
func SubcaseName(v *Vector, variant Variant) string {
	prefix := v.Family.String()
	if spec, ok := families[v.Family]; ok {
		prefix = spec.subcase
	}

	name := fmt.Sprintf("%s %s", prefix, v.Label)
	if variant != VariantDefault {
		name = fmt.Sprintf("%s [%s]", name, variant)
	}
	return name
}
