package tee

import "fmt"

// Algorithm identifies a derivation algorithm.
type Algorithm uint32

const (
	AlgHKDFSHA1DeriveKey        Algorithm = 0x800020C0
	AlgHKDFSHA256DeriveKey      Algorithm = 0x800040C0
	AlgConcatKDFSHA1DeriveKey   Algorithm = 0x800020C1
	AlgConcatKDFSHA256DeriveKey Algorithm = 0x800040C1
	AlgPBKDF2HMACSHA1DeriveKey  Algorithm = 0x800020C2
	AlgScryptDeriveKey          Algorithm = 0x800000C3
)

var algorithmNames = map[Algorithm]string{
	AlgHKDFSHA1DeriveKey:        "HKDF_SHA1_DERIVE_KEY",
	AlgHKDFSHA256DeriveKey:      "HKDF_SHA256_DERIVE_KEY",
	AlgConcatKDFSHA1DeriveKey:   "CONCAT_KDF_SHA1_DERIVE_KEY",
	AlgConcatKDFSHA256DeriveKey: "CONCAT_KDF_SHA256_DERIVE_KEY",
	AlgPBKDF2HMACSHA1DeriveKey:  "PBKDF2_HMAC_SHA1_DERIVE_KEY",
	AlgScryptDeriveKey:          "SCRYPT_DERIVE_KEY",
}

func (a Algorithm) String() string {
	if name, ok := algorithmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("ALG_%#08x", uint32(a))
}

// KeyType returns the object type an operation of a accepts as its key.
func (a Algorithm) KeyType() (ObjectType, bool) {
	switch a {
	case AlgHKDFSHA1DeriveKey, AlgHKDFSHA256DeriveKey:
		return TypeHKDFIKM, true
	case AlgConcatKDFSHA1DeriveKey, AlgConcatKDFSHA256DeriveKey:
		return TypeConcatKDFZ, true
	case AlgPBKDF2HMACSHA1DeriveKey:
		return TypePBKDF2Password, true
	case AlgScryptDeriveKey:
		return TypeScryptPassword, true
	}
	return 0, false
}

// Mode is the operation mode an operation is allocated for.
type Mode uint32

// ModeDerive is the only mode used by key derivation operations.
const ModeDerive Mode = 6

// ObjectType tags the kind of key material an object holds.
type ObjectType uint32

const (
	TypeGenericSecret  ObjectType = 0xA0000000
	TypeHKDFIKM        ObjectType = 0xA10000C0
	TypeConcatKDFZ     ObjectType = 0xA10000C1
	TypePBKDF2Password ObjectType = 0xA10000C2
	TypeScryptPassword ObjectType = 0xA10000C3
)

var objectTypeNames = map[ObjectType]string{
	TypeGenericSecret:  "GENERIC_SECRET",
	TypeHKDFIKM:        "HKDF_IKM",
	TypeConcatKDFZ:     "CONCAT_KDF_Z",
	TypePBKDF2Password: "PBKDF2_PASSWORD",
	TypeScryptPassword: "SCRYPT_PASSWORD",
}

func (t ObjectType) String() string {
	if name, ok := objectTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TYPE_%#08x", uint32(t))
}

// SecretAttribute returns the buffer attribute that carries the key material
// of an object of type t.
func (t ObjectType) SecretAttribute() (AttributeID, bool) {
	switch t {
	case TypeGenericSecret:
		return AttrSecretValue, true
	case TypeHKDFIKM:
		return AttrHKDFIKM, true
	case TypeConcatKDFZ:
		return AttrConcatKDFZ, true
	case TypePBKDF2Password:
		return AttrPBKDF2Password, true
	case TypeScryptPassword:
		return AttrScryptPassword, true
	}
	return 0, false
}

// AttributeID identifies an attribute. Bit 29 marks value attributes, all
// other attributes reference a buffer.
type AttributeID uint32

const attrFlagValue AttributeID = 1 << 29

const (
	AttrSecretValue AttributeID = 0xC0000000

	AttrHKDFIKM       AttributeID = 0xC00001C0
	AttrHKDFSalt      AttributeID = 0xD00002C0
	AttrHKDFInfo      AttributeID = 0xD00003C0
	AttrHKDFOKMLength AttributeID = 0xF00004C0

	AttrConcatKDFZ         AttributeID = 0xC00001C1
	AttrConcatKDFOtherInfo AttributeID = 0xD00002C1
	AttrConcatKDFDKMLength AttributeID = 0xF00003C1

	AttrPBKDF2Password       AttributeID = 0xC00001C2
	AttrPBKDF2Salt           AttributeID = 0xD00002C2
	AttrPBKDF2IterationCount AttributeID = 0xF00003C2
	AttrPBKDF2DKMLength      AttributeID = 0xF00004C2

	AttrScryptPassword AttributeID = 0xC00001C3
	AttrScryptSalt     AttributeID = 0xD00002C3
	AttrScryptN        AttributeID = 0xF00003C3
	AttrScryptR        AttributeID = 0xF00004C3
	AttrScryptP        AttributeID = 0xF00005C3
	AttrScryptDKLength AttributeID = 0xF00006C3
)

var attributeNames = map[AttributeID]string{
	AttrSecretValue:          "SECRET_VALUE",
	AttrHKDFIKM:              "HKDF_IKM",
	AttrHKDFSalt:             "HKDF_SALT",
	AttrHKDFInfo:             "HKDF_INFO",
	AttrHKDFOKMLength:        "HKDF_OKM_LENGTH",
	AttrConcatKDFZ:           "CONCAT_KDF_Z",
	AttrConcatKDFOtherInfo:   "CONCAT_KDF_OTHER_INFO",
	AttrConcatKDFDKMLength:   "CONCAT_KDF_DKM_LENGTH",
	AttrPBKDF2Password:       "PBKDF2_PASSWORD",
	AttrPBKDF2Salt:           "PBKDF2_SALT",
	AttrPBKDF2IterationCount: "PBKDF2_ITERATION_COUNT",
	AttrPBKDF2DKMLength:      "PBKDF2_DKM_LENGTH",
	AttrScryptPassword:       "SCRYPT_PASSWORD",
	AttrScryptSalt:           "SCRYPT_SALT",
	AttrScryptN:              "SCRYPT_N",
	AttrScryptR:              "SCRYPT_R",
	AttrScryptP:              "SCRYPT_P",
	AttrScryptDKLength:       "SCRYPT_DK_LENGTH",
}

// IsValue reports whether id denotes a value (integer pair) attribute.
func (id AttributeID) IsValue() bool {
	return id&attrFlagValue != 0
}

func (id AttributeID) String() string {
	if name, ok := attributeNames[id]; ok {
		return name
	}
	return fmt.Sprintf("ATTR_%#08x", uint32(id))
}
