package soft

import (
	"crypto"
	"crypto/sha1"
	"crypto/sha256"
	"hash"
	"io"

	josecipher "github.com/go-jose/go-jose/v3/cipher"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"

	"azoo.dev/utils/xtee/tee"
)

// Primitive is the low level derivation behind one algorithm. secret is the
// key bound to the operation, params the attribute list passed to DeriveKey.
type Primitive interface {
	Derive(secret []byte, params []tee.Attribute) (key []byte, err error)
}

// Availabler is implemented by primitives whose support is only known at
// runtime, for example because it depends on a hardware token. An error
// carrying a tee.Status keeps that status, any other error is reported as
// tee.StatusNotSupported.
type Availabler interface {
	Available() error
}

var primitives = map[tee.Algorithm]Primitive{
	tee.AlgHKDFSHA1DeriveKey:        hkdfPrimitive{sha1.New},
	tee.AlgHKDFSHA256DeriveKey:      hkdfPrimitive{sha256.New},
	tee.AlgConcatKDFSHA1DeriveKey:   concatKDFPrimitive{crypto.SHA1},
	tee.AlgConcatKDFSHA256DeriveKey: concatKDFPrimitive{crypto.SHA256},
	tee.AlgPBKDF2HMACSHA1DeriveKey:  pbkdf2Primitive{sha1.New},
	tee.AlgScryptDeriveKey:          scryptPrimitive{},
}

// maxDerivedLen bounds every length attribute. It matches the largest
// generic secret an object can hold.
const maxDerivedLen = 4096 / 8

type hkdfPrimitive struct {
	hash func() hash.Hash
}

func (p hkdfPrimitive) Derive(secret []byte, params []tee.Attribute) ([]byte, error) {
	ps, err := tee.ParseParams(params, tee.AttrHKDFSalt, tee.AttrHKDFInfo, tee.AttrHKDFOKMLength)
	if err != nil {
		return nil, err
	}
	okmLen, err := ps.Length(tee.AttrHKDFOKMLength, maxDerivedLen)
	if err != nil {
		return nil, err
	}
	if limit := 255 * p.hash().Size(); okmLen > limit {
		return nil, tee.Errorf(tee.StatusBadParameters, "soft: hkdf okm length %d exceeds %d", okmLen, limit)
	}

	// an omitted salt makes hkdf use HashLen zero bytes, an empty salt keys
	// the HMAC with an empty key. Both pad to the same HMAC block.
	salt, _ := ps.Buffer(tee.AttrHKDFSalt)
	info, _ := ps.Buffer(tee.AttrHKDFInfo)

	okm := make([]byte, okmLen)
	if _, err := io.ReadFull(hkdf.New(p.hash, secret, salt, info), okm); err != nil {
		return nil, tee.Errorf(tee.StatusGeneric, "soft: hkdf: %v", err)
	}
	return okm, nil
}

type concatKDFPrimitive struct {
	hash crypto.Hash
}

func (p concatKDFPrimitive) Derive(secret []byte, params []tee.Attribute) ([]byte, error) {
	ps, err := tee.ParseParams(params, tee.AttrConcatKDFOtherInfo, tee.AttrConcatKDFDKMLength)
	if err != nil {
		return nil, err
	}
	dkmLen, err := ps.Length(tee.AttrConcatKDFDKMLength, maxDerivedLen)
	if err != nil {
		return nil, err
	}
	otherInfo, _ := ps.Buffer(tee.AttrConcatKDFOtherInfo)

	// NewConcatKDF concatenates its info arguments, so the raw OtherInfo is
	// passed as a single field.
	reader := josecipher.NewConcatKDF(p.hash, secret, otherInfo, nil, nil, nil, nil)

	dkm := make([]byte, dkmLen)
	if _, err := io.ReadFull(reader, dkm); err != nil {
		return nil, tee.Errorf(tee.StatusGeneric, "soft: concat kdf: %v", err)
	}
	return dkm, nil
}

type pbkdf2Primitive struct {
	hash func() hash.Hash
}

func (p pbkdf2Primitive) Derive(secret []byte, params []tee.Attribute) ([]byte, error) {
	ps, err := tee.ParseParams(params, tee.AttrPBKDF2Salt, tee.AttrPBKDF2DKMLength, tee.AttrPBKDF2IterationCount)
	if err != nil {
		return nil, err
	}
	dkmLen, err := ps.Length(tee.AttrPBKDF2DKMLength, maxDerivedLen)
	if err != nil {
		return nil, err
	}
	iterations, err := ps.Value(tee.AttrPBKDF2IterationCount)
	if err != nil {
		return nil, err
	}
	if iterations == 0 {
		return nil, tee.Errorf(tee.StatusBadParameters, "soft: pbkdf2 iteration count is zero")
	}
	salt, _ := ps.Buffer(tee.AttrPBKDF2Salt)

	return pbkdf2.Key(secret, salt, int(iterations), dkmLen, p.hash), nil
}

type scryptPrimitive struct{}

func (scryptPrimitive) Derive(secret []byte, params []tee.Attribute) ([]byte, error) {
	ps, err := tee.ParseParams(params, tee.AttrScryptSalt, tee.AttrScryptN, tee.AttrScryptR, tee.AttrScryptP, tee.AttrScryptDKLength)
	if err != nil {
		return nil, err
	}
	dkLen, err := ps.Length(tee.AttrScryptDKLength, maxDerivedLen)
	if err != nil {
		return nil, err
	}
	var cost [3]uint32
	for i, id := range []tee.AttributeID{tee.AttrScryptN, tee.AttrScryptR, tee.AttrScryptP} {
		if cost[i], err = ps.Value(id); err != nil {
			return nil, err
		}
	}
	salt, _ := ps.Buffer(tee.AttrScryptSalt)

	dk, err := scrypt.Key(secret, salt, int(cost[0]), int(cost[1]), int(cost[2]), dkLen)
	if err != nil {
		return nil, tee.Errorf(tee.StatusBadParameters, "soft: scrypt: %v", err)
	}
	return dk, nil
}
