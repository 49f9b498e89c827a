package hsm

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/bluele/gcache"
	"github.com/miekg/pkcs11"

	"azoo.dev/utils/xtee/tee"
)

type kind int

const (
	kindHKDF kind = iota
	kindConcatKDF
	kindPBKDF2
)

// algorithm describes how one derivation is composed from token mechanisms.
type algorithm struct {
	kind    kind
	hashLen int
	hmac    uint
	digest  uint
}

// algorithms lists every derivation a token can carry out. scrypt needs
// large amounts of memory next to the secret and has no PKCS#11 mechanism,
// so it is absent and reported as not supported.
var algorithms = map[tee.Algorithm]algorithm{
	tee.AlgHKDFSHA1DeriveKey:        {kindHKDF, sha1.Size, pkcs11.CKM_SHA_1_HMAC, pkcs11.CKM_SHA_1},
	tee.AlgHKDFSHA256DeriveKey:      {kindHKDF, sha256.Size, pkcs11.CKM_SHA256_HMAC, pkcs11.CKM_SHA256},
	tee.AlgConcatKDFSHA1DeriveKey:   {kindConcatKDF, sha1.Size, pkcs11.CKM_SHA_1_HMAC, pkcs11.CKM_SHA_1},
	tee.AlgConcatKDFSHA256DeriveKey: {kindConcatKDF, sha256.Size, pkcs11.CKM_SHA256_HMAC, pkcs11.CKM_SHA256},
	tee.AlgPBKDF2HMACSHA1DeriveKey:  {kindPBKDF2, sha1.Size, pkcs11.CKM_SHA_1_HMAC, pkcs11.CKM_SHA_1},
}

// required returns the mechanisms the derivation is composed from.
func (a algorithm) required() []uint {
	if a.kind == kindConcatKDF {
		return []uint{a.digest}
	}
	return []uint{a.hmac}
}

// maxDerivedLen matches the largest generic secret an object can hold.
const maxDerivedLen = 4096 / 8

// primitive derives keys for one algorithm on a token. It implements
// soft.Primitive and soft.Availabler.
type primitive struct {
	alg        tee.Algorithm
	spec       algorithm
	token      token
	mechanisms gcache.Cache
}

func (p *primitive) Available() error {
	v, err := p.mechanisms.Get(p.alg)
	if err != nil {
		return tee.Errorf(tee.StatusCommunication, "hsm: mechanism lookup: %v", err)
	}
	if !v.(bool) {
		return fmt.Errorf("hsm: token lacks mechanism %#x", p.spec.required())
	}
	return nil
}

func (p *primitive) Derive(secret []byte, params []tee.Attribute) ([]byte, error) {
	switch p.spec.kind {
	case kindHKDF:
		return p.hkdf(secret, params)
	case kindConcatKDF:
		return p.concatKDF(secret, params)
	case kindPBKDF2:
		return p.pbkdf2(secret, params)
	}
	return nil, tee.Errorf(tee.StatusNotSupported, "hsm: algorithm %s", p.alg)
}

// withKey imports key into the token for the duration of fn. Tokens reject
// empty key values, so an empty key is replaced by HashLen zero bytes which
// pads to the same HMAC block.
func (p *primitive) withKey(key []byte, fn func(k pkcs11.ObjectHandle) error) (err error) {
	if len(key) == 0 {
		key = make([]byte, p.spec.hashLen)
	}
	k, err := p.token.importKey(key)
	if err != nil {
		return tee.Errorf(tee.StatusCommunication, "%v", err)
	}
	defer func() {
		if destroyErr := p.token.destroyKey(k); destroyErr != nil && err == nil {
			err = tee.Errorf(tee.StatusCommunication, "%v", destroyErr)
		}
	}()

	return fn(k)
}

func (p *primitive) sign(k pkcs11.ObjectHandle, data []byte) ([]byte, error) {
	mac, err := p.token.sign(p.spec.hmac, k, data)
	if err != nil {
		return nil, tee.Errorf(tee.StatusCommunication, "%v", err)
	}
	if len(mac) != p.spec.hashLen {
		return nil, tee.Errorf(tee.StatusGeneric, "hsm: mac tag has invalid length: %d. Expected %d", len(mac), p.spec.hashLen)
	}
	return mac, nil
}

func (p *primitive) hkdf(secret []byte, params []tee.Attribute) ([]byte, error) {
	ps, err := tee.ParseParams(params, tee.AttrHKDFSalt, tee.AttrHKDFInfo, tee.AttrHKDFOKMLength)
	if err != nil {
		return nil, err
	}
	okmLen, err := ps.Length(tee.AttrHKDFOKMLength, maxDerivedLen)
	if err != nil {
		return nil, err
	}
	if limit := 255 * p.spec.hashLen; okmLen > limit {
		return nil, tee.Errorf(tee.StatusBadParameters, "hsm: hkdf okm length %d exceeds %d", okmLen, limit)
	}
	salt, _ := ps.Buffer(tee.AttrHKDFSalt)
	info, _ := ps.Buffer(tee.AttrHKDFInfo)

	// extract
	var prk []byte
	err = p.withKey(salt, func(k pkcs11.ObjectHandle) (err error) {
		prk, err = p.sign(k, secret)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(prk)

	// expand
	okm := make([]byte, 0, okmLen+p.spec.hashLen)
	err = p.withKey(prk, func(k pkcs11.ObjectHandle) error {
		var block []byte
		for i := 1; len(okm) < okmLen; i++ {
			msg := make([]byte, 0, len(block)+len(info)+1)
			msg = append(msg, block...)
			msg = append(msg, info...)
			msg = append(msg, byte(i))

			var err error
			if block, err = p.sign(k, msg); err != nil {
				return err
			}
			okm = append(okm, block...)
		}
		return nil
	})
	if err != nil {
		memguard.WipeBytes(okm)
		return nil, err
	}

	memguard.WipeBytes(okm[okmLen:cap(okm)])
	return okm[:okmLen], nil
}

func (p *primitive) concatKDF(secret []byte, params []tee.Attribute) ([]byte, error) {
	ps, err := tee.ParseParams(params, tee.AttrConcatKDFOtherInfo, tee.AttrConcatKDFDKMLength)
	if err != nil {
		return nil, err
	}
	dkmLen, err := ps.Length(tee.AttrConcatKDFDKMLength, maxDerivedLen)
	if err != nil {
		return nil, err
	}
	otherInfo, _ := ps.Buffer(tee.AttrConcatKDFOtherInfo)

	dkm := make([]byte, 0, dkmLen+p.spec.hashLen)
	msg := make([]byte, 4+len(secret)+len(otherInfo))
	copy(msg[4:], secret)
	copy(msg[4+len(secret):], otherInfo)
	defer memguard.WipeBytes(msg)

	for counter := uint32(1); len(dkm) < dkmLen; counter++ {
		binary.BigEndian.PutUint32(msg, counter)

		d, err := p.token.digest(p.spec.digest, msg)
		if err != nil {
			memguard.WipeBytes(dkm)
			return nil, tee.Errorf(tee.StatusCommunication, "%v", err)
		}
		dkm = append(dkm, d...)
	}

	memguard.WipeBytes(dkm[dkmLen:cap(dkm)])
	return dkm[:dkmLen], nil
}

func (p *primitive) pbkdf2(secret []byte, params []tee.Attribute) ([]byte, error) {
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
		return nil, tee.Errorf(tee.StatusBadParameters, "hsm: pbkdf2 iteration count is zero")
	}
	salt, _ := ps.Buffer(tee.AttrPBKDF2Salt)

	dk := make([]byte, 0, dkmLen+p.spec.hashLen)
	err = p.withKey(secret, func(k pkcs11.ObjectHandle) error {
		first := make([]byte, len(salt)+4)
		copy(first, salt)

		for block := uint32(1); len(dk) < dkmLen; block++ {
			binary.BigEndian.PutUint32(first[len(salt):], block)

			u, err := p.sign(k, first)
			if err != nil {
				return err
			}
			t := make([]byte, len(u))
			copy(t, u)

			for n := uint32(1); n < iterations; n++ {
				if u, err = p.sign(k, u); err != nil {
					return err
				}
				for i := range t {
					t[i] ^= u[i]
				}
			}
			dk = append(dk, t...)
			memguard.WipeBytes(t)
		}
		return nil
	})
	if err != nil {
		memguard.WipeBytes(dk)
		return nil, err
	}

	memguard.WipeBytes(dk[dkmLen:cap(dk)])
	return dk[:dkmLen], nil
}
