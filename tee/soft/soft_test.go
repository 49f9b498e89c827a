package soft

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"testing"

	logger "github.com/harwoeck/liblog/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azoo.dev/utils/xtee/tee"
)

func newSession(t *testing.T) *Session {
	s := New(DefaultConfig(), logger.MustNewStd())
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})
	return s
}

func mustHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// keyedOperation allocates an operation for alg keyed with secret.
func keyedOperation(t *testing.T, s *Session, alg tee.Algorithm, secret []byte) tee.OperationHandle {
	typ, ok := alg.KeyType()
	require.True(t, ok)
	attr, ok := typ.SecretAttribute()
	require.True(t, ok)

	op, err := s.AllocateOperation(alg, tee.ModeDerive, 2048)
	require.NoError(t, err)

	key, err := s.AllocateTransientObject(typ, 2048)
	require.NoError(t, err)
	require.NoError(t, s.PopulateTransientObject(key, []tee.Attribute{tee.NewRefAttribute(attr, secret)}))
	require.NoError(t, s.SetOperationKey(op, key))
	require.NoError(t, s.FreeTransientObject(key))

	return op
}

func derive(t *testing.T, s *Session, op tee.OperationHandle, size int, params []tee.Attribute) ([]byte, error) {
	out, err := s.AllocateTransientObject(tee.TypeGenericSecret, uint32(size*8))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, s.FreeTransientObject(out))
	}()

	if err := s.DeriveKey(op, out, params); err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	n, err := s.GetObjectBufferAttribute(out, tee.AttrSecretValue, buf)
	require.NoError(t, err)
	return buf[:n], nil
}

func TestSession_HKDF(t *testing.T) {
	s := newSession(t)
	op := keyedOperation(t, s, tee.AlgHKDFSHA256DeriveKey, bytes.Repeat([]byte{0x0b}, 22))
	defer func() { require.NoError(t, s.FreeOperation(op)) }()

	key, err := derive(t, s, op, 42, []tee.Attribute{
		tee.NewRefAttribute(tee.AttrHKDFSalt, mustHex(t, "000102030405060708090a0b0c")),
		tee.NewRefAttribute(tee.AttrHKDFInfo, mustHex(t, "f0f1f2f3f4f5f6f7f8f9")),
		tee.NewValueAttribute(tee.AttrHKDFOKMLength, 42, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, "3cb25f25faacd57a90434f64d0362f2a2d2d0a90cf1a5a4c5db02d56ecc4c5bf34007208d5b887185865", hex.EncodeToString(key))
}

func TestSession_ConcatKDFSHA1(t *testing.T) {
	s := newSession(t)
	z := []byte("shared secret")
	otherInfo := []byte("other info")
	op := keyedOperation(t, s, tee.AlgConcatKDFSHA1DeriveKey, z)
	defer func() { require.NoError(t, s.FreeOperation(op)) }()

	key, err := derive(t, s, op, 16, []tee.Attribute{
		tee.NewRefAttribute(tee.AttrConcatKDFOtherInfo, otherInfo),
		tee.NewValueAttribute(tee.AttrConcatKDFDKMLength, 16, 0),
	})
	require.NoError(t, err)

	h := sha1.New()
	h.Write([]byte{0, 0, 0, 1})
	h.Write(z)
	h.Write(otherInfo)
	assert.Equal(t, h.Sum(nil)[:16], key)
}

func TestSession_PBKDF2ZeroIterations(t *testing.T) {
	s := newSession(t)
	op := keyedOperation(t, s, tee.AlgPBKDF2HMACSHA1DeriveKey, []byte("password"))
	defer func() { require.NoError(t, s.FreeOperation(op)) }()

	_, err := derive(t, s, op, 20, []tee.Attribute{
		tee.NewValueAttribute(tee.AttrPBKDF2DKMLength, 20, 0),
		tee.NewValueAttribute(tee.AttrPBKDF2IterationCount, 0, 0),
	})
	assert.ErrorIs(t, err, tee.StatusBadParameters)
}

func TestSession_BadParams(t *testing.T) {
	tests := []struct {
		name   string
		params []tee.Attribute
	}{
		{"missing length", []tee.Attribute{tee.NewRefAttribute(tee.AttrHKDFSalt, nil)}},
		{"zero length", []tee.Attribute{tee.NewValueAttribute(tee.AttrHKDFOKMLength, 0, 0)}},
		{"foreign attribute", []tee.Attribute{
			tee.NewRefAttribute(tee.AttrPBKDF2Salt, []byte("salt")),
			tee.NewValueAttribute(tee.AttrHKDFOKMLength, 32, 0),
		}},
		{"duplicate", []tee.Attribute{
			tee.NewValueAttribute(tee.AttrHKDFOKMLength, 32, 0),
			tee.NewValueAttribute(tee.AttrHKDFOKMLength, 32, 0),
		}},
		{"nil reference", []tee.Attribute{
			{ID: tee.AttrHKDFSalt},
			tee.NewValueAttribute(tee.AttrHKDFOKMLength, 32, 0),
		}},
		{"too long for sha1", []tee.Attribute{tee.NewValueAttribute(tee.AttrHKDFOKMLength, 255*20+1, 0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t)
			op := keyedOperation(t, s, tee.AlgHKDFSHA1DeriveKey, []byte("ikm"))
			defer func() { require.NoError(t, s.FreeOperation(op)) }()

			_, err := derive(t, s, op, 32, tt.params)
			assert.ErrorIs(t, err, tee.StatusBadParameters)
		})
	}
}

func TestSession_UnsupportedAlgorithm(t *testing.T) {
	s := newSession(t)

	_, err := s.AllocateOperation(tee.Algorithm(0x80001234), tee.ModeDerive, 2048)
	assert.ErrorIs(t, err, tee.StatusNotSupported)

	_, err = s.AllocateOperation(tee.AlgHKDFSHA1DeriveKey, tee.Mode(1), 2048)
	assert.ErrorIs(t, err, tee.StatusNotSupported)
}

func TestSession_OneKeyPerOperation(t *testing.T) {
	s := newSession(t)
	op := keyedOperation(t, s, tee.AlgHKDFSHA1DeriveKey, []byte("ikm"))
	defer func() { require.NoError(t, s.FreeOperation(op)) }()

	key, err := s.AllocateTransientObject(tee.TypeHKDFIKM, 2048)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.FreeTransientObject(key)) }()
	require.NoError(t, s.PopulateTransientObject(key, []tee.Attribute{tee.NewRefAttribute(tee.AttrHKDFIKM, []byte("other"))}))

	assert.ErrorIs(t, s.SetOperationKey(op, key), tee.StatusBadState)
}

func TestSession_WrongKeyType(t *testing.T) {
	s := newSession(t)

	op, err := s.AllocateOperation(tee.AlgScryptDeriveKey, tee.ModeDerive, 2048)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.FreeOperation(op)) }()

	key, err := s.AllocateTransientObject(tee.TypePBKDF2Password, 2048)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.FreeTransientObject(key)) }()
	require.NoError(t, s.PopulateTransientObject(key, []tee.Attribute{tee.NewRefAttribute(tee.AttrPBKDF2Password, []byte("pw"))}))

	assert.ErrorIs(t, s.SetOperationKey(op, key), tee.StatusBadParameters)
}

func TestSession_Populate(t *testing.T) {
	s := newSession(t)

	key, err := s.AllocateTransientObject(tee.TypeHKDFIKM, 64)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.FreeTransientObject(key)) }()

	err = s.PopulateTransientObject(key, []tee.Attribute{tee.NewRefAttribute(tee.AttrConcatKDFZ, []byte("z"))})
	assert.ErrorIs(t, err, tee.StatusBadParameters)

	err = s.PopulateTransientObject(key, []tee.Attribute{tee.NewRefAttribute(tee.AttrHKDFIKM, make([]byte, 9))})
	assert.ErrorIs(t, err, tee.StatusBadParameters)

	require.NoError(t, s.PopulateTransientObject(key, []tee.Attribute{tee.NewRefAttribute(tee.AttrHKDFIKM, make([]byte, 8))}))
	err = s.PopulateTransientObject(key, []tee.Attribute{tee.NewRefAttribute(tee.AttrHKDFIKM, make([]byte, 8))})
	assert.ErrorIs(t, err, tee.StatusBadState)
}

func TestSession_ShortBuffer(t *testing.T) {
	s := newSession(t)
	op := keyedOperation(t, s, tee.AlgHKDFSHA1DeriveKey, []byte("ikm"))
	defer func() { require.NoError(t, s.FreeOperation(op)) }()

	out, err := s.AllocateTransientObject(tee.TypeGenericSecret, 32*8)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.FreeTransientObject(out)) }()
	require.NoError(t, s.DeriveKey(op, out, []tee.Attribute{tee.NewValueAttribute(tee.AttrHKDFOKMLength, 32, 0)}))

	n, err := s.GetObjectBufferAttribute(out, tee.AttrSecretValue, make([]byte, 16))
	assert.ErrorIs(t, err, tee.StatusShortBuffer)
	assert.Equal(t, 32, n)

	n, err = s.GetObjectBufferAttribute(out, tee.AttrSecretValue, make([]byte, 64))
	require.NoError(t, err)
	assert.Equal(t, 32, n)

	_, err = s.GetObjectBufferAttribute(out, tee.AttrHKDFSalt, make([]byte, 64))
	assert.ErrorIs(t, err, tee.StatusItemNotFound)
}

func TestSession_DoubleFree(t *testing.T) {
	s := newSession(t)

	op, err := s.AllocateOperation(tee.AlgHKDFSHA256DeriveKey, tee.ModeDerive, 2048)
	require.NoError(t, err)
	obj, err := s.AllocateTransientObject(tee.TypeGenericSecret, 256)
	require.NoError(t, err)

	require.NoError(t, s.FreeOperation(op))
	require.NoError(t, s.FreeTransientObject(obj))
	assert.ErrorIs(t, s.FreeOperation(op), tee.StatusBadParameters)
	assert.ErrorIs(t, s.FreeTransientObject(obj), tee.StatusBadParameters)

	stats := s.Stats()
	assert.Equal(t, uint64(2), stats.Allocated)
	assert.Equal(t, uint64(2), stats.Freed)
}

func TestSession_Limits(t *testing.T) {
	s := New(&Config{MaxOperations: 1, MaxObjects: 1, MaxObjectSize: 512}, logger.MustNewStd())

	op, err := s.AllocateOperation(tee.AlgHKDFSHA256DeriveKey, tee.ModeDerive, 512)
	require.NoError(t, err)
	_, err = s.AllocateOperation(tee.AlgHKDFSHA256DeriveKey, tee.ModeDerive, 512)
	assert.ErrorIs(t, err, tee.StatusOutOfMemory)
	_, err = s.AllocateOperation(tee.AlgHKDFSHA256DeriveKey, tee.ModeDerive, 1024)
	assert.ErrorIs(t, err, tee.StatusNotSupported)

	obj, err := s.AllocateTransientObject(tee.TypeGenericSecret, 512)
	require.NoError(t, err)
	_, err = s.AllocateTransientObject(tee.TypeGenericSecret, 512)
	assert.ErrorIs(t, err, tee.StatusOutOfMemory)

	require.NoError(t, s.FreeOperation(op))
	require.NoError(t, s.FreeTransientObject(obj))
	require.NoError(t, s.Close())
}

func TestSession_CloseReportsLeaks(t *testing.T) {
	s := New(DefaultConfig(), logger.MustNewStd())

	_, err := s.AllocateOperation(tee.AlgScryptDeriveKey, tee.ModeDerive, 2048)
	require.NoError(t, err)
	_, err = s.AllocateTransientObject(tee.TypeScryptPassword, 2048)
	require.NoError(t, err)

	err = s.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 handles leaked")

	_, err = s.AllocateOperation(tee.AlgScryptDeriveKey, tee.ModeDerive, 2048)
	assert.True(t, errors.Is(err, tee.StatusBadState))
	assert.NoError(t, s.Close())
}

func TestSession_SelfTest(t *testing.T) {
	assert.NoError(t, newSession(t).SelfTest())
}

type stubPrimitive struct {
	availErr error
}

func (p stubPrimitive) Available() error {
	return p.availErr
}

func (stubPrimitive) Derive(secret []byte, _ []tee.Attribute) ([]byte, error) {
	return append([]byte("stub:"), secret...), nil
}

func TestNewWithPrimitives(t *testing.T) {
	s := NewWithPrimitives(DefaultConfig(), map[tee.Algorithm]Primitive{
		tee.AlgHKDFSHA256DeriveKey:     stubPrimitive{},
		tee.AlgPBKDF2HMACSHA1DeriveKey: stubPrimitive{availErr: errors.New("mechanism missing")},
	}, logger.MustNewStd())
	defer func() { assert.NoError(t, s.Close()) }()

	_, err := s.AllocateOperation(tee.AlgHKDFSHA1DeriveKey, tee.ModeDerive, 2048)
	assert.ErrorIs(t, err, tee.StatusNotSupported)

	_, err = s.AllocateOperation(tee.AlgPBKDF2HMACSHA1DeriveKey, tee.ModeDerive, 2048)
	assert.ErrorIs(t, err, tee.StatusNotSupported)
	assert.Contains(t, err.Error(), "mechanism missing")

	op := keyedOperation(t, s, tee.AlgHKDFSHA256DeriveKey, []byte("ikm"))
	defer func() { require.NoError(t, s.FreeOperation(op)) }()

	key, err := derive(t, s, op, 32, []tee.Attribute{tee.NewValueAttribute(tee.AttrHKDFOKMLength, 8, 0)})
	require.NoError(t, err)
	assert.Equal(t, []byte("stub:ikm"), key)
}

func TestNewWithPrimitives_AvailableStatus(t *testing.T) {
	s := NewWithPrimitives(DefaultConfig(), map[tee.Algorithm]Primitive{
		tee.AlgHKDFSHA256DeriveKey: stubPrimitive{availErr: tee.Errorf(tee.StatusCommunication, "token unreachable")},
	}, logger.MustNewStd())
	defer func() { assert.NoError(t, s.Close()) }()

	_, err := s.AllocateOperation(tee.AlgHKDFSHA256DeriveKey, tee.ModeDerive, 2048)
	assert.ErrorIs(t, err, tee.StatusCommunication)
	assert.False(t, errors.Is(err, tee.StatusNotSupported))
	assert.Contains(t, err.Error(), "token unreachable")
	assert.Zero(t, s.Stats().LiveOperations)
}
