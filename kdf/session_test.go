package kdf

import (
	"testing"

	logger "github.com/harwoeck/liblog/contract"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"azoo.dev/utils/xtee/tee"
	"azoo.dev/utils/xtee/tee/soft"
)

func newSoftSession(t *testing.T) *soft.Session {
	s := soft.New(soft.DefaultConfig(), logger.MustNewStd())
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

// countingSession forwards to a tee.Session, records every call and fails
// the call named in fail. readLen rewrites the length reported by
// GetObjectBufferAttribute.
type countingSession struct {
	tee.Session
	calls   []string
	ops     []tee.OperationHandle
	allocs  int
	frees   int
	fail    map[string]error
	readLen func(n int) int
}

func newCountingSession(inner tee.Session) *countingSession {
	return &countingSession{
		Session: inner,
		fail:    make(map[string]error),
	}
}

func (c *countingSession) call(name string) error {
	c.calls = append(c.calls, name)
	return c.fail[name]
}

func (c *countingSession) AllocateOperation(alg tee.Algorithm, mode tee.Mode, maxKeySize uint32) (tee.OperationHandle, error) {
	if err := c.call("AllocateOperation"); err != nil {
		return 0, err
	}
	h, err := c.Session.AllocateOperation(alg, mode, maxKeySize)
	if err == nil {
		c.allocs++
		c.ops = append(c.ops, h)
	}
	return h, err
}

func (c *countingSession) AllocateTransientObject(typ tee.ObjectType, maxObjectSize uint32) (tee.ObjectHandle, error) {
	name := "AllocateTransientObject"
	if typ == tee.TypeGenericSecret {
		name = "AllocateTransientObject(out)"
	}
	if err := c.call(name); err != nil {
		return 0, err
	}
	h, err := c.Session.AllocateTransientObject(typ, maxObjectSize)
	if err == nil {
		c.allocs++
	}
	return h, err
}

func (c *countingSession) PopulateTransientObject(obj tee.ObjectHandle, attrs []tee.Attribute) error {
	if err := c.call("PopulateTransientObject"); err != nil {
		return err
	}
	return c.Session.PopulateTransientObject(obj, attrs)
}

func (c *countingSession) SetOperationKey(op tee.OperationHandle, key tee.ObjectHandle) error {
	if err := c.call("SetOperationKey"); err != nil {
		return err
	}
	return c.Session.SetOperationKey(op, key)
}

func (c *countingSession) DeriveKey(op tee.OperationHandle, derived tee.ObjectHandle, params []tee.Attribute) error {
	if err := c.call("DeriveKey"); err != nil {
		return err
	}
	return c.Session.DeriveKey(op, derived, params)
}

func (c *countingSession) GetObjectBufferAttribute(obj tee.ObjectHandle, id tee.AttributeID, buf []byte) (int, error) {
	if err := c.call("GetObjectBufferAttribute"); err != nil {
		return 0, err
	}
	n, err := c.Session.GetObjectBufferAttribute(obj, id, buf)
	if err == nil && c.readLen != nil {
		n = c.readLen(n)
	}
	return n, err
}

func (c *countingSession) FreeOperation(op tee.OperationHandle) error {
	if err := c.call("FreeOperation"); err != nil {
		return err
	}
	err := c.Session.FreeOperation(op)
	if err == nil {
		c.frees++
	}
	return err
}

func (c *countingSession) FreeTransientObject(obj tee.ObjectHandle) error {
	if err := c.call("FreeTransientObject"); err != nil {
		return err
	}
	err := c.Session.FreeTransientObject(obj)
	if err == nil {
		c.frees++
	}
	return err
}

type mockSession struct {
	mock.Mock
}

func (m *mockSession) AllocateOperation(alg tee.Algorithm, mode tee.Mode, maxKeySize uint32) (tee.OperationHandle, error) {
	args := m.Called(alg, mode, maxKeySize)
	return args.Get(0).(tee.OperationHandle), args.Error(1)
}

func (m *mockSession) AllocateTransientObject(typ tee.ObjectType, maxObjectSize uint32) (tee.ObjectHandle, error) {
	args := m.Called(typ, maxObjectSize)
	return args.Get(0).(tee.ObjectHandle), args.Error(1)
}

func (m *mockSession) PopulateTransientObject(obj tee.ObjectHandle, attrs []tee.Attribute) error {
	return m.Called(obj, attrs).Error(0)
}

func (m *mockSession) SetOperationKey(op tee.OperationHandle, key tee.ObjectHandle) error {
	return m.Called(op, key).Error(0)
}

func (m *mockSession) DeriveKey(op tee.OperationHandle, derived tee.ObjectHandle, params []tee.Attribute) error {
	return m.Called(op, derived, params).Error(0)
}

func (m *mockSession) GetObjectBufferAttribute(obj tee.ObjectHandle, id tee.AttributeID, buf []byte) (int, error) {
	args := m.Called(obj, id, buf)
	return args.Int(0), args.Error(1)
}

func (m *mockSession) FreeOperation(op tee.OperationHandle) error {
	return m.Called(op).Error(0)
}

func (m *mockSession) FreeTransientObject(obj tee.ObjectHandle) error {
	return m.Called(obj).Error(0)
}

func (m *mockSession) Close() error {
	return m.Called().Error(0)
}
