// Package sealed keeps key material of the reference environments in
// memguard enclaves while it is not in use.
package sealed

import (
	"bytes"
	"fmt"

	"github.com/awnumar/memguard"
)

// Secret holds one buffer. Empty buffers carry no enclave because memguard
// refuses zero-length enclaves.
type Secret struct {
	enclave *memguard.Enclave
	size    int
}

// Seal copies buf into a new enclave. The caller keeps ownership of buf.
func Seal(buf []byte) *Secret {
	if len(buf) == 0 {
		return &Secret{}
	}
	c := make([]byte, len(buf))
	copy(c, buf)
	return &Secret{
		enclave: memguard.NewEnclave(c), // wipes c
		size:    len(buf),
	}
}

// Size returns the length of the sealed buffer.
func (s *Secret) Size() int {
	return s.size
}

// Open decrypts the secret into locked memory. release must be called once
// the returned slice is no longer used.
func (s *Secret) Open() (buf []byte, release func(), err error) {
	if s.enclave == nil {
		return []byte{}, func() {}, nil
	}
	lb, err := s.enclave.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("sealed: failed to open enclave: %w", err)
	}
	return lb.Bytes(), lb.Destroy, nil
}

// Clone returns an independent copy of s.
func (s *Secret) Clone() (*Secret, error) {
	buf, release, err := s.Open()
	if err != nil {
		return nil, err
	}
	defer release()
	return Seal(buf), nil
}

// SelfTest checks that random key material survives sealing, opening and
// cloning unchanged.
func SelfTest() error {
	lb := memguard.NewBufferRandom(32)
	want := make([]byte, lb.Size())
	copy(want, lb.Bytes())
	defer memguard.WipeBytes(want)

	s := &Secret{enclave: lb.Seal(), size: len(want)} // destroys lb
	got, release, err := s.Open()
	if err != nil {
		return err
	}
	defer release()

	if !bytes.Equal(want, got) {
		return fmt.Errorf("sealed: key material changed in storage")
	}

	cloned, err := s.Clone()
	if err != nil {
		return err
	}
	gotClone, releaseClone, err := cloned.Open()
	if err != nil {
		return err
	}
	defer releaseClone()

	if !bytes.Equal(want, gotClone) {
		return fmt.Errorf("sealed: cloned key material differs")
	}
	return nil
}
