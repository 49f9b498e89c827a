// Package tee describes the invocation boundary to a secure execution
// environment: operation and object handles, typed attribute lists and the
// status codes returned by every call.
//
// The boundary is modelled after the GlobalPlatform TEE Internal Core API.
// Callers allocate an operation for a derivation algorithm, fill a transient
// key object with the primary secret, bind it to the operation and finally
// derive into a generic secret object whose value is read back.
//
// Implementations live in sub-packages:
//
//   - soft: an in-process environment keeping key material in memguard enclaves
//   - hsm:  a PKCS#11 token composing derivations from in-token HMAC and digests
package tee

// OperationHandle references one cryptographic operation instance inside the
// secure environment.
type OperationHandle uint32

// ObjectHandle references one transient key-material container inside the
// secure environment.
type ObjectHandle uint32

// Session is a connection to a secure environment. Every call is blocking
// and synchronous. Errors returned by a Session are Status values, possibly
// wrapped.
type Session interface {
	// AllocateOperation creates an operation for alg in mode. maxKeySize is
	// the maximum key size in bits that may be bound to it.
	AllocateOperation(alg Algorithm, mode Mode, maxKeySize uint32) (OperationHandle, error)
	// AllocateTransientObject creates an uninitialized object of typ able to
	// hold maxObjectSize bits of key material.
	AllocateTransientObject(typ ObjectType, maxObjectSize uint32) (ObjectHandle, error)
	// PopulateTransientObject initializes obj from attrs. The buffers
	// referenced by attrs are only read for the duration of the call.
	PopulateTransientObject(obj ObjectHandle, attrs []Attribute) error
	// SetOperationKey copies the key material of key into op. An operation
	// accepts exactly one key.
	SetOperationKey(op OperationHandle, key ObjectHandle) error
	// DeriveKey runs the derivation of op and stores the result as the
	// secret value of derived.
	DeriveKey(op OperationHandle, derived ObjectHandle, params []Attribute) error
	// GetObjectBufferAttribute copies the buffer attribute id of obj into buf
	// and returns its length. If buf is too small StatusShortBuffer is
	// returned together with the required length.
	GetObjectBufferAttribute(obj ObjectHandle, id AttributeID, buf []byte) (n int, err error)
	// FreeOperation releases op.
	FreeOperation(op OperationHandle) error
	// FreeTransientObject releases obj.
	FreeTransientObject(obj ObjectHandle) error
	// Close closes the session and releases the connection.
	Close() error
}

// SelfTester is implemented by sessions whose environment offers a
// secure-storage key manager self test.
type SelfTester interface {
	SelfTest() error
}
