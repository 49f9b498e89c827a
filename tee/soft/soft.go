// Package soft provides an in-process secure environment implementing
// tee.Session. Key material handed to it is sealed into memguard enclaves as
// soon as it crosses the boundary and is only opened for the duration of a
// derivation.
//
// soft is the reference environment of xtee: every derivation family of the
// catalog is supported, handles are tracked so that leaks and double frees
// surface as errors, and Close reports every handle still alive.
package soft

import (
	"errors"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
	logger "github.com/harwoeck/liblog/contract"

	"azoo.dev/utils/xtee/tee"
	"azoo.dev/utils/xtee/tee/internal/sealed"
)

// Config provides the limits of a soft environment. Every field is required.
type Config struct {
	// MaxOperations is the amount of operations that may be alive at the
	// same time. For example: 16
	MaxOperations int
	// MaxObjects is the amount of transient objects that may be alive at the
	// same time. For example: 64
	MaxObjects int
	// MaxObjectSize is the largest object size in bits accepted by
	// AllocateTransientObject. For example: 4096
	MaxObjectSize uint32
}

// DefaultConfig returns the limits used by the xtee command.
func DefaultConfig() *Config {
	return &Config{
		MaxOperations: 16,
		MaxObjects:    64,
		MaxObjectSize: 4096,
	}
}

// Stats is a snapshot of the handle bookkeeping of a Session.
type Stats struct {
	LiveOperations int
	LiveObjects    int
	Allocated      uint64
	Freed          uint64
}

// Session is an in-process tee.Session. It is safe for concurrent use.
type Session struct {
	log      logger.Logger
	auditLog logger.Logger
	config   *Config

	primitives map[tee.Algorithm]Primitive

	mu         sync.Mutex
	next       uint32
	operations map[tee.OperationHandle]*operation
	objects    map[tee.ObjectHandle]*object
	allocated  uint64
	freed      uint64
	closed     bool
}

var _ tee.Session = (*Session)(nil)
var _ tee.SelfTester = (*Session)(nil)

// New opens a new soft session deriving with the software primitives of
// every catalog family.
func New(config *Config, log logger.Logger) *Session {
	return NewWithPrimitives(config, primitives, log.Named("soft"))
}

// NewWithPrimitives opens a session whose derivations are carried out by
// prims. Algorithms missing from prims are reported as not supported. It
// lets other environments reuse the handle bookkeeping of soft.
func NewWithPrimitives(config *Config, prims map[tee.Algorithm]Primitive, log logger.Logger) *Session {
	return &Session{
		log:        log,
		auditLog:   log.Named("audit"),
		config:     config,
		primitives: prims,
		operations: make(map[tee.OperationHandle]*operation),
		objects:    make(map[tee.ObjectHandle]*object),
	}
}

type operation struct {
	alg        tee.Algorithm
	mode       tee.Mode
	maxKeySize uint32
	key        *sealed.Secret
}

type object struct {
	typ         tee.ObjectType
	maxSize     uint32
	initialized bool
	buffers     map[tee.AttributeID]*sealed.Secret
}

func (s *Session) nextHandle() uint32 {
	s.next++
	return s.next
}

func (s *Session) checkOpen() error {
	if s.closed {
		return tee.Errorf(tee.StatusBadState, "soft: session closed")
	}
	return nil
}

func (s *Session) AllocateOperation(alg tee.Algorithm, mode tee.Mode, maxKeySize uint32) (tee.OperationHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	p, ok := s.primitives[alg]
	if !ok {
		return 0, tee.Errorf(tee.StatusNotSupported, "soft: algorithm %s", alg)
	}
	if a, ok := p.(Availabler); ok {
		if err := a.Available(); err != nil {
			var st tee.Status
			if errors.As(err, &st) {
				return 0, fmt.Errorf("soft: algorithm %s unavailable: %w", alg, err)
			}
			return 0, tee.Errorf(tee.StatusNotSupported, "soft: algorithm %s unavailable: %v", alg, err)
		}
	}
	if mode != tee.ModeDerive {
		return 0, tee.Errorf(tee.StatusNotSupported, "soft: mode %d for %s", mode, alg)
	}
	if maxKeySize == 0 || maxKeySize > s.config.MaxObjectSize {
		return 0, tee.Errorf(tee.StatusNotSupported, "soft: max key size %d", maxKeySize)
	}
	if len(s.operations) >= s.config.MaxOperations {
		return 0, tee.Errorf(tee.StatusOutOfMemory, "soft: %d operations alive", len(s.operations))
	}

	h := tee.OperationHandle(s.nextHandle())
	s.operations[h] = &operation{
		alg:        alg,
		mode:       mode,
		maxKeySize: maxKeySize,
	}
	s.allocated++

	s.log.Debug("allocated operation",
		logger.NewField("operation", h),
		logger.NewField("algorithm", alg.String()),
		logger.NewField("max_key_size", maxKeySize))
	return h, nil
}

func (s *Session) AllocateTransientObject(typ tee.ObjectType, maxObjectSize uint32) (tee.ObjectHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	if _, ok := typ.SecretAttribute(); !ok {
		return 0, tee.Errorf(tee.StatusNotSupported, "soft: object type %s", typ)
	}
	if maxObjectSize == 0 || maxObjectSize > s.config.MaxObjectSize {
		return 0, tee.Errorf(tee.StatusNotSupported, "soft: max object size %d for %s", maxObjectSize, typ)
	}
	if typ == tee.TypeGenericSecret && maxObjectSize%8 != 0 {
		return 0, tee.Errorf(tee.StatusNotSupported, "soft: generic secret size %d not a multiple of 8", maxObjectSize)
	}
	if len(s.objects) >= s.config.MaxObjects {
		return 0, tee.Errorf(tee.StatusOutOfMemory, "soft: %d objects alive", len(s.objects))
	}

	h := tee.ObjectHandle(s.nextHandle())
	s.objects[h] = &object{
		typ:     typ,
		maxSize: maxObjectSize,
		buffers: make(map[tee.AttributeID]*sealed.Secret),
	}
	s.allocated++

	s.log.Debug("allocated object",
		logger.NewField("object", h),
		logger.NewField("type", typ.String()),
		logger.NewField("max_object_size", maxObjectSize))
	return h, nil
}

func (s *Session) PopulateTransientObject(obj tee.ObjectHandle, attrs []tee.Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	o, ok := s.objects[obj]
	if !ok {
		return tee.Errorf(tee.StatusBadParameters, "soft: unknown object %d", obj)
	}
	if o.initialized {
		return tee.Errorf(tee.StatusBadState, "soft: object %d already populated", obj)
	}

	want, _ := o.typ.SecretAttribute()
	var value []byte
	found := false
	for _, a := range attrs {
		if err := a.Check(); err != nil {
			return tee.Errorf(tee.StatusBadParameters, "soft: %v", err)
		}
		if a.ID != want {
			return tee.Errorf(tee.StatusBadParameters, "soft: attribute %s not accepted by %s", a.ID, o.typ)
		}
		if found {
			return tee.Errorf(tee.StatusBadParameters, "soft: attribute %s given twice", a.ID)
		}
		value, found = a.Ref, true
	}
	if !found {
		return tee.Errorf(tee.StatusBadParameters, "soft: %s requires %s", o.typ, want)
	}
	if uint64(len(value))*8 > uint64(o.maxSize) {
		return tee.Errorf(tee.StatusBadParameters, "soft: %d bits exceed object size %d", len(value)*8, o.maxSize)
	}

	o.buffers[want] = sealed.Seal(value)
	o.initialized = true
	return nil
}

func (s *Session) SetOperationKey(op tee.OperationHandle, key tee.ObjectHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	o, ok := s.operations[op]
	if !ok {
		return tee.Errorf(tee.StatusBadParameters, "soft: unknown operation %d", op)
	}
	k, ok := s.objects[key]
	if !ok {
		return tee.Errorf(tee.StatusBadParameters, "soft: unknown object %d", key)
	}
	if o.key != nil {
		return tee.Errorf(tee.StatusBadState, "soft: operation %d already has a key", op)
	}
	if !k.initialized {
		return tee.Errorf(tee.StatusBadState, "soft: object %d not populated", key)
	}
	if want, _ := o.alg.KeyType(); k.typ != want {
		return tee.Errorf(tee.StatusBadParameters, "soft: %s cannot key %s", k.typ, o.alg)
	}
	if k.maxSize > o.maxKeySize {
		return tee.Errorf(tee.StatusBadParameters, "soft: object size %d exceeds operation key size %d", k.maxSize, o.maxKeySize)
	}

	attr, _ := k.typ.SecretAttribute()
	copied, err := k.buffers[attr].Clone()
	if err != nil {
		return tee.Errorf(tee.StatusCorruptObject, "soft: %v", err)
	}
	o.key = copied
	return nil
}

func (s *Session) DeriveKey(op tee.OperationHandle, derived tee.ObjectHandle, params []tee.Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	o, ok := s.operations[op]
	if !ok {
		return tee.Errorf(tee.StatusBadParameters, "soft: unknown operation %d", op)
	}
	out, ok := s.objects[derived]
	if !ok {
		return tee.Errorf(tee.StatusBadParameters, "soft: unknown object %d", derived)
	}
	if o.key == nil {
		return tee.Errorf(tee.StatusBadState, "soft: operation %d has no key", op)
	}
	if out.typ != tee.TypeGenericSecret || out.initialized {
		return tee.Errorf(tee.StatusBadParameters, "soft: object %d is not an empty generic secret", derived)
	}

	p := s.primitives[o.alg]
	secretBuf, release, err := o.key.Open()
	if err != nil {
		return tee.Errorf(tee.StatusCorruptObject, "soft: %v", err)
	}
	defer release()

	key, err := p.Derive(secretBuf, params)
	if err != nil {
		return err
	}
	if uint64(len(key))*8 > uint64(out.maxSize) {
		return tee.Errorf(tee.StatusBadParameters, "soft: derived %d bits exceed object size %d", len(key)*8, out.maxSize)
	}

	out.buffers[tee.AttrSecretValue] = sealed.Seal(key)
	memguard.WipeBytes(key)
	out.initialized = true

	s.auditLog.Info("derived key",
		logger.NewField("algorithm", o.alg.String()),
		logger.NewField("operation", op),
		logger.NewField("object", derived),
		logger.NewField("key_len", len(key)))
	return nil
}

func (s *Session) GetObjectBufferAttribute(obj tee.ObjectHandle, id tee.AttributeID, buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	o, ok := s.objects[obj]
	if !ok {
		return 0, tee.Errorf(tee.StatusBadParameters, "soft: unknown object %d", obj)
	}
	if id.IsValue() {
		return 0, tee.Errorf(tee.StatusBadParameters, "soft: %s is a value attribute", id)
	}
	sec, ok := o.buffers[id]
	if !o.initialized || !ok {
		return 0, tee.Errorf(tee.StatusItemNotFound, "soft: object %d has no %s", obj, id)
	}
	if len(buf) < sec.Size() {
		return sec.Size(), tee.Errorf(tee.StatusShortBuffer, "soft: %s needs %d bytes", id, sec.Size())
	}

	value, release, err := sec.Open()
	if err != nil {
		return 0, tee.Errorf(tee.StatusCorruptObject, "soft: %v", err)
	}
	defer release()

	return copy(buf, value), nil
}

func (s *Session) FreeOperation(op tee.OperationHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.operations[op]; !ok {
		return tee.Errorf(tee.StatusBadParameters, "soft: free of unknown operation %d", op)
	}
	delete(s.operations, op)
	s.freed++

	s.log.Debug("freed operation", logger.NewField("operation", op))
	return nil
}

func (s *Session) FreeTransientObject(obj tee.ObjectHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[obj]; !ok {
		return tee.Errorf(tee.StatusBadParameters, "soft: free of unknown object %d", obj)
	}
	delete(s.objects, obj)
	s.freed++

	s.log.Debug("freed object", logger.NewField("object", obj))
	return nil
}

// Stats returns the current handle bookkeeping.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		LiveOperations: len(s.operations),
		LiveObjects:    len(s.objects),
		Allocated:      s.allocated,
		Freed:          s.freed,
	}
}

// Close closes the session. Handles still alive are released and reported
// as an error.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	leaked := len(s.operations) + len(s.objects)
	for h, o := range s.operations {
		s.log.Warn("operation leaked",
			logger.NewField("operation", h),
			logger.NewField("algorithm", o.alg.String()))
	}
	for h, o := range s.objects {
		s.log.Warn("object leaked",
			logger.NewField("object", h),
			logger.NewField("type", o.typ.String()))
	}
	s.operations = nil
	s.objects = nil

	if leaked > 0 {
		return fmt.Errorf("soft: %d handles leaked", leaked)
	}
	return nil
}
