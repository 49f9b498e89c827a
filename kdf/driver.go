package kdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
	logger "github.com/harwoeck/liblog/contract"

	"azoo.dev/utils/xtee/tee"
)

// MaxKeySize is the maximum key size in bits requested for operations and
// key objects. It covers the largest primary secret of the catalog.
const MaxKeySize = 2048

// readBufferSize is the initial capacity used to read derived keys. Larger
// keys are read again into a buffer of the size the environment reports.
const readBufferSize = 256

// Driver runs vectors through the derivation protocol of a tee.Session.
type Driver struct {
	log logger.Logger
}

// NewDriver returns a Driver logging to log.
func NewDriver(log logger.Logger) *Driver {
	return &Driver{
		log: log.Named("kdf"),
	}
}

// Run derives v through s and compares the result to v.Expected. It returns
// nil on a match, a *MismatchError if the derived bytes differ and a
// *StepError if a boundary call failed. Every handle opened by Run is freed
// before it returns.
func (d *Driver) Run(s tee.Session, v *Vector, variant Variant) error {
	return d.execute(s, v, variant, func(got []byte) error {
		if !bytes.Equal(got, v.Expected) {
			return &MismatchError{
				Expected: v.Expected,
				Got:      append([]byte(nil), got...),
			}
		}
		return nil
	})
}

// Derive runs the protocol for v and returns the derived key without
// comparing it.
func (d *Driver) Derive(s tee.Session, v *Vector, variant Variant) (key []byte, err error) {
	err = d.execute(s, v, variant, func(got []byte) error {
		key = append([]byte(nil), got...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

func (d *Driver) execute(s tee.Session, v *Vector, variant Variant, inspect func(got []byte) error) (err error) {
	spec, ok := families[v.Family]
	if !ok {
		return fmt.Errorf("kdf: unknown family %d of vector %q", int(v.Family), v.ID)
	}

	d.log.Debug("running vector",
		logger.NewField("family", v.Family.String()),
		logger.NewField("vector", v.ID),
		logger.NewField("variant", variant.String()),
		logger.NewField("algorithm", v.Algorithm.String()))

	op, err := s.AllocateOperation(v.Algorithm, tee.ModeDerive, MaxKeySize)
	if err != nil {
		return &StepError{Step: StepAllocOperation, Err: err}
	}

	// the operation is freed before the output object
	var out tee.ObjectHandle
	outAllocated := false
	defer func() {
		d.release(&err, StepFreeOperation, func() error { return s.FreeOperation(op) })
		if outAllocated {
			d.release(&err, StepFreeOutput, func() error { return s.FreeTransientObject(out) })
		}
	}()

	if err := d.bindKey(s, op, spec.keyType, Encode(v, PhasePopulate, variant)); err != nil {
		return err
	}

	out, err = s.AllocateTransientObject(tee.TypeGenericSecret, uint32(len(v.Expected))*8)
	if err != nil {
		return &StepError{Step: StepAllocOutput, Err: err}
	}
	outAllocated = true

	if err := s.DeriveKey(op, out, Encode(v, PhaseDerive, variant)); err != nil {
		return &StepError{Step: StepDerive, Err: err}
	}

	got, err := d.read(s, out)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(got)

	return inspect(got)
}

// bindKey allocates and populates the key object and binds it to op. The key
// object is freed as soon as it is bound.
func (d *Driver) bindKey(s tee.Session, op tee.OperationHandle, typ tee.ObjectType, attrs []tee.Attribute) (err error) {
	key, err := s.AllocateTransientObject(typ, MaxKeySize)
	if err != nil {
		return &StepError{Step: StepAllocKey, Err: err}
	}
	defer d.release(&err, StepFreeKey, func() error { return s.FreeTransientObject(key) })

	if err := s.PopulateTransientObject(key, attrs); err != nil {
		return &StepError{Step: StepPopulate, Err: err}
	}
	if err := s.SetOperationKey(op, key); err != nil {
		return &StepError{Step: StepBind, Err: err}
	}
	return nil
}

func (d *Driver) read(s tee.Session, out tee.ObjectHandle) ([]byte, error) {
	buf := make([]byte, readBufferSize)
	n, err := s.GetObjectBufferAttribute(out, tee.AttrSecretValue, buf)
	if errors.Is(err, tee.StatusShortBuffer) && n > len(buf) {
		buf = make([]byte, n)
		n, err = s.GetObjectBufferAttribute(out, tee.AttrSecretValue, buf)
	}
	if err != nil {
		return nil, &StepError{Step: StepRead, Err: err}
	}
	if n < 0 || n > len(buf) {
		return nil, &StepError{Step: StepRead, Err: fmt.Errorf("kdf: %d bytes reported for a %d byte buffer", n, len(buf))}
	}
	return buf[:n], nil
}

// release frees one handle. A failing free is reported through err unless an
// earlier step already failed.
func (d *Driver) release(err *error, step Step, free func() error) {
	ferr := free()
	if ferr == nil {
		return
	}

	d.log.Warn("release of handle failed",
		logger.NewField("step", string(step)),
		logger.NewField("error", ferr))
	if *err == nil {
		*err = &StepError{Step: step, Err: ferr}
	}
}
