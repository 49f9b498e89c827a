package hsm

import (
	"fmt"

	logger "github.com/harwoeck/liblog/contract"
	"github.com/miekg/pkcs11"
)

// token is the part of a PKCS#11 token the derivations are composed from.
type token interface {
	// mechanisms lists every mechanism the selected slot offers.
	mechanisms() ([]uint, error)
	// importKey creates a session-only generic secret usable for signing.
	importKey(value []byte) (pkcs11.ObjectHandle, error)
	destroyKey(key pkcs11.ObjectHandle) error
	sign(mechanism uint, key pkcs11.ObjectHandle, data []byte) ([]byte, error)
	digest(mechanism uint, data []byte) ([]byte, error)
	close() error
}

type pkcs11Token struct {
	log     logger.Logger
	config  *Config
	ctx     *pkcs11.Ctx
	slot    uint
	session pkcs11.SessionHandle
}

func openToken(config *Config, log logger.Logger) (*pkcs11Token, error) {
	t := &pkcs11Token{
		log:    log,
		config: config,
	}

	err := t.initCtx()
	if err != nil {
		return nil, err
	}

	err = t.selectSlot()
	if err != nil {
		t.ctx.Destroy()
		return nil, err
	}

	err = t.openSession()
	if err != nil {
		t.ctx.Destroy()
		return nil, err
	}

	return t, nil
}

func (t *pkcs11Token) initCtx() error {
	ctx := pkcs11.New(t.config.Module)
	if ctx == nil {
		return fmt.Errorf("hsm: failed to create new pkcs11 link")
	}

	err := ctx.Initialize()
	if err != nil {
		ctx.Destroy()
		return fmt.Errorf("hsm: failed to init: %w", err)
	}
	t.ctx = ctx

	return nil
}

func (t *pkcs11Token) selectSlot() error {
	slots, err := t.ctx.GetSlotList(true)
	if err != nil {
		return fmt.Errorf("hsm: failed to list slots: %w", err)
	}

	found := false
	for _, si := range slots {
		ti, err := t.ctx.GetTokenInfo(si)
		if err != nil {
			return fmt.Errorf("hsm: failed to get token info: %w", err)
		}
		if ti.Label != t.config.Label {
			continue
		}

		t.slot, found = si, true
		t.log.Info("found HSM slot",
			logger.NewField("label", t.config.Label),
			logger.NewField("manufacturer_id", ti.ManufacturerID),
			logger.NewField("model", ti.Model),
			logger.NewField("serial_number", ti.SerialNumber),
			logger.NewField("hardware_version", fmt.Sprintf("%d.%d", ti.HardwareVersion.Major, ti.HardwareVersion.Minor)),
			logger.NewField("firmware_version", fmt.Sprintf("%d.%d", ti.FirmwareVersion.Major, ti.FirmwareVersion.Minor)))
		break
	}
	if !found {
		return fmt.Errorf("hsm: slot with label %q not found", t.config.Label)
	}

	return nil
}

func (t *pkcs11Token) openSession() error {
	session, err := t.ctx.OpenSession(t.slot, pkcs11.CKF_SERIAL_SESSION|pkcs11.CKF_RW_SESSION)
	if err != nil {
		return fmt.Errorf("hsm: failed to open session: %w", err)
	}
	t.log.Debug("using session", logger.NewField("session_id", session))

	// CKR_USER_ALREADY_LOGGED_IN means another session of this application
	// logged in already, which is what we wanted.
	err = t.ctx.Login(session, pkcs11.CKU_USER, t.config.UserPin)
	if err != nil && err.Error() != "pkcs11: 0x100: CKR_USER_ALREADY_LOGGED_IN" {
		t.closeSession(session)
		return fmt.Errorf("hsm: failed to login: %w", err)
	}

	t.session = session
	return nil
}

func (t *pkcs11Token) closeSession(session pkcs11.SessionHandle) {
	err := t.ctx.CloseSession(session)
	if err != nil {
		t.log.Warn("close of session failed",
			logger.NewField("error", err),
			logger.NewField("session_id", session))
	}
}

func (t *pkcs11Token) logoutSession(session pkcs11.SessionHandle) {
	err := t.ctx.Logout(session)
	if err != nil {
		t.log.Warn("logout of session failed",
			logger.NewField("error", err),
			logger.NewField("session_id", session))
	}
}

func (t *pkcs11Token) mechanisms() ([]uint, error) {
	list, err := t.ctx.GetMechanismList(t.slot)
	if err != nil {
		return nil, fmt.Errorf("hsm: unable to get mechanism list: %w", err)
	}

	ids := make([]uint, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.Mechanism)
	}
	return ids, nil
}

func (t *pkcs11Token) importKey(value []byte) (pkcs11.ObjectHandle, error) {
	obj, err := t.ctx.CreateObject(t.session, []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_SECRET_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_KEY_TYPE, pkcs11.CKK_GENERIC_SECRET),
		pkcs11.NewAttribute(pkcs11.CKA_TOKEN, false),
		pkcs11.NewAttribute(pkcs11.CKA_SENSITIVE, true),
		pkcs11.NewAttribute(pkcs11.CKA_EXTRACTABLE, false),
		pkcs11.NewAttribute(pkcs11.CKA_ENCRYPT, false),
		pkcs11.NewAttribute(pkcs11.CKA_DECRYPT, false),
		pkcs11.NewAttribute(pkcs11.CKA_WRAP, false),
		pkcs11.NewAttribute(pkcs11.CKA_UNWRAP, false),
		pkcs11.NewAttribute(pkcs11.CKA_SIGN, true),
		pkcs11.NewAttribute(pkcs11.CKA_VERIFY, false),
		pkcs11.NewAttribute(pkcs11.CKA_VALUE, value),
	})
	if err != nil {
		return 0, fmt.Errorf("hsm: failed to import key: %w", err)
	}
	return obj, nil
}

func (t *pkcs11Token) destroyKey(key pkcs11.ObjectHandle) error {
	err := t.ctx.DestroyObject(t.session, key)
	if err != nil {
		return fmt.Errorf("hsm: failed to destroy key %d: %w", key, err)
	}
	return nil
}

func (t *pkcs11Token) sign(mechanism uint, key pkcs11.ObjectHandle, data []byte) ([]byte, error) {
	err := t.ctx.SignInit(t.session, []*pkcs11.Mechanism{pkcs11.NewMechanism(mechanism, nil)}, key)
	if err != nil {
		return nil, fmt.Errorf("hsm: failed to init sign: %w", err)
	}

	mac, err := t.ctx.Sign(t.session, data)
	if err != nil {
		return nil, fmt.Errorf("hsm: sign failed: %w", err)
	}
	return mac, nil
}

func (t *pkcs11Token) digest(mechanism uint, data []byte) ([]byte, error) {
	err := t.ctx.DigestInit(t.session, []*pkcs11.Mechanism{pkcs11.NewMechanism(mechanism, nil)})
	if err != nil {
		return nil, fmt.Errorf("hsm: failed to init digest: %w", err)
	}

	d, err := t.ctx.Digest(t.session, data)
	if err != nil {
		return nil, fmt.Errorf("hsm: digest failed: %w", err)
	}
	return d, nil
}

func (t *pkcs11Token) close() error {
	t.logoutSession(t.session)
	t.closeSession(t.session)

	err := t.ctx.Finalize()
	if err != nil {
		t.log.Warn("finalize failed", logger.NewField("error", err))
	}

	t.ctx.Destroy()

	return err
}
