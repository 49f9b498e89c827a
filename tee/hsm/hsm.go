// Package hsm provides a tee.Session whose derivations are carried out by a
// PKCS#11 Hardware-Security-Module (HSM). HKDF and PBKDF2 are composed from
// the token's HMAC mechanisms, Concat KDF from its digest mechanisms. Key
// material stays sealed on the host between calls and is imported into the
// token as session objects only while a derivation runs.
//
// Supported HSMs:
//
//   - SoftHSM2 (https://github.com/opendnssec/SoftHSMv2) - Should only be used for testing!
//
// Testing remaining:
//
//   - YubiHSM2 (https://www.yubico.com/at/product/yubihsm-2/)
//   - AWS CloudHSM (https://docs.aws.amazon.com/cloudhsm/latest/userguide/pkcs11-mechanisms.html)
package hsm

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/bluele/gcache"
	logger "github.com/harwoeck/liblog/contract"
	"github.com/miekg/pkcs11"

	"azoo.dev/utils/xtee/tee"
	"azoo.dev/utils/xtee/tee/soft"
)

// Config provides all options for an HSM. Every field is required. Not
// providing valid configuration values results in unspecified behaviour.
// No checks are carried out!
type Config struct {
	// Module is the path to your PKCS#11 module.
	//   Example: "/usr/lib/softhsm/libsofthsm2.so"
	Module string
	// Label is the label of the token this HSM instance should use.
	//   Example: "xtee"
	Label string
	// UserPin is the pin of your user (not security officer!)
	UserPin string
}

// Session is a tee.Session backed by a PKCS#11 token. Handle bookkeeping is
// shared with soft, so leaks and double frees surface the same way.
type Session struct {
	*soft.Session

	log      logger.Logger
	auditLog logger.Logger
	token    token

	closeOnce sync.Once
	closeErr  error
}

var _ tee.Session = (*Session)(nil)
var _ tee.SelfTester = (*Session)(nil)

// New opens the token labeled config.Label and returns a session on it.
func New(config *Config, log logger.Logger) (*Session, error) {
	log = log.Named("hsm")

	t, err := openToken(config, log)
	if err != nil {
		return nil, err
	}

	return newSession(t, log), nil
}

func newSession(t token, log logger.Logger) *Session {
	s := &Session{
		log:      log,
		auditLog: log.Named("audit"),
		token:    t,
	}

	// the mechanism list of a slot is fixed while it is open, so support is
	// looked up once per algorithm. Failed lookups are not cached.
	mechanisms := gcache.New(len(algorithms)).
		ARC().
		LoaderFunc(func(key interface{}) (interface{}, error) {
			return s.supports(algorithms[key.(tee.Algorithm)])
		}).
		Build()

	prims := make(map[tee.Algorithm]soft.Primitive, len(algorithms))
	for alg, spec := range algorithms {
		prims[alg] = &primitive{
			alg:        alg,
			spec:       spec,
			token:      t,
			mechanisms: mechanisms,
		}
	}

	s.Session = soft.NewWithPrimitives(soft.DefaultConfig(), prims, log)
	return s
}

func (s *Session) supports(a algorithm) (bool, error) {
	list, err := s.token.mechanisms()
	if err != nil {
		return false, err
	}

	for _, want := range a.required() {
		found := false
		for _, m := range list {
			if m == want {
				found = true
				break
			}
		}
		if !found {
			s.log.Debug("mechanism not supported by token", logger.NewField("mechanism", fmt.Sprintf("%#x", want)))
			return false, nil
		}
	}
	return true, nil
}

// hmacKnownAnswer is test case 2 of RFC 4231.
var hmacKnownAnswer = struct {
	key, data, mac string
}{
	key:  "4a656665",
	data: "7768617420646f2079612077616e7420666f72206e6f7468696e673f",
	mac:  "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
}

// SelfTest checks the sealed host storage and runs an HMAC-SHA256 known
// answer test on the token.
func (s *Session) SelfTest() error {
	if err := s.Session.SelfTest(); err != nil {
		return err
	}

	key, _ := hex.DecodeString(hmacKnownAnswer.key)
	data, _ := hex.DecodeString(hmacKnownAnswer.data)
	want, _ := hex.DecodeString(hmacKnownAnswer.mac)

	k, err := s.token.importKey(key)
	if err != nil {
		return fmt.Errorf("hsm: self test: %w", err)
	}
	got, err := s.token.sign(pkcs11.CKM_SHA256_HMAC, k, data)
	if destroyErr := s.token.destroyKey(k); destroyErr != nil {
		s.log.Warn("destroy of self test key failed", logger.NewField("error", destroyErr))
	}
	if err != nil {
		return fmt.Errorf("hsm: self test: %w", err)
	}
	if !bytes.Equal(want, got) {
		return fmt.Errorf("hsm: self test: HMAC-SHA256 known answer mismatch")
	}

	s.auditLog.Info("token self test passed")
	return nil
}

// Close reports leaked handles and closes the token.
func (s *Session) Close() error {
	leakErr := s.Session.Close()

	s.closeOnce.Do(func() {
		s.closeErr = s.token.close()
	})
	if leakErr != nil {
		return leakErr
	}
	return s.closeErr
}
