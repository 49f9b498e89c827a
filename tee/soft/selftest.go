package soft

import (
	"fmt"

	"azoo.dev/utils/xtee/tee/internal/sealed"
)

// SelfTest checks that key material survives a round trip through the
// secure storage of the environment.
func (s *Session) SelfTest() error {
	if err := sealed.SelfTest(); err != nil {
		return fmt.Errorf("soft: self test: %w", err)
	}

	s.auditLog.Info("key manager self test passed")
	return nil
}
