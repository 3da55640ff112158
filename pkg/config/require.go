package config

import (
	"bytes"
	"fmt"
)

func RequireNonEmptyBytes(value []byte, envName string) error {
	if len(value) == 0 {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}

// RequireSecrets rejects absent signing secrets and a refresh secret equal to
// the access secret.
func RequireSecrets(access, refresh []byte) error {
	if err := RequireNonEmptyBytes(access, "JWT_SECRET"); err != nil {
		return err
	}
	if err := RequireNonEmptyBytes(refresh, "JWT_REFRESH_SECRET"); err != nil {
		return err
	}
	if bytes.Equal(access, refresh) {
		return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	return nil
}
