package config

import (
	"bytes"
	"fmt"
	"os"
)

// MinPassphraseLength mirrors sectorcipher.MinPassphraseLength; duplicated
// here (rather than imported) so config stays import-free of the crypto
// layer it merely validates input for.
const MinPassphraseLength = 20

// ReadPassphraseFile reads a passphrase from path, matching aespipe's own
// convention: the file's bytes are the key material verbatim except for a
// single trailing newline, which is stripped if present. Unlike the
// teacher's API key resolution (internal/config's old ResolveAPIKey, which
// checked five fallback sources including an environment variable),
// aestar never accepts a passphrase via flag or environment — secrets
// passed as arguments or env vars leak through /proc/<pid>/cmdline and
// /proc/<pid>/environ to any co-resident user, and a passphrase protecting
// an entire tape backup is not a risk worth that convenience.
func ReadPassphraseFile(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("config: passphrase file path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read passphrase file %q: %w", path, err)
	}
	data = bytes.TrimSuffix(data, []byte("\n"))
	data = bytes.TrimSuffix(data, []byte("\r"))
	if len(data) == 0 {
		return nil, fmt.Errorf("config: passphrase file %q is empty", path)
	}
	return data, nil
}

// PassphraseWarning returns a non-empty warning string when passphrase is
// shorter than aespipe's own recommended minimum, per spec §6. The caller
// logs it at Warn level; construction proceeds regardless (short
// passphrases are decryptable, just weaker).
func PassphraseWarning(passphrase []byte) string {
	if len(passphrase) < MinPassphraseLength {
		return fmt.Sprintf("passphrase is %d bytes, shorter than the recommended minimum of %d; aespipe warns about this too", len(passphrase), MinPassphraseLength)
	}
	return ""
}
