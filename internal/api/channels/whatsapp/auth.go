package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifySignature checks the X-Hub-Signature-256 header Meta attaches to
// webhook deliveries. The header format is "sha256=<hex digest>".
func VerifySignature(signature string, payload []byte, appSecret string) error {
	if !strings.HasPrefix(signature, "sha256=") {
		return fmt.Errorf("invalid signature format: missing sha256= prefix")
	}
	expectedSig := strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(payload)
	computedSig := hex.EncodeToString(mac.Sum(nil))

	// Constant-time comparison to prevent timing attacks
	if !hmac.Equal([]byte(expectedSig), []byte(computedSig)) {
		return fmt.Errorf("signature verification failed")
	}
	return nil
}
