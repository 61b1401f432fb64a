package license

import (
	"crypto/ed25519"
	"encoding/hex"
)

// releaseIssuerPublicKeyHex is the embedded public half of the keypair
// CostPilot's release signer uses to sign license records. Same pattern as
// internal/sandbox.TrustedKeys: the public key ships in the binary, the
// private key never does.
const releaseIssuerPublicKeyHex = "3b6a27bcceb6a42d62a3a8d02a6f0d73653215771de243a63ac048a18b59da2"

// DefaultTrustedKeys returns the trusted issuer keyset CostPilot ships
// with. Operators with a Premium license signed by a different issuer
// supply their own keyset via the same TrustedKeys type; the CLI's default
// wiring only recognizes the "costpilot" release issuer.
func DefaultTrustedKeys() TrustedKeys {
	raw, err := hex.DecodeString(releaseIssuerPublicKeyHex)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return TrustedKeys{}
	}
	return TrustedKeys{"costpilot": ed25519.PublicKey(raw)}
}
