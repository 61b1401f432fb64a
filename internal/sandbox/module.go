package sandbox

import (
	"crypto/ed25519"
	"fmt"

	"costpilot/internal/cperrors"
)

// SignedModule is an externally supplied Premium stage implementation:
// its payload (the serialized computation descriptor or compiled plugin
// reference) plus an Ed25519 signature over that payload. Nothing here
// executes the module; VerifyModule only gates whether it is allowed to
// be instantiated at all.
type SignedModule struct {
	Payload   []byte
	Signature []byte
	Issuer    string
}

// TrustedKeys maps an issuer name to its embedded Ed25519 public key, the
// same pattern internal/license uses for license signatures.
type TrustedKeys map[string]ed25519.PublicKey

// VerifyModule checks a signed module's signature against its issuer's
// trusted public key before the module is ever instantiated. An unknown
// issuer or a signature mismatch both fail closed.
func VerifyModule(keys TrustedKeys, module SignedModule) error {
	pub, ok := keys[module.Issuer]
	if !ok {
		return cperrors.New(cperrors.KindConfiguration, cperrors.CodeModuleSignatureInvalid,
			fmt.Sprintf("unknown module issuer %q", module.Issuer),
			map[string]string{"issuer": module.Issuer})
	}
	if !ed25519.Verify(pub, module.Payload, module.Signature) {
		return cperrors.New(cperrors.KindConfiguration, cperrors.CodeModuleSignatureInvalid,
			"module signature does not verify",
			map[string]string{"issuer": module.Issuer})
	}
	return nil
}
