package security

// NewTestTokenProvider returns a TokenProvider using a fresh ephemeral key pair.
// For unit tests only.
func NewTestTokenProvider() (*TokenProvider, error) {
	signer, pub, err := GenerateEphemeralKeyPair()
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(signer, pub, "test-issuer", "test-audience"), nil
}
