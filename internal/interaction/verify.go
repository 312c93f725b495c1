package interaction

import (
	"crypto/ed25519"
	"encoding/hex"
	"net/http"
	"strings"
)

// Headers carrying the platform's request signature.
const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

// Verifier checks Ed25519 request signatures against one public key.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	publicKey ed25519.PublicKey
}

// NewVerifier decodes a hex public key. Anything that is not 32 bytes of hex
// is a configuration error.
func NewVerifier(publicKeyHex string) (*Verifier, error) {
	key, err := decodePublicKey(publicKeyHex)
	if err != nil {
		return nil, err
	}
	return &Verifier{publicKey: key}, nil
}

// Verify checks the signature headers of a request against body.
//
// The signed message is the timestamp header bytes followed by the body bytes.
// Missing headers are KindInvalidInput, undecodable signature hex is
// KindEncoding, and every cryptographic failure is KindSignatureInvalid with
// no further detail.
func (v *Verifier) Verify(headers http.Header, body []byte) error {
	signature := headerValue(headers, HeaderSignature)
	timestamp := headerValue(headers, HeaderTimestamp)
	if signature == "" || timestamp == "" {
		return missingCredentials()
	}

	sig, err := hex.DecodeString(signature)
	if err != nil {
		return &Error{Kind: KindEncoding, Detail: "signature is not hex", Err: err}
	}
	if len(sig) != ed25519.SignatureSize {
		return &Error{Kind: KindSignatureInvalid}
	}

	message := make([]byte, 0, len(timestamp)+len(body))
	message = append(message, timestamp...)
	message = append(message, body...)

	if !ed25519.Verify(v.publicKey, message, sig) {
		return &Error{Kind: KindSignatureInvalid}
	}
	return nil
}

// Verify is a one-shot form of Verifier.Verify that decodes the key per call.
// A bad key is reported as KindConfiguration.
func Verify(headers http.Header, body []byte, publicKeyHex string) error {
	// Header presence is checked before the key so a missing-credential
	// request gets the same answer regardless of server configuration.
	if headerValue(headers, HeaderSignature) == "" || headerValue(headers, HeaderTimestamp) == "" {
		return missingCredentials()
	}
	v, err := NewVerifier(publicKeyHex)
	if err != nil {
		return err
	}
	return v.Verify(headers, body)
}

func decodePublicKey(publicKeyHex string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(publicKeyHex))
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Detail: "public key is not hex", Err: err}
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, &Error{Kind: KindConfiguration, Detail: "public key must be 32 bytes"}
	}
	return ed25519.PublicKey(raw), nil
}

// headerValue looks up a header case-insensitively, including maps built by
// hand with non-canonical keys.
func headerValue(headers http.Header, name string) string {
	if v := headers.Get(name); v != "" {
		return v
	}
	for k, vals := range headers {
		if strings.EqualFold(k, name) && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}
