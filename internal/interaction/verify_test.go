package interaction

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyPair(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{7}, ed25519.SeedSize))
	pub := priv.Public().(ed25519.PublicKey)
	return hex.EncodeToString(pub), priv
}

func signedHeaders(priv ed25519.PrivateKey, timestamp string, body []byte) http.Header {
	msg := append([]byte(timestamp), body...)
	h := http.Header{}
	h.Set(HeaderSignature, hex.EncodeToString(ed25519.Sign(priv, msg)))
	h.Set(HeaderTimestamp, timestamp)
	return h
}

func TestVerify(t *testing.T) {
	pubHex, priv := testKeyPair(t)
	body := []byte(`{"type":1}`)
	ts := "1671234567"
	valid := signedHeaders(priv, ts, body)

	otherPriv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{9}, ed25519.SeedSize))

	tests := []struct {
		name     string
		headers  http.Header
		body     []byte
		key      string
		wantKind Kind
	}{
		{name: "valid signature", headers: valid, body: body, key: pubHex},
		{
			name:     "tampered body",
			headers:  valid,
			body:     []byte(`{"type":2}`),
			key:      pubHex,
			wantKind: KindSignatureInvalid,
		},
		{
			name: "tampered timestamp",
			headers: func() http.Header {
				h := valid.Clone()
				h.Set(HeaderTimestamp, "1671234568")
				return h
			}(),
			body:     body,
			key:      pubHex,
			wantKind: KindSignatureInvalid,
		},
		{
			name:     "signed by another key",
			headers:  signedHeaders(otherPriv, ts, body),
			body:     body,
			key:      pubHex,
			wantKind: KindSignatureInvalid,
		},
		{
			name: "short signature",
			headers: func() http.Header {
				h := valid.Clone()
				h.Set(HeaderSignature, "abcd")
				return h
			}(),
			body:     body,
			key:      pubHex,
			wantKind: KindSignatureInvalid,
		},
		{
			name: "signature not hex",
			headers: func() http.Header {
				h := valid.Clone()
				h.Set(HeaderSignature, "not-hex")
				return h
			}(),
			body:     body,
			key:      pubHex,
			wantKind: KindEncoding,
		},
		{
			name:     "missing signature",
			headers:  http.Header{HeaderTimestamp: {ts}},
			body:     body,
			key:      pubHex,
			wantKind: KindInvalidInput,
		},
		{
			name:     "missing timestamp",
			headers:  http.Header{HeaderSignature: {valid.Get(HeaderSignature)}},
			body:     body,
			key:      pubHex,
			wantKind: KindInvalidInput,
		},
		{
			name:     "missing both with bad key",
			headers:  http.Header{},
			body:     body,
			key:      "zz",
			wantKind: KindInvalidInput,
		},
		{
			name:     "public key not hex",
			headers:  valid,
			body:     body,
			key:      "zz",
			wantKind: KindConfiguration,
		},
		{
			name:     "public key wrong length",
			headers:  valid,
			body:     body,
			key:      pubHex[:32],
			wantKind: KindConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.headers, tt.body, tt.key)
			if tt.wantKind == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
		})
	}
}

func TestVerify_LowercaseHeaderKeys(t *testing.T) {
	pubHex, priv := testKeyPair(t)
	body := []byte(`{"type":1}`)
	signed := signedHeaders(priv, "42", body)

	headers := http.Header{
		"x-signature-ed25519":   {signed.Get(HeaderSignature)},
		"x-signature-timestamp": {"42"},
	}
	assert.NoError(t, Verify(headers, body, pubHex))
}

func TestVerify_SingleBitMutations(t *testing.T) {
	pubHex, priv := testKeyPair(t)
	v, err := NewVerifier(pubHex)
	require.NoError(t, err)

	body := []byte(`{"type":5,"data":{"custom_id":"new_event"}}`)
	ts := "1700000000"
	headers := signedHeaders(priv, ts, body)
	require.NoError(t, v.Verify(headers, body))

	for i := range len(body) * 8 {
		mutated := bytes.Clone(body)
		mutated[i/8] ^= 1 << (i % 8)
		err := v.Verify(headers, mutated)
		assert.True(t, errors.Is(err, ErrSignatureInvalid), "body bit %d: %v", i, err)
	}

	for i := range len(ts) * 8 {
		b := []byte(ts)
		b[i/8] ^= 1 << (i % 8)
		h := headers.Clone()
		h.Set(HeaderTimestamp, string(b))
		err := v.Verify(h, body)
		assert.True(t, errors.Is(err, ErrSignatureInvalid), "timestamp bit %d: %v", i, err)
	}

	sig, err := hex.DecodeString(headers.Get(HeaderSignature))
	require.NoError(t, err)
	for i := range len(sig) * 8 {
		mutated := bytes.Clone(sig)
		mutated[i/8] ^= 1 << (i % 8)
		h := headers.Clone()
		h.Set(HeaderSignature, hex.EncodeToString(mutated))
		err := v.Verify(h, body)
		assert.True(t, errors.Is(err, ErrSignatureInvalid), "signature bit %d: %v", i, err)
	}
}

func TestVerify_SignatureFailuresCarryNoDetail(t *testing.T) {
	pubHex, priv := testKeyPair(t)
	body := []byte(`{"type":1}`)
	headers := signedHeaders(priv, "1", body)

	errTampered := Verify(headers, []byte(`{"type":2}`), pubHex)
	h := headers.Clone()
	h.Set(HeaderSignature, "00")
	errShort := Verify(h, body, pubHex)

	require.Error(t, errTampered)
	require.Error(t, errShort)
	assert.Equal(t, errTampered.Error(), errShort.Error())
}

func TestNewVerifier(t *testing.T) {
	pubHex, _ := testKeyPair(t)

	_, err := NewVerifier(pubHex)
	assert.NoError(t, err)

	_, err = NewVerifier("  " + pubHex + "\n")
	assert.NoError(t, err)

	_, err = NewVerifier("")
	assert.True(t, errors.Is(err, ErrConfiguration))
}
