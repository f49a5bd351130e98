package payment

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
)

// snapshotKeyBytes scrambles the success payload so the URL does not spell
// out donor details in clear text. The key is embedded: this is an opaque
// transport encoding, not a confidentiality boundary.
var snapshotKeyBytes = []byte("dntnprtl-success-payload-key-32b")

// EncodeSuccessPayload turns a snapshot into a URL-safe opaque string.
func EncodeSuccessPayload(snapshot SuccessSnapshot) (string, error) {
	plain, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("could not marshal snapshot: %s", err)
	}

	block, err := aes.NewCipher(snapshotKeyBytes)
	if err != nil {
		return "", fmt.Errorf("could not create cipher: %s", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("could not create gcm: %s", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	_, err = io.ReadFull(rand.Reader, nonce)
	if err != nil {
		return "", fmt.Errorf("could not generate nonce: %s", err)
	}

	sealed := gcm.Seal(nonce, nonce, plain, nil)

	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// DecodeSuccessPayload is the inverse of EncodeSuccessPayload. A payload
// that does not decode is treated as invalid input, not a server fault.
func DecodeSuccessPayload(payload string) (SuccessSnapshot, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return SuccessSnapshot{}, myerrors.NewInvalidInputErrorf("malformed success payload")
	}

	block, err := aes.NewCipher(snapshotKeyBytes)
	if err != nil {
		return SuccessSnapshot{}, fmt.Errorf("could not create cipher: %s", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return SuccessSnapshot{}, fmt.Errorf("could not create gcm: %s", err)
	}

	if len(sealed) < gcm.NonceSize() {
		return SuccessSnapshot{}, myerrors.NewInvalidInputErrorf("malformed success payload")
	}

	plain, err := gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
	if err != nil {
		return SuccessSnapshot{}, myerrors.NewInvalidInputErrorf("malformed success payload")
	}

	snapshot := SuccessSnapshot{}
	err = json.Unmarshal(plain, &snapshot)
	if err != nil {
		return SuccessSnapshot{}, myerrors.NewInvalidInputErrorf("malformed success payload")
	}

	return snapshot, nil
}
