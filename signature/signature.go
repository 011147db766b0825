// Package signature verifies HSDP API signatures on inbound gateway requests.
package signature

import (
	"fmt"
	"net/http"

	signer "github.com/philips-software/go-hsdp-signer"
)

// Header names as they arrive at the gateway.
const (
	HeaderSignedDate = "SignedDate"
	HeaderSignature  = "hsdp-api-signature"
)

// Error reports a request that failed signature verification.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "signature validation failed: " + e.Reason
}

// Verifier checks the SignedDate and hsdp-api-signature headers.
type Verifier struct {
	signer *signer.Signer
}

// NewVerifier returns a Verifier for the shared/secret key pair.
func NewVerifier(sharedKey, secretKey string) (*Verifier, error) {
	s, err := signer.New(sharedKey, secretKey)
	if err != nil {
		return nil, err
	}
	return &Verifier{signer: s}, nil
}

// Verify validates the signature headers returned by header. header is
// a lookup such as http.Header.Get; it returns "" for a missing header.
func (v *Verifier) Verify(header func(name string) string) error {
	date := header(HeaderSignedDate)
	if date == "" {
		return &Error{Reason: "missing signeddate header"}
	}
	sig := header(HeaderSignature)
	if sig == "" {
		return &Error{Reason: "missing hsdp-api-signature header"}
	}

	// Only the signature headers take part in the signature, so a bare
	// request carrying them is enough to validate.
	req, err := http.NewRequest(http.MethodGet, "https://gateway.invalid", nil)
	if err != nil {
		return err
	}
	req.Header.Set(signer.HeaderSignedDate, date)
	req.Header.Set(signer.HeaderAuthorization, sig)

	valid, err := v.signer.ValidateRequest(req)
	if err != nil {
		return &Error{Reason: fmt.Sprintf("invalid signature: %v", err)}
	}
	if !valid {
		return &Error{Reason: "invalid signature"}
	}
	return nil
}
