package jwtx

import "errors"

var (
	ErrMalformed      = errors.New("jwtx: malformed token")
	ErrAlgMismatch    = errors.New("jwtx: algorithm mismatch")
	ErrUnsupportedAlg = errors.New("jwtx: unsupported algorithm")
	ErrInvalidSig     = errors.New("jwtx: invalid signature")
	ErrKeyUnavailable = errors.New("jwtx: signing key unavailable")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrTokenType    = errors.New("jwtx: token type mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Failure is the coarse verification outcome callers branch on.
type Failure int

const (
	FailureNone Failure = iota
	FailureMalformed
	FailureSignature
	FailureExpired
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureMalformed:
		return "malformed"
	case FailureSignature:
		return "signature"
	case FailureExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Classify maps a verification error onto a Failure. Only FailureExpired is
// worth retrying (via reissue). Claim problems other than expiry count as
// malformed since the token was never one we would have minted.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrExpired):
		return FailureExpired
	case errors.Is(err, ErrInvalidSig), errors.Is(err, ErrAlgMismatch):
		return FailureSignature
	default:
		return FailureMalformed
	}
}
