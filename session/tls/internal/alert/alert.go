// Package alert holds tls alert descriptions and the error type
// handshake code reports them with.
package alert

import (
	"fmt"

	"github.com/pkg/errors"
)

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-6
type Description uint8

const (
	CloseNotify           Description = 0
	UnexpectedMessage     Description = 10
	HandshakeFailure      Description = 40
	IllegalParameter      Description = 47
	DecodeError           Description = 50
	DecryptError          Description = 51
	ProtocolVersion       Description = 70
	InternalError         Description = 80
	MissingExtension      Description = 109
	UnsupportedExtension  Description = 110
	UnknownPSKIdentity    Description = 115
	CertificateRequired   Description = 116
	NoApplicationProtocol Description = 120
)

var descriptionNames = map[Description]string{
	CloseNotify:           "close_notify",
	UnexpectedMessage:     "unexpected_message",
	HandshakeFailure:      "handshake_failure",
	IllegalParameter:      "illegal_parameter",
	DecodeError:           "decode_error",
	DecryptError:          "decrypt_error",
	ProtocolVersion:       "protocol_version",
	InternalError:         "internal_error",
	MissingExtension:      "missing_extension",
	UnsupportedExtension:  "unsupported_extension",
	UnknownPSKIdentity:    "unknown_psk_identity",
	CertificateRequired:   "certificate_required",
	NoApplicationProtocol: "no_application_protocol",
}

func (d Description) String() string {
	if name, ok := descriptionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("unknown: %d", d)
}

// Error is a fatal alert raised by handshake processing.
type Error struct {
	Description Description
	cause       error
}

func NewError(cause error, desc Description) Error {
	return Error{
		Description: desc,
		cause:       cause,
	}
}

// Errorf is shorthand for NewError(errors.Errorf(...), desc).
func Errorf(desc Description, format string, args ...any) Error {
	return NewError(errors.Errorf(format, args...), desc)
}

func (e Error) Error() string {
	msg := ""
	if e.cause != nil {
		msg = e.cause.Error()
	}

	return fmt.Sprintf("alert(%s), %s", e.Description.String(), msg)
}

func (e Error) Cause() error  { return e.cause }
func (e Error) Unwrap() error { return e.cause }

func (e Error) Is(err error) bool {
	return errors.Is(e.cause, err)
}

// DescriptionOf finds the alert carried by err, if any.
func DescriptionOf(err error) (Description, bool) {
	var alertErr Error
	if errors.As(err, &alertErr) {
		return alertErr.Description, true
	}
	return 0, false
}
