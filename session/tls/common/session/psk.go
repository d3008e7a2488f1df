package session

// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-4.2.9
type PSKMode uint8

func (p PSKMode) String() string {
	switch p {
	case PSKModePSK_KE:
		return "psk_ke"
	case PSKModePSK_DHE_KE:
		return "psk_dhe_ke"
	}
	return "unknown"
}

const (
	PSKModePSK_KE     PSKMode = 0
	PSKModePSK_DHE_KE PSKMode = 1
)

// PSKType is the prefix of the binder key label.
// Reference: https://datatracker.ietf.org/doc/html/rfc8446#section-7.1
type PSKType string

const (
	PSKTypeResumption PSKType = "res"
	PSKTypeExternal   PSKType = "ext"
)
