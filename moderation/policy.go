package moderation

// Kind is the punishment applied when a honeypot trigger fires.
type Kind int

const (
	KindTimeout Kind = iota
	KindTempBan
	KindPermaBan
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTempBan:
		return "temp_ban"
	case KindPermaBan:
		return "perma_ban"
	default:
		return "unknown"
	}
}

// MaxTimeoutDays is the longest communication timeout Discord accepts.
// Anything longer has to be served as a temporary ban.
const MaxTimeoutDays = 28

// Classify maps a configured trigger-role duration to a punishment kind.
// Trigger-channel violations do not go through here; they are always
// KindPermaBan.
func Classify(durationDays int) Kind {
	if durationDays <= MaxTimeoutDays {
		return KindTimeout
	}
	return KindTempBan
}
