package helpers

const (
	// MemberIDHeader carries the acting member's directory id.
	MemberIDHeader = "X-Member-ID"

	MemberSearchLimit = 20
)
