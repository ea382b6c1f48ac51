package protocol

import "strings"

// Negotiation lines are plain text, sent before any JSON traffic.
const (
	SuggestedUsername = "SUGGESTED_USERNAME"
	UsernameAccepted  = "USERNAME_ACCEPTED"
	UsernameRejected  = "USERNAME_REJECTED"
)

func Suggest(name string) string {
	return SuggestedUsername + " " + name
}

func Accept(name string) string {
	return UsernameAccepted + " " + name
}

func Reject(reason string) string {
	return UsernameRejected + " " + reason
}

// ParseReply splits a negotiation line into its keyword and argument.
func ParseReply(line string) (keyword, arg string) {
	keyword, arg, _ = strings.Cut(strings.TrimSpace(line), " ")
	return keyword, strings.TrimSpace(arg)
}
