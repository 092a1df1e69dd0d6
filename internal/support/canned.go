package support

import "strings"

// cannedReplies maps keyword fragments to canned answers served to
// unauthenticated callers without a network round trip.
var cannedReplies = []struct {
	keywords []string
	reply    string
}{
	{
		keywords: []string{"create", "repository", "repo"},
		reply:    "To create a repository, start a new workflow, upload your files, and launch the automation.",
	},
	{
		keywords: []string{"credit", "credits", "billing"},
		reply:    "Your dashboard shows your available credits. More credits are available in the pricing section.",
	},
	{
		keywords: []string{"login", "connect", "sign in", "connection"},
		reply:    "If you have trouble signing in, retry via GitHub, GitLab, or Bitbucket. If the problem persists, contact support@gitpusher.ai.",
	},
	{
		keywords: []string{"support", "contact", "help"},
		reply:    "You can reach us at support@gitpusher.ai or via the contact form on the site.",
	},
}

const fallbackReply = "Thanks for your message. For personalised assistance please sign in, or write to support@gitpusher.ai."

// CannedReply returns the canned answer matching the first keyword found in
// text, or the fallback.
func CannedReply(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range cannedReplies {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.reply
			}
		}
	}
	return fallbackReply
}
