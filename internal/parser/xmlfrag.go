package parser

import (
	"regexp"
	"strings"
)

// ansiRE matches ANSI escape sequences (colors, cursor movement, etc.)
var ansiRE = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// ctrlRE matches control characters that are illegal in XML char data.
var ctrlRE = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)

// StripANSI removes ANSI escape codes from shell output.
func StripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

// extractRPCReply pulls the <rpc-reply> payload out of interactive shell
// output. The capture includes command echoes, the trailing prompt and
// sometimes terminal escapes; on slow links the closing tag can be cut
// off, in which case it is re-appended so the decoder can finish.
// Returns "" when no XML payload is present at all.
func extractRPCReply(raw string) string {
	s := StripANSI(raw)
	s = ctrlRE.ReplaceAllString(s, " ")

	start := strings.Index(s, "<rpc-reply")
	if start < 0 {
		// Some captures carry a bare inner document without the
		// rpc-reply envelope. The closing bracket must come after the
		// opening one; a '>' earlier in the capture (a prompt line) is
		// not a document.
		if i := strings.Index(s, "<"); i >= 0 {
			if j := strings.LastIndex(s, ">"); j > i && looksLikeXML(s[i:]) {
				return s[i : j+1]
			}
		}
		return ""
	}

	end := strings.LastIndex(s, "</rpc-reply>")
	if end < 0 {
		return s[start:] + "</rpc-reply>"
	}
	return s[start : end+len("</rpc-reply>")]
}

// looksLikeXML is a cheap sanity check so random CLI text containing a
// stray '<' is not handed to the decoder.
func looksLikeXML(s string) bool {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "<") {
		return false
	}
	return regexp.MustCompile(`^<[A-Za-z?]`).MatchString(trimmed)
}
