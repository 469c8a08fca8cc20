package app

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// deriveIdentityHash is the single source of truth for "who is this commenter"
// without an account system. Contact fields, when any are present, are joined
// in the fixed order author, email, url with the literal separator "b" and
// digested with SHA-224; otherwise the remote address is digested; otherwise
// the hash is empty. The scheme is advisory: it discourages casual
// impersonation, it does not authenticate.
func deriveIdentityHash(author, email, url, remoteAddr string) string {
	fields := make([]string, 0, 3)
	for _, field := range []string{author, email, url} {
		if field != "" {
			fields = append(fields, field)
		}
	}
	if len(fields) > 0 {
		return hexDigest(strings.Join(fields, "b"))
	}
	if remoteAddr != "" {
		return hexDigest(remoteAddr)
	}
	return ""
}

func hexDigest(input string) string {
	sum := sha256.Sum224([]byte(input))
	return hex.EncodeToString(sum[:])
}

// displayAuthor picks the public label for a commenter: the supplied name,
// else an obfuscated email, else the website, else nothing.
func displayAuthor(author, email, url string) string {
	if author != "" {
		return author
	}
	if email != "" {
		return obfuscateEmail(email)
	}
	return url
}

// obfuscateEmail turns user@example.com into user@****.com. When a separator
// is missing the result degrades to whatever precedes the missing piece.
func obfuscateEmail(email string) string {
	at := strings.Index(email, "@")
	if at < 0 {
		return email
	}
	local := email[:at]
	dot := strings.Index(email[at:], ".")
	if dot < 0 {
		return local + "@****"
	}
	return local + "@****" + email[at+dot:]
}
