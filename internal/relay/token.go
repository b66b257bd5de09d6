package relay

import (
	"strings"

	"github.com/yangwenmai/anonrelay/internal/model"
)

// TokenPrefix marks a retraction token. Callback routing matches on it.
const TokenPrefix = "delete_"

// DeriveToken returns the retraction token for a published artifact. The
// token is self-describing, so nothing is stored.
func DeriveToken(artifactID string) string {
	return TokenPrefix + artifactID
}

// ResolveToken extracts the artifact ID from a retraction token.
func ResolveToken(token string) (string, error) {
	id, ok := strings.CutPrefix(token, TokenPrefix)
	if !ok || id == "" {
		return "", model.ErrMalformedToken
	}
	return id, nil
}
