package moderation

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultKeywords is the built-in denylist. Entries are matched as
// substrings of the normalized text, not as whole words.
var DefaultKeywords = []string{
	// English
	"fuck", "shit", "bitch", "cunt", "asshole", "bastard", "dickhead", "whore", "slut", "wanker", "twat", "bollocks",
	// Spanish
	"mierda", "pendejo", "cabrón", "coño", "hijo de puta",
	// French
	"merde", "putain", "connard", "salope",
	// German
	"scheiße", "arschloch", "wichser", "fotze",
	// Italian
	"cazzo", "stronzo", "vaffanculo",
	// Portuguese
	"caralho", "porra", "buceta",
	// Polish
	"kurwa",
	// Russian
	"блять", "сука", "хуй", "пизд",
	// Turkish
	"siktir", "orospu",
	// Indonesian / Malay
	"kontol", "memek", "ngentot", "bangsat",
	// Hindi (romanized)
	"chutiya", "madarchod", "bhenchod",
}

// normalize returns the case-insensitive comparison form of s: NFKC so that
// full-width and compatibility characters collapse, then full case folding.
func normalize(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// keyword pairs a denylist entry with its normalized form.
type keyword struct {
	word   string
	folded string
}

func compileKeywords(lists ...[]string) []keyword {
	seen := make(map[string]bool)
	var out []keyword
	for _, list := range lists {
		for _, w := range list {
			f := normalize(w)
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			out = append(out, keyword{word: w, folded: f})
		}
	}
	return out
}
