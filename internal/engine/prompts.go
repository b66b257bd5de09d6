package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const classifySystemPrompt = `You are a profanity filter for an anonymous community channel.

Block a message ONLY if it contains vulgar or profane words (swearing, slurs, explicit sexual terms), in any language or spelling.
Never block because of the topic, opinion, criticism, sadness, or political viewpoint of the message.

Output ONLY valid JSON with this exact structure (no markdown, no explanation):
{"action": "allow"} or {"action": "block", "reason": "short reason naming the offending word"}`

func buildClassifyPrompt(text string) string {
	return fmt.Sprintf("Message:\n<<<\n%s\n>>>", truncateRunes(text, 4000))
}

const generateSystemPrompt = `You write short posts for an anonymous community channel.

Rules:
- One post only, at most 280 characters
- Stay on the channel topic
- No vulgar, profane, hateful or sexual language
- No hashtags, no quotation marks around the post, no explanation
- Write it as if a real member posted it anonymously`

func buildGeneratePrompt(topic, tone, inspiration string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Channel topic: %s\nTone: %s\n", topic, tone)
	if inspiration != "" {
		fmt.Fprintf(&b, "\nYou may draw loosely on this excerpt:\n%s\n", truncateRunes(inspiration, 1500))
	}
	b.WriteString("\nWrite the post now.")
	return b.String()
}

// truncateRunes truncates s to maxRunes runes (Unicode-safe).
func truncateRunes(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "\n... [truncated]"
}
