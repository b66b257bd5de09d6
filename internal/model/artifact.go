package model

import "time"

// Verdict is the allow/block decision produced by moderation.
// Reason is set if and only if Allowed is false.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns an allowing Verdict.
func Allow() Verdict {
	return Verdict{Allowed: true}
}

// Block returns a blocking Verdict. An empty reason is replaced so the
// reason/allowed invariant always holds.
func Block(reason string) Verdict {
	if reason == "" {
		reason = "content not allowed"
	}
	return Verdict{Allowed: false, Reason: reason}
}

// PublishedArtifact records a successful publish to the target channel.
type PublishedArtifact struct {
	ArtifactID string `json:"artifact_id"`
	OwnerToken string `json:"owner_token"`
}

// RetractionRequest asks for the deletion of the artifact behind Token.
type RetractionRequest struct {
	Token string `json:"token"`
}

// Outcome is the terminal result of relaying one submission.
type Outcome struct {
	Verdict  Verdict            `json:"verdict"`
	Artifact *PublishedArtifact `json:"artifact,omitempty"`
}

// Published reports whether the submission reached the channel.
func (o Outcome) Published() bool {
	return o.Artifact != nil
}

// SyntheticPostJob describes the periodic filler-post task. It is fixed at
// startup and never mutated.
type SyntheticPostJob struct {
	Interval time.Duration `json:"interval"`
	Cooldown time.Duration `json:"cooldown"`
	Enabled  bool          `json:"enabled"`
}
