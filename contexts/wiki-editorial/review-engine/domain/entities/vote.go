package entities

import "time"

// Vote records that one voter endorsed one revision. A voter casts at most
// one vote per revision but may vote on any number of distinct revisions.
type Vote struct {
	VoteID      string
	RevisionID  string
	VoterUserID string
	VotedAt     time.Time
}
