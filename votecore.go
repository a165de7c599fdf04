// Package votecore holds the domain entities shared by the ingest API,
// the queue consumer, the vote materializer and the results service.
package votecore

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus tracks a vote's lifecycle inside the materializer.
// The pipeline only ever writes Processed, directly on insert; it
// never writes Failed and never transitions a row through Received or
// Validating after the fact (no background validator exists).
type ProcessingStatus string

const (
	ProcessingReceived   ProcessingStatus = "received"
	ProcessingValidating ProcessingStatus = "validating"
	ProcessingProcessed  ProcessingStatus = "processed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// Candidate is an entry a user may vote for.
type Candidate struct {
	ID          uuid.UUID
	Name        string
	Description string
	Created     time.Time
	Updated     time.Time
}

// User is a voter, identified by an opaque identifier carried in a
// verified JWT rather than by any PII.
type User struct {
	ID             uuid.UUID
	UserIdentifier string
	Created        time.Time
}

// Vote is a single cast vote. The unique constraint on
// (UserID, CandidateID) is the system's only duplicate-vote defense;
// it is enforced in Postgres, not in application code.
type Vote struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	CandidateID      uuid.UUID
	VoteTimestamp    time.Time
	SourceIP         string
	UserAgent        string
	IsValid          bool
	ProcessingStatus ProcessingStatus
	Created          time.Time
}

// VoteMessage is the payload published to the durable queue by the
// ingest API and consumed by the materializer. UserIdentifier is
// derived once at ingest time from the verified token rather than
// carrying the raw token on the wire (see SPEC_FULL.md section 9,
// "payload vs header token ambiguity").
type VoteMessage struct {
	CandidateID    uuid.UUID `json:"candidate_id"`
	UserIdentifier string    `json:"user_identifier"`
	VoteTimestamp  time.Time `json:"vote_timestamp"`
	SourceIP       string    `json:"source_ip"`
	UserAgent      string    `json:"user_agent"`
}
