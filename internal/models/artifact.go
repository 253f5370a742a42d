package models

import "time"

// ArtifactState captures the lifecycle of a generated report file.
// The only transition is active -> deleted, performed exactly once.
type ArtifactState string

const (
	ArtifactStateActive  ArtifactState = "active"
	ArtifactStateDeleted ArtifactState = "deleted"
)

// Artifact is a generated report file plus its validity metadata.
type Artifact struct {
	ID        string        `json:"id"`
	SubjectID string        `json:"subjectId"`
	Period    Period        `json:"period"`
	FilePath  string        `json:"-"`
	SizeBytes int64         `json:"sizeBytes"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
	State     ArtifactState `json:"-"`
}

// Expired reports whether the artifact is past its TTL at the given instant.
func (a *Artifact) Expired(now time.Time) bool {
	return !a.ExpiresAt.After(now)
}

// Period is the reporting interval a report covers, e.g. one calendar month.
type Period struct {
	From string `json:"from"`
	To   string `json:"to"`
}
