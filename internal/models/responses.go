package models

import "time"

// Responses form a tagged sum of {status, verify-ack, status-list, error}.
// Rather than model that as a Go enum type with optional fields, each
// variant is its own struct; a handler returns exactly one of them, so the
// wire form is naturally the untagged union the design calls for — there is
// never a response value carrying more than one variant's fields.

// VerificationStatus is the "status" variant: a single program's verdict.
type VerificationStatus struct {
	IsVerified     bool       `json:"is_verified"`
	OnChainHash    string     `json:"on_chain_hash"`
	ExecutableHash string     `json:"executable_hash"`
	RepoURL        string     `json:"repo_url"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
	Commit         string     `json:"commit"`
	IsFrozen       bool       `json:"is_frozen"`
}

// VerifyAck is the "verify-ack" variant returned by async/sync submission.
type VerifyAck struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
}

// StatusAllEntry is one row of the "status-list" variant.
type StatusAllEntry struct {
	Signer         string     `json:"signer"`
	IsVerified     bool       `json:"is_verified"`
	OnChainHash    string     `json:"on_chain_hash"`
	ExecutableHash string     `json:"executable_hash"`
	RepoURL        string     `json:"repo_url"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
	Commit         string     `json:"commit"`
	IsFrozen       bool       `json:"is_frozen"`
}

// StatusAll is the "status-list" variant: per-signer verdicts.
type StatusAll struct {
	ProgramID string           `json:"program_id"`
	Verified  []StatusAllEntry `json:"verified"`
}

// JobStatusResponse answers GET /job/:build_id.
type JobStatusResponse struct {
	BuildID string      `json:"build_id"`
	Status  BuildStatus `json:"status"`
}

// VerifiedProgramsPage answers GET /verified-programs[/:page].
type VerifiedProgramsPage struct {
	Page      int      `json:"page"`
	ProgramIDs []string `json:"program_ids"`
}

// BackgroundJobStatus answers GET /background-job/status.
type BackgroundJobStatus struct {
	Status  string     `json:"status"` // Active | Inactive | Unknown
	LastRun *time.Time `json:"last_run,omitempty"`
}

// BuildLogResponse answers GET /logs/:program_id.
type BuildLogResponse struct {
	ProgramID    string    `json:"program_id"`
	ArtifactName string    `json:"artifact_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// WebhookOutPayload is POSTed to a caller-supplied webhook URL on async
// verify completion.
type WebhookOutPayload struct {
	Status         string `json:"status"`
	RequestID      string `json:"request_id"`
	OnChainHash    string `json:"on_chain_hash"`
	ExecutableHash string `json:"executable_hash"`
	Message        string `json:"message"`
}
