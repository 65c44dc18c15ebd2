// Package models holds the persistent entities and wire DTOs of the
// verification service.
package models

import "time"

// BuildStatus is the lifecycle state of a single verification attempt.
// Once Completed or Failed it must never transition back to InProgress; a
// new attempt always creates a new Build row.
type BuildStatus string

const (
	BuildInProgress BuildStatus = "in_progress"
	BuildCompleted  BuildStatus = "completed"
	BuildFailed     BuildStatus = "failed"
	// BuildUnused is carried from the original implementation's job-status
	// enum though no write site for it is known; the one read path that
	// surfaces job status maps it to a failed-equivalent response.
	BuildUnused BuildStatus = "unused"
)

// UnspecifiedSigner is the well-known constant that stands in for "no
// explicit signer was supplied" on a Build row: the system program's
// address, matching db_models::DEFAULT_SIGNER in the original.
const UnspecifiedSigner = "11111111111111111111111111111111"

// Build is a single verification attempt.
type Build struct {
	BuildID     string    `json:"build_id" db:"build_id"`
	ProgramID   string    `json:"program_id" db:"program_id"`
	Repository  string    `json:"repository" db:"repository"`
	Commit      *string   `json:"commit,omitempty" db:"commit"`
	LibraryName *string   `json:"library_name,omitempty" db:"library_name"`
	BaseImage   *string   `json:"base_image,omitempty" db:"base_image"`
	MountPath   *string   `json:"mount_path,omitempty" db:"mount_path"`
	CargoArgs   []string  `json:"cargo_args,omitempty" db:"cargo_args"`
	BPFFlag     bool      `json:"bpf_flag" db:"bpf_flag"`
	Arch        *string   `json:"arch,omitempty" db:"arch"`
	Signer      string    `json:"signer" db:"signer"`
	Status      BuildStatus `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// BuildParams is the subset of Build fields that identify a verification
// request's inputs, independent of lifecycle bookkeeping. find_duplicate
// matches on every field set here.
type BuildParams struct {
	ProgramID   string
	Repository  string
	Commit      *string
	LibraryName *string
	BaseImage   *string
	MountPath   *string
	CargoArgs   []string
	BPFFlag     *bool
	Arch        *string
}

// VerifiedProgram is the latest known hash comparison for a program.
type VerifiedProgram struct {
	VerifiedID     string    `json:"verified_id" db:"verified_id"`
	ProgramID      string    `json:"program_id" db:"program_id"`
	IsVerified     bool      `json:"is_verified" db:"is_verified"`
	OnChainHash    string    `json:"on_chain_hash" db:"on_chain_hash"`
	ExecutableHash string    `json:"executable_hash" db:"executable_hash"`
	VerifiedAt     time.Time `json:"verified_at" db:"verified_at"`
	BuildRef       string    `json:"build_ref" db:"build_ref"`
}

// ProgramAuthority is cached chain metadata for a program.
type ProgramAuthority struct {
	ProgramID   string    `json:"program_id" db:"program_id"`
	Authority   *string   `json:"authority,omitempty" db:"authority"`
	IsFrozen    bool      `json:"is_frozen" db:"is_frozen"`
	IsClosed    bool      `json:"is_closed" db:"is_closed"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// BuildLog points to an external log artifact produced by a build.
type BuildLog struct {
	LogID        string    `json:"log_id" db:"log_id"`
	ProgramID    string    `json:"program_id" db:"program_id"`
	ArtifactName string    `json:"artifact_name" db:"artifact_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// VerifiedBuildWithSigner pairs a Build with its latest VerifiedProgram and
// frozen flag for the per-signer listing response
// (list_verified_with_signer / get_all_verification_info).
type VerifiedBuildWithSigner struct {
	Build    Build
	Verified *VerifiedProgram
	IsFrozen *bool
}
