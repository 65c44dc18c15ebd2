package models

// VerifyRequest is the body of POST /verify, /verify-with-signer, and
// /verify_sync.
type VerifyRequest struct {
	ProgramID   string   `json:"program_id" validate:"required"`
	Repository  string   `json:"repository" validate:"required,url"`
	Commit      *string  `json:"commit,omitempty"`
	LibraryName *string  `json:"library_name,omitempty"`
	BaseImage   *string  `json:"base_image,omitempty"`
	MountPath   *string  `json:"mount_path,omitempty"`
	CargoArgs   []string `json:"cargo_args,omitempty"`
	BPFFlag     bool     `json:"bpf_flag,omitempty"`
	Arch        *string  `json:"arch,omitempty"`
	Signer      *string  `json:"signer,omitempty"`
	Webhook     *string  `json:"webhook,omitempty" validate:"omitempty,url"`
}
