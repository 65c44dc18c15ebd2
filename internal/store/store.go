// Package store provides typed persistence over the four relations the
// verification service owns: builds, verified-programs, program-authority,
// and build-logs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/models"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/ulid"
)

// Store is the interface every Store operation in spec.md §4.B is exposed
// through. All failures surface as *apierr.StoreError.
type Store interface {
	InsertBuild(ctx context.Context, b *models.Build) error
	GetBuild(ctx context.Context, buildID string) (*models.Build, error)
	GetLatestBuild(ctx context.Context, programID string) (*models.Build, error)
	FindDuplicate(ctx context.Context, params models.BuildParams, signer string) (*models.Build, error)
	UpdateBuildStatus(ctx context.Context, buildID string, status models.BuildStatus) error

	UpsertVerified(ctx context.Context, v *models.VerifiedProgram) error
	UpdateOnChainHash(ctx context.Context, programID, newHash string, isVerified bool) error
	MarkUnverified(ctx context.Context, programID string) error
	GetVerified(ctx context.Context, programID string, signer *string) (*models.VerifiedProgram, error)
	ListVerifiedWithSigner(ctx context.Context, programID string) ([]models.VerifiedBuildWithSigner, error)

	UpsertProgramAuthority(ctx context.Context, programID string, authority *string, isFrozen bool, isClosed bool) error
	GetProgramAuthority(ctx context.Context, programID string) (*models.ProgramAuthority, error)
	IsFrozen(ctx context.Context, programID string) (bool, error)
	IsClosed(ctx context.Context, programID string) (bool, error)
	ListAllVerifiedProgramIDs(ctx context.Context) ([]string, error)

	InsertBuildLog(ctx context.Context, l *models.BuildLog) error
	GetLatestBuildLog(ctx context.Context, programID string) (*models.BuildLog, error)
}

type store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by pool.
func New(pool *pgxpool.Pool) Store {
	return &store{pool: pool}
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apierr.NotFound(err)
	}
	return apierr.Transport(err)
}

// -- builds --------------------------------------------------------------

func (s *store) InsertBuild(ctx context.Context, b *models.Build) error {
	if b.BuildID == "" {
		b.BuildID = ulid.New()
	}
	if b.Signer == "" {
		b.Signer = models.UnspecifiedSigner
	}
	query := `
		INSERT INTO builds (build_id, program_id, repository, commit, library_name, base_image,
		                     mount_path, cargo_args, bpf_flag, arch, signer, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12, now())
		RETURNING created_at`
	err := s.pool.QueryRow(ctx, query,
		b.BuildID, b.ProgramID, b.Repository, b.Commit, b.LibraryName, b.BaseImage,
		b.MountPath, b.CargoArgs, b.BPFFlag, b.Arch, b.Signer, b.Status,
	).Scan(&b.CreatedAt)
	if err != nil {
		return apierr.Transport(err)
	}
	return nil
}

func scanBuild(row pgx.Row) (*models.Build, error) {
	var b models.Build
	err := row.Scan(&b.BuildID, &b.ProgramID, &b.Repository, &b.Commit, &b.LibraryName,
		&b.BaseImage, &b.MountPath, &b.CargoArgs, &b.BPFFlag, &b.Arch, &b.Signer, &b.Status, &b.CreatedAt)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &b, nil
}

const buildColumns = `build_id, program_id, repository, commit, library_name, base_image, mount_path, cargo_args, bpf_flag, arch, signer, status, created_at`

func (s *store) GetBuild(ctx context.Context, buildID string) (*models.Build, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+buildColumns+` FROM builds WHERE build_id = $1`, buildID)
	return scanBuild(row)
}

func (s *store) GetLatestBuild(ctx context.Context, programID string) (*models.Build, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+buildColumns+` FROM builds WHERE program_id = $1 ORDER BY created_at DESC LIMIT 1`,
		programID)
	return scanBuild(row)
}

// FindDuplicate matches on every field set in params plus signer, returning
// the newest match. Fields left unset (nil) in params are not constrained.
func (s *store) FindDuplicate(ctx context.Context, p models.BuildParams, signer string) (*models.Build, error) {
	query := `SELECT ` + buildColumns + ` FROM builds
		WHERE program_id = $1 AND repository = $2 AND signer = $3
		  AND ($4::text IS NULL OR commit = $4)
		  AND ($5::text IS NULL OR library_name = $5)
		  AND ($6::text IS NULL OR base_image = $6)
		  AND ($7::text IS NULL OR mount_path = $7)
		  AND ($8::text IS NULL OR arch = $8)
		  AND ($9::boolean IS NULL OR bpf_flag = $9)
		  AND ($10::text[] IS NULL OR cargo_args = $10)
		ORDER BY created_at DESC LIMIT 1`
	row := s.pool.QueryRow(ctx, query, p.ProgramID, p.Repository, signer,
		p.Commit, p.LibraryName, p.BaseImage, p.MountPath, p.Arch, p.BPFFlag, p.CargoArgs)
	return scanBuild(row)
}

func (s *store) UpdateBuildStatus(ctx context.Context, buildID string, status models.BuildStatus) error {
	_, err := s.pool.Exec(ctx, `UPDATE builds SET status = $2 WHERE build_id = $1`, buildID, status)
	if err != nil {
		return apierr.Transport(err)
	}
	return nil
}

// -- verified programs -----------------------------------------------------

func (s *store) UpsertVerified(ctx context.Context, v *models.VerifiedProgram) error {
	if v.VerifiedID == "" {
		v.VerifiedID = ulid.New()
	}
	if v.VerifiedAt.IsZero() {
		v.VerifiedAt = time.Now()
	}
	query := `
		INSERT INTO verified_programs (verified_id, program_id, is_verified, on_chain_hash, executable_hash, verified_at, build_ref)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (verified_id) DO UPDATE SET
			is_verified = EXCLUDED.is_verified,
			on_chain_hash = EXCLUDED.on_chain_hash,
			executable_hash = EXCLUDED.executable_hash,
			verified_at = EXCLUDED.verified_at`
	_, err := s.pool.Exec(ctx, query, v.VerifiedID, v.ProgramID, v.IsVerified, v.OnChainHash, v.ExecutableHash, v.VerifiedAt, v.BuildRef)
	if err != nil {
		return apierr.Transport(err)
	}
	return nil
}

func (s *store) UpdateOnChainHash(ctx context.Context, programID, newHash string, isVerified bool) error {
	query := `
		UPDATE verified_programs SET on_chain_hash = $2, is_verified = $3, verified_at = now()
		WHERE verified_id = (
			SELECT verified_id FROM verified_programs WHERE program_id = $1 ORDER BY verified_at DESC LIMIT 1
		)`
	_, err := s.pool.Exec(ctx, query, programID, newHash, isVerified)
	if err != nil {
		return apierr.Transport(err)
	}
	return nil
}

// MarkUnverified flips is_verified=false without touching the stored hash,
// used when a program becomes closed.
func (s *store) MarkUnverified(ctx context.Context, programID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE verified_programs SET is_verified = false WHERE program_id = $1`, programID)
	if err != nil {
		return apierr.Transport(err)
	}
	return nil
}

const verifiedColumns = `verified_id, program_id, is_verified, on_chain_hash, executable_hash, verified_at, build_ref`

// GetVerified returns the newest verified row for programID. Without an
// explicit signer, it's restricted to builds whose signer is in the trust
// set T = TrustedSigners ∪ {cached on-chain authority} ∪ {null}.
func (s *store) GetVerified(ctx context.Context, programID string, signer *string) (*models.VerifiedProgram, error) {
	var row pgx.Row
	if signer != nil {
		query := `
			SELECT vp.` + verifiedColumns1() + `
			FROM verified_programs vp JOIN builds b ON b.build_id = vp.build_ref
			WHERE vp.program_id = $1 AND b.signer = $2
			ORDER BY vp.verified_at DESC LIMIT 1`
		row = s.pool.QueryRow(ctx, query, programID, *signer)
	} else {
		authority, _ := s.currentAuthority(ctx, programID)
		trusted := append(append([]string{}, models.TrustedSigners...), models.UnspecifiedSigner)
		if authority != nil {
			trusted = append(trusted, *authority)
		}
		query := `
			SELECT vp.` + verifiedColumns1() + `
			FROM verified_programs vp JOIN builds b ON b.build_id = vp.build_ref
			WHERE vp.program_id = $1 AND b.signer = ANY($2)
			ORDER BY vp.verified_at DESC LIMIT 1`
		row = s.pool.QueryRow(ctx, query, programID, trusted)
	}
	return scanVerified(row)
}

func verifiedColumns1() string {
	return "verified_id, vp.program_id, is_verified, on_chain_hash, executable_hash, verified_at, build_ref"
}

func scanVerified(row pgx.Row) (*models.VerifiedProgram, error) {
	var v models.VerifiedProgram
	err := row.Scan(&v.VerifiedID, &v.ProgramID, &v.IsVerified, &v.OnChainHash, &v.ExecutableHash, &v.VerifiedAt, &v.BuildRef)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &v, nil
}

func (s *store) currentAuthority(ctx context.Context, programID string) (*string, error) {
	var authority *string
	err := s.pool.QueryRow(ctx, `SELECT authority FROM program_authority WHERE program_id = $1`, programID).Scan(&authority)
	if err != nil {
		return nil, err
	}
	return authority, nil
}

// ListVerifiedWithSigner returns at most one row per signer (newest by
// creation), restricted to is_verified = true.
func (s *store) ListVerifiedWithSigner(ctx context.Context, programID string) ([]models.VerifiedBuildWithSigner, error) {
	query := `
		SELECT DISTINCT ON (b.signer) ` + buildColumns1() + `, ` + verifiedColumns1() + `, pa.is_frozen
		FROM builds b
		JOIN verified_programs vp ON vp.build_ref = b.build_id
		LEFT JOIN program_authority pa ON pa.program_id = b.program_id
		WHERE b.program_id = $1 AND vp.is_verified = true
		ORDER BY b.signer, b.created_at DESC`
	rows, err := s.pool.Query(ctx, query, programID)
	if err != nil {
		return nil, apierr.Transport(err)
	}
	defer rows.Close()

	var out []models.VerifiedBuildWithSigner
	for rows.Next() {
		var b models.Build
		var v models.VerifiedProgram
		var isFrozen *bool
		if err := rows.Scan(&b.BuildID, &b.ProgramID, &b.Repository, &b.Commit, &b.LibraryName,
			&b.BaseImage, &b.MountPath, &b.CargoArgs, &b.BPFFlag, &b.Arch, &b.Signer, &b.Status, &b.CreatedAt,
			&v.VerifiedID, &v.ProgramID, &v.IsVerified, &v.OnChainHash, &v.ExecutableHash, &v.VerifiedAt, &v.BuildRef,
			&isFrozen); err != nil {
			return nil, apierr.Transport(err)
		}
		out = append(out, models.VerifiedBuildWithSigner{Build: b, Verified: &v, IsFrozen: isFrozen})
	}
	return out, wrapErr(rows.Err())
}

func buildColumns1() string {
	return "b.build_id, b.program_id, b.repository, b.commit, b.library_name, b.base_image, b.mount_path, b.cargo_args, b.bpf_flag, b.arch, b.signer, b.status, b.created_at"
}

// -- program authority -----------------------------------------------------

func (s *store) UpsertProgramAuthority(ctx context.Context, programID string, authority *string, isFrozen bool, isClosed bool) error {
	query := `
		INSERT INTO program_authority (program_id, authority, is_frozen, is_closed, last_updated)
		VALUES ($1,$2,$3,$4, now())
		ON CONFLICT (program_id) DO UPDATE SET
			authority = EXCLUDED.authority,
			is_frozen = CASE WHEN program_authority.is_frozen AND NOT EXCLUDED.is_frozen
			                 THEN program_authority.is_frozen ELSE EXCLUDED.is_frozen END,
			is_closed = EXCLUDED.is_closed,
			last_updated = now()`
	_, err := s.pool.Exec(ctx, query, programID, authority, isFrozen, isClosed)
	if err != nil {
		return apierr.Transport(err)
	}
	return nil
}

func (s *store) GetProgramAuthority(ctx context.Context, programID string) (*models.ProgramAuthority, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT program_id, authority, is_frozen, is_closed, last_updated FROM program_authority WHERE program_id = $1`,
		programID)
	var a models.ProgramAuthority
	err := row.Scan(&a.ProgramID, &a.Authority, &a.IsFrozen, &a.IsClosed, &a.LastUpdated)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &a, nil
}

func (s *store) IsFrozen(ctx context.Context, programID string) (bool, error) {
	var frozen bool
	err := s.pool.QueryRow(ctx, `SELECT is_frozen FROM program_authority WHERE program_id = $1`, programID).Scan(&frozen)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apierr.Transport(err)
	}
	return frozen, nil
}

func (s *store) IsClosed(ctx context.Context, programID string) (bool, error) {
	var closed bool
	err := s.pool.QueryRow(ctx, `SELECT is_closed FROM program_authority WHERE program_id = $1`, programID).Scan(&closed)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apierr.Transport(err)
	}
	return closed, nil
}

func (s *store) ListAllVerifiedProgramIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT program_id FROM verified_programs ORDER BY program_id`)
	if err != nil {
		return nil, apierr.Transport(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apierr.Transport(err)
		}
		ids = append(ids, id)
	}
	return ids, wrapErr(rows.Err())
}

// -- build logs --------------------------------------------------------------

func (s *store) InsertBuildLog(ctx context.Context, l *models.BuildLog) error {
	if l.LogID == "" {
		l.LogID = ulid.New()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO build_logs (log_id, program_id, artifact_name, created_at) VALUES ($1,$2,$3, now())`,
		l.LogID, l.ProgramID, l.ArtifactName)
	if err != nil {
		return apierr.Transport(err)
	}
	return nil
}

func (s *store) GetLatestBuildLog(ctx context.Context, programID string) (*models.BuildLog, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT log_id, program_id, artifact_name, created_at FROM build_logs WHERE program_id = $1 ORDER BY created_at DESC LIMIT 1`,
		programID)
	var l models.BuildLog
	err := row.Scan(&l.LogID, &l.ProgramID, &l.ArtifactName, &l.CreatedAt)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &l, nil
}

var _ Store = (*store)(nil)
