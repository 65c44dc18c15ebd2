// Package webhook implements the Upgrade Hook: authenticated ingestion of
// on-chain upgrade/PDA-update notifications.
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/chain"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/models"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/response"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/resolver"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/store"
)

// upgradeInstructionSentinel is the instruction-data prefix the upgradeable
// loader's Upgrade instruction is identified by.
const upgradeInstructionSentinel = "5Sxr3"

// Handler serves the authenticated upgrade-notification webhooks.
type Handler struct {
	store           store.Store
	chain           *chain.Adapter
	resolver        *resolver.Resolver
	rpcURL          string
	verifierProgram string
}

// New constructs a webhook Handler.
func New(st store.Store, ch *chain.Adapter, rv *resolver.Resolver, rpcURL, verifierProgram string) *Handler {
	return &Handler{store: st, chain: ch, resolver: rv, rpcURL: rpcURL, verifierProgram: verifierProgram}
}

// Unverify handles POST /unverify: for each instruction matching the upgrade
// sentinel, re-checks the program's on-chain hash and unverifies it if
// it has drifted.
func (h *Handler) Unverify(w http.ResponseWriter, r *http.Request) {
	var txs []models.WebhookTransaction
	if err := json.NewDecoder(r.Body).Decode(&txs); err != nil {
		response.Error(w, apierr.NewValidationError("malformed webhook payload"))
		return
	}

	ctx := r.Context()
	for _, tx := range txs {
		for _, instr := range tx.Instructions {
			if !strings.HasPrefix(instr.Data, upgradeInstructionSentinel) {
				continue
			}
			if len(instr.Accounts) < 2 {
				continue
			}
			programID := instr.Accounts[1]
			h.reconcileHash(ctx, programID)
		}
	}

	response.OK(w, map[string]string{"status": "ok"})
}

// PdaUpdates handles POST /pda-updates: for each instruction addressed to
// the configured verifier program, re-checks the PDA's build params and
// triggers a fresh verification if the stored hash has drifted.
func (h *Handler) PdaUpdates(w http.ResponseWriter, r *http.Request) {
	var txs []models.WebhookTransaction
	if err := json.NewDecoder(r.Body).Decode(&txs); err != nil {
		response.Error(w, apierr.NewValidationError("malformed webhook payload"))
		return
	}

	ctx := r.Context()
	for _, tx := range txs {
		for _, instr := range tx.Instructions {
			if instr.ProgramID != h.verifierProgram {
				continue
			}
			if len(instr.Accounts) < 3 {
				continue
			}
			programID := instr.Accounts[2]
			pda := instr.Accounts[0]
			h.reconcilePDA(ctx, programID, pda)
		}
	}

	response.OK(w, map[string]string{"status": "ok"})
}

func (h *Handler) reconcileHash(ctx context.Context, programID string) {
	verified, err := h.store.GetVerified(ctx, programID, nil)
	if err != nil && !apierr.IsNotFound(err) {
		slog.Warn("unverify: lookup failed", "program_id", programID, "error", err)
		return
	}
	newHash, err := h.chain.GetOnChainHash(ctx, programID, h.rpcURL)
	if err != nil {
		slog.Warn("unverify: get_on_chain_hash failed", "program_id", programID, "error", err)
		return
	}
	if verified == nil || verified.OnChainHash == newHash {
		return
	}
	if err := h.store.UpdateOnChainHash(ctx, programID, newHash, false); err != nil {
		slog.Warn("unverify: update_onchain_hash failed", "program_id", programID, "error", err)
	}
}

func (h *Handler) reconcilePDA(ctx context.Context, programID, pda string) {
	verified, err := h.store.GetVerified(ctx, programID, nil)
	if err != nil && !apierr.IsNotFound(err) {
		slog.Warn("pda_updates: lookup failed", "program_id", programID, "error", err)
		return
	}
	newHash, err := h.chain.GetOnChainHash(ctx, programID, h.rpcURL)
	if err != nil {
		slog.Warn("pda_updates: get_on_chain_hash failed", "program_id", programID, "error", err)
		return
	}
	if verified == nil || verified.ExecutableHash == newHash {
		return
	}
	if err := h.store.MarkUnverified(ctx, programID); err != nil {
		slog.Warn("pda_updates: mark_unverified failed", "program_id", programID, "error", err)
	}

	parsed, err := h.chain.FetchPDAAccount(ctx, pda)
	if err != nil {
		slog.Warn("pda_updates: fetch pda account failed", "program_id", programID, "pda", pda, "error", err)
		return
	}

	build := models.Build{
		ProgramID:  programID,
		Repository: parsed.GitURL,
		Commit:     strPtrIfNonEmpty(parsed.Commit),
		CargoArgs:  parsed.Args,
		Signer:     parsed.Signer,
	}
	go h.resolver.ReverifyProgram(context.Background(), build)
}

func strPtrIfNonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
