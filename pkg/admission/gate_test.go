package admission

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tendant/simple-admission/pkg/domain"
)

func approvedInvite(t *testing.T, h *harness, sub Submission) (*domain.Intention, *domain.Invite) {
	t.Helper()
	ctx := context.Background()
	i, err := h.intentions.Submit(ctx, sub)
	if err != nil {
		t.Fatal(err)
	}
	change, err := h.workflow.SetIntentionStatus(ctx, i.ID, domain.IntentionApproved)
	if err != nil || change.Invite == nil {
		t.Fatalf("approve: %v %v", err, change)
	}
	return change.Intention, change.Invite
}

func TestGate_RedeemFailures(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, expiring := approvedInvite(t, h, joao())
	h.clock.Advance(domain.InviteTTL)

	other := joao()
	other.Email = "maria@empresa.com"
	orphanIntention, orphan := approvedInvite(t, h, other)
	delete(h.store.intentions, orphanIntention.ID)

	tests := []struct {
		name    string
		reg     Registration
		wantErr error
	}{
		{name: "unknown token", reg: Registration{Token: "does-not-exist"}, wantErr: domain.ErrInviteNotFound},
		{name: "expired", reg: Registration{Token: expiring.Token}, wantErr: domain.ErrInviteExpired},
		{name: "orphaned", reg: Registration{Token: orphan.Token}, wantErr: domain.ErrInviteOrphaned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.gate.Redeem(ctx, tt.reg); !errors.Is(err, tt.wantErr) {
				t.Errorf("Redeem() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := h.gate.Check(ctx, orphan.Token); !errors.Is(err, domain.ErrInviteOrphaned) {
		t.Errorf("Check(orphan) error = %v, want ErrInviteOrphaned", err)
	}
	if h.store.invites[orphan.Token].Used {
		t.Error("orphaned invite was consumed")
	}
	if len(h.store.members) != 0 {
		t.Errorf("members = %d, want 0", len(h.store.members))
	}
}

func TestGate_RedeemValidatesProfile(t *testing.T) {
	h := newHarness()
	_, invite := approvedInvite(t, h, joao())

	badSite := "not a url"
	longBio := strings.Repeat("b", 2001)
	tests := []struct {
		name      string
		reg       Registration
		wantField string
	}{
		{name: "missing token", reg: Registration{}, wantField: "token"},
		{name: "bad website", reg: Registration{Token: invite.Token, Website: &badSite}, wantField: "website"},
		{name: "bio too long", reg: Registration{Token: invite.Token, Bio: &longBio}, wantField: "bio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.gate.Redeem(context.Background(), tt.reg)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Redeem() error = %v, want ValidationError", err)
			}
			if _, ok := verr.Fields[tt.wantField]; !ok {
				t.Errorf("Fields = %v, missing %s", verr.Fields, tt.wantField)
			}
		})
	}

	if h.store.invites[invite.Token].Used {
		t.Error("invite consumed by invalid registration")
	}
}

func TestGate_RedeemBlankOptionalFields(t *testing.T) {
	h := newHarness()
	_, invite := approvedInvite(t, h, joao())
	blank := "   "

	member, err := h.gate.Redeem(context.Background(), Registration{Token: invite.Token, Website: &blank})
	if err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}
	if member.Website != nil {
		t.Errorf("Website = %q, want nil", *member.Website)
	}
}

func TestGate_RedeemDuplicateMemberKeepsInvite(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, first := approvedInvite(t, h, joao())
	_, second := approvedInvite(t, h, joao())

	if _, err := h.gate.Redeem(ctx, Registration{Token: first.Token}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.gate.Redeem(ctx, Registration{Token: second.Token}); !errors.Is(err, domain.ErrMemberAlreadyExists) {
		t.Fatalf("Redeem() error = %v, want ErrMemberAlreadyExists", err)
	}
	if h.store.invites[second.Token].Used {
		t.Error("invite consumed although member creation failed")
	}
}

func TestGate_ConcurrentRedeem(t *testing.T) {
	h := newHarness()
	_, invite := approvedInvite(t, h, joao())

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.gate.Redeem(context.Background(), Registration{Token: invite.Token})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrInviteAlreadyUsed) {
				t.Errorf("Redeem() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}
	if len(h.store.members) != 1 {
		t.Errorf("members = %d, want 1", len(h.store.members))
	}
}

func TestGate_CheckExpiredAndUsed(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, invite := approvedInvite(t, h, joao())

	h.clock.Advance(domain.InviteTTL - time.Second)
	if _, err := h.gate.Check(ctx, invite.Token); err != nil {
		t.Errorf("Check() one second before expiry error = %v", err)
	}
	h.clock.Advance(time.Second)
	if _, err := h.gate.Check(ctx, invite.Token); !errors.Is(err, domain.ErrInviteExpired) {
		t.Errorf("Check() at expiry error = %v, want ErrInviteExpired", err)
	}
}

func TestGate_OrphanLogMasksToken(t *testing.T) {
	h := newHarness()
	var buf bytes.Buffer
	h.gate = NewGate(h.ledger, h.store, h.store, h.clock, slog.New(slog.NewJSONHandler(&buf, nil)))

	intention, invite := approvedInvite(t, h, joao())
	delete(h.store.intentions, intention.ID)

	if _, err := h.gate.Redeem(context.Background(), Registration{Token: invite.Token}); !errors.Is(err, domain.ErrInviteOrphaned) {
		t.Fatalf("Redeem() error = %v, want ErrInviteOrphaned", err)
	}

	out := buf.String()
	if strings.Contains(out, invite.Token) {
		t.Errorf("log contains the raw invite token: %s", out)
	}
	if !strings.Contains(out, `"token":"`+invite.Token[:6]+`***"`) {
		t.Errorf("log = %s, want masked token prefix", out)
	}
}
