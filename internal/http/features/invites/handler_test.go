package invites

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/tendant/simple-admission/pkg/admission"
	"github.com/tendant/simple-admission/pkg/domain"
	"github.com/tendant/simple-admission/pkg/repository"
	"github.com/tendant/simple-admission/pkg/validate"
)

type fixture struct {
	handler    *Handler
	clock      *clockwork.FakeClock
	intentions *admission.IntentionService
	ledger     *admission.Ledger
	gate       *admission.Gate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClockAt(time.Now().UTC().Truncate(time.Second))

	db, err := repository.Open(ctx, repository.Config{
		Driver: repository.DriverSQLite,
		DSN:    repository.SQLiteDSN(filepath.Join(t.TempDir(), "invites.db")),
	}, logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	intentionsRepo := repository.NewIntentionsRepository(db)
	ledger := admission.NewLedger(repository.NewInvitesRepository(db), domain.InviteTTL, clock)
	gate := admission.NewGate(ledger, intentionsRepo, repository.NewAdmissionsRepository(db), clock, logger)

	return &fixture{
		handler:    NewHandler(logger, gate),
		clock:      clock,
		intentions: admission.NewIntentionService(intentionsRepo, validate.EmailPolicy{}, clock, logger),
		ledger:     ledger,
		gate:       gate,
	}
}

func (f *fixture) invite(t *testing.T) *domain.Invite {
	t.Helper()
	ctx := context.Background()
	intention, err := f.intentions.Submit(ctx, admission.Submission{
		Name:    "Grace Hopper",
		Email:   "grace@example.com",
		Company: "Navy",
		Reason:  "Compilers for everyone",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.intentions.SetStatus(ctx, intention.ID, domain.IntentionApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	inv, err := f.ledger.Create(ctx, intention.ID)
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	return inv
}

func (f *fixture) check(token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/invites/"+token, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("token", token)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	f.handler.Check(rec, req)
	return rec
}

func TestCheck_Valid(t *testing.T) {
	f := newFixture(t)
	inv := f.invite(t)

	rec := f.check(inv.Token)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp CheckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Valid {
		t.Error("Valid = false, want true")
	}
	if resp.Applicant.Email != "grace@example.com" {
		t.Errorf("Applicant.Email = %q, want grace@example.com", resp.Applicant.Email)
	}
	if !resp.ExpiresAt.Equal(inv.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", resp.ExpiresAt, inv.ExpiresAt)
	}
}

func TestCheck_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T, f *fixture) string
		wantStatus int
		wantReason string
	}{
		{
			name:       "unknown token",
			setup:      func(t *testing.T, f *fixture) string { return "no-such-token" },
			wantStatus: http.StatusNotFound,
			wantReason: "not_found",
		},
		{
			name: "already used",
			setup: func(t *testing.T, f *fixture) string {
				inv := f.invite(t)
				if _, err := f.gate.Redeem(context.Background(), admission.Registration{Token: inv.Token}); err != nil {
					t.Fatalf("redeem: %v", err)
				}
				return inv.Token
			},
			wantStatus: http.StatusConflict,
			wantReason: "used",
		},
		{
			name: "expired",
			setup: func(t *testing.T, f *fixture) string {
				inv := f.invite(t)
				f.clock.Advance(domain.InviteTTL + time.Second)
				return inv.Token
			},
			wantStatus: http.StatusGone,
			wantReason: "expired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.check(tt.setup(t, f))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp InvalidResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Valid {
				t.Error("Valid = true, want false")
			}
			if resp.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", resp.Reason, tt.wantReason)
			}
		})
	}
}
