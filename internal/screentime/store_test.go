package screentime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "screentime.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_AddAndSummarize(t *testing.T) {
	store := newTestStore(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// 90s + 40s of Safari sums to 130s, which rounds up to 3 minutes once.
	mustAdd(t, store, "Safari", day.Add(9*time.Hour), day.Add(9*time.Hour+90*time.Second))
	mustAdd(t, store, "Safari", day.Add(10*time.Hour), day.Add(10*time.Hour+40*time.Second))
	mustAdd(t, store, "Mail", day.Add(11*time.Hour), day.Add(11*time.Hour+61*time.Minute))

	summary, err := store.Summarize(day)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Date != "2026-03-10" {
		t.Errorf("date = %q, want 2026-03-10", summary.Date)
	}
	if got := summary.Apps["Safari"]; got != 3 {
		t.Errorf("Safari minutes = %d, want 3", got)
	}
	if got := summary.Apps["Mail"]; got != 61 {
		t.Errorf("Mail minutes = %d, want 61", got)
	}
	if summary.Total != 64 {
		t.Errorf("total = %d, want 64", summary.Total)
	}
	if got := summary.Formatted["Mail"]; got != "1h 1m" {
		t.Errorf("Mail formatted = %q, want \"1h 1m\"", got)
	}
	if got := summary.Formatted["Total"]; got != "1h 4m" {
		t.Errorf("Total formatted = %q, want \"1h 4m\"", got)
	}
}

func TestStore_SummarizeSkipsOtherDays(t *testing.T) {
	store := newTestStore(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mustAdd(t, store, "Safari", day.Add(-2*time.Hour), day.Add(-1*time.Hour))
	mustAdd(t, store, "Safari", day.Add(25*time.Hour), day.Add(26*time.Hour))

	summary, err := store.Summarize(day)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(summary.Apps) != 0 {
		t.Errorf("apps = %v, want empty", summary.Apps)
	}
	if summary.Total != 0 {
		t.Errorf("total = %d, want 0", summary.Total)
	}
}

func TestStore_RejectsBackwardsSession(t *testing.T) {
	store := newTestStore(t)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if err := store.AddSession(Session{App: "Safari", Start: at, Stop: at}); err != nil {
		t.Fatalf("AddSession: %v", err)
	}
	if err := store.AddSession(Session{App: "Safari", Start: at, Stop: at.Add(-time.Minute)}); err != nil {
		t.Fatalf("AddSession: %v", err)
	}

	sessions, err := store.SessionsOn(at)
	if err != nil {
		t.Fatalf("SessionsOn: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("stored %d sessions, want 0", len(sessions))
	}
}

func TestStore_StartStopLifecycle(t *testing.T) {
	store := newTestStore(t)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// Stop without a matching start leaves nothing behind.
	if err := store.StopSessionAt("Mail", at); err != nil {
		t.Fatalf("StopSessionAt: %v", err)
	}

	if err := store.StartSessionAt("Safari", at); err != nil {
		t.Fatalf("StartSessionAt: %v", err)
	}
	if err := store.StopSessionAt("Safari", at.Add(5*time.Minute)); err != nil {
		t.Fatalf("StopSessionAt: %v", err)
	}

	sessions, err := store.SessionsOn(at)
	if err != nil {
		t.Fatalf("SessionsOn: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("stored %d sessions, want 1", len(sessions))
	}
	if sessions[0].App != "Safari" {
		t.Errorf("app = %q, want Safari", sessions[0].App)
	}
	if got := sessions[0].Stop.Sub(sessions[0].Start); got != 5*time.Minute {
		t.Errorf("duration = %v, want 5m", got)
	}
}

func TestUploader_UploadDayClearsAfterSuccess(t *testing.T) {
	store := newTestStore(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	mustAdd(t, store, "Safari", day.Add(9*time.Hour), day.Add(9*time.Hour+10*time.Minute))

	var received Summary
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	summary, err := NewUploader(srv.URL).UploadDay(context.Background(), store, day)
	if err != nil {
		t.Fatalf("UploadDay: %v", err)
	}
	if summary.Total != 10 {
		t.Errorf("total = %d, want 10", summary.Total)
	}
	if received.Date != "2026-03-10" {
		t.Errorf("endpoint saw date %q, want 2026-03-10", received.Date)
	}

	sessions, err := store.SessionsOn(day)
	if err != nil {
		t.Fatalf("SessionsOn: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("%d sessions remain after upload, want 0", len(sessions))
	}
}

func TestUploader_FailedUploadKeepsSessions(t *testing.T) {
	store := newTestStore(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	mustAdd(t, store, "Safari", day.Add(9*time.Hour), day.Add(9*time.Hour+10*time.Minute))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewUploader(srv.URL).UploadDay(context.Background(), store, day); err == nil {
		t.Fatal("expected error from rejected upload")
	}

	sessions, err := store.SessionsOn(day)
	if err != nil {
		t.Fatalf("SessionsOn: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("%d sessions remain after failed upload, want 1", len(sessions))
	}
}

func TestFormatMinutes(t *testing.T) {
	cases := []struct {
		min  int
		want string
	}{
		{0, "0m"},
		{42, "42m"},
		{60, "1h 0m"},
		{125, "2h 5m"},
	}
	for _, tc := range cases {
		if got := FormatMinutes(tc.min); got != tc.want {
			t.Errorf("FormatMinutes(%d) = %q, want %q", tc.min, got, tc.want)
		}
	}
}

func mustAdd(t *testing.T, store *Store, app string, start, stop time.Time) {
	t.Helper()
	if err := store.AddSession(Session{App: app, Start: start, Stop: stop}); err != nil {
		t.Fatalf("AddSession: %v", err)
	}
}
