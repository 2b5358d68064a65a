package update

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/0xRaghu/gemini-cli-updater/internal/state"
	"github.com/0xRaghu/gemini-cli-updater/internal/tool"
)

// fakeSource implements VersionSource and counts calls.
type fakeSource struct {
	version string
	err     error
	calls   int
}

func (f *fakeSource) LatestVersion(ctx context.Context, pkg string) (string, error) {
	f.calls++
	return f.version, f.err
}

// fakeInstaller implements Installer and records every install.
type fakeInstaller struct {
	installed    string
	ok           bool
	installErr   error
	installs     []string
	versionCalls int
	// afterInstall overrides the reported version once an install ran
	afterInstall   string
	afterInstallOK bool
	didInstall     bool
}

func (f *fakeInstaller) InstalledVersion(ctx context.Context, t tool.Tool) (string, bool) {
	f.versionCalls++
	if f.didInstall {
		return f.afterInstall, f.afterInstallOK
	}
	return f.installed, f.ok
}

func (f *fakeInstaller) Install(ctx context.Context, pkg string) error {
	f.installs = append(f.installs, pkg+"@latest")
	if f.installErr != nil {
		return f.installErr
	}
	f.didInstall = true
	return nil
}

func (f *fakeInstaller) InstallVersion(ctx context.Context, pkg, version string) error {
	f.installs = append(f.installs, pkg+"@"+version)
	if f.installErr != nil {
		return f.installErr
	}
	f.didInstall = true
	return nil
}

var testTool = tool.Tool{
	Name:        "gemini",
	Package:     "@google/gemini-cli",
	Command:     "gemini",
	VersionArgs: []string{"--version"},
}

// newTestUpdater wires an updater over a temp store with a fixed clock.
func newTestUpdater(t *testing.T, source *fakeSource, installer *fakeInstaller, now time.Time) (*Updater, *state.Store) {
	t.Helper()

	store, err := state.NewStore(t.TempDir(), state.WithNowFunc(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	u := NewUpdater(testTool, store, source, installer, WithNowFunc(func() time.Time { return now }))
	return u, store
}

func TestCheckWithinCooldownMakesNoCalls(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{version: "2.0.0"}
	installer := &fakeInstaller{installed: "1.0.0", ok: true}

	u, store := newTestUpdater(t, source, installer, now)

	// A check 30 minutes ago is inside the default 1h cooldown
	lastCheck := now.Add(-30 * time.Minute)
	if err := store.SetLastCheck(lastCheck); err != nil {
		t.Fatal(err)
	}

	res, err := u.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if !res.Skipped || res.SkipReason != SkipCooldown {
		t.Errorf("expected cooldown skip, got %+v", res)
	}
	if res.UpdateNeeded {
		t.Error("skipped check must report no update")
	}
	if source.calls != 0 {
		t.Errorf("network consulted during cooldown: %d calls", source.calls)
	}
	if installer.versionCalls != 0 {
		t.Errorf("subprocess consulted during cooldown: %d calls", installer.versionCalls)
	}

	// The skipped check must not move the last-check timestamp
	if last, _ := store.LastCheck(); !last.Equal(lastCheck) {
		t.Errorf("lastCheck moved by a skipped check: %v", last)
	}
}

func TestCheckStampsLastCheckOnAnyOutcome(t *testing.T) {
	tests := []struct {
		name      string
		installed string
		ok        bool
		latest    string
		needed    bool
	}{
		{"update needed", "1.0.0", true, "2.0.0", true},
		{"up to date", "2.0.0", true, "2.0.0", false},
		{"ahead of registry", "3.0.0", true, "2.0.0", false},
		{"not installed", "", false, "2.0.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
			source := &fakeSource{version: tt.latest}
			installer := &fakeInstaller{installed: tt.installed, ok: tt.ok}

			u, store := newTestUpdater(t, source, installer, now)

			res, err := u.Check(context.Background())
			if err != nil {
				t.Fatalf("Check failed: %v", err)
			}

			if res.UpdateNeeded != tt.needed {
				t.Errorf("UpdateNeeded: got %v, want %v", res.UpdateNeeded, tt.needed)
			}

			last, ok := store.LastCheck()
			if !ok {
				t.Fatal("lastCheck not stamped")
			}
			if !last.Equal(now) {
				t.Errorf("lastCheck: got %v, want check start %v", last, now)
			}
		})
	}
}

func TestFailedCheckLeavesLastCheckUntouched(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{err: errors.New("connection refused")}
	installer := &fakeInstaller{installed: "1.0.0", ok: true}

	u, store := newTestUpdater(t, source, installer, now)

	// Stale enough that the cooldown gate lets the check through
	stale := now.Add(-2 * time.Hour)
	if err := store.SetLastCheck(stale); err != nil {
		t.Fatal(err)
	}

	if _, err := u.Check(context.Background()); err == nil {
		t.Fatal("expected error from failed resolver")
	}

	// A failed check must not consume the cooldown
	if last, _ := store.LastCheck(); !last.Equal(stale) {
		t.Errorf("failed check moved lastCheck: %v", last)
	}
	if len(store.History()) != 0 {
		t.Error("failed check must not record history")
	}
}

func TestCheckAbsentInstallationNeedsUpdate(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{version: "2.0.0"}
	installer := &fakeInstaller{ok: false}

	u, _ := newTestUpdater(t, source, installer, now)

	res, err := u.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	if !res.UpdateNeeded {
		t.Error("missing installation must decide update needed")
	}
	if source.calls != 1 {
		t.Errorf("expected exactly one registry call, got %d", source.calls)
	}
}

func TestCheckAbsentInstallationStillGatedByCooldown(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{version: "2.0.0"}
	installer := &fakeInstaller{ok: false}

	u, store := newTestUpdater(t, source, installer, now)

	if err := store.SetLastCheck(now.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}

	res, err := u.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	// Absence bypasses the version comparison, not the cooldown gate
	if !res.Skipped {
		t.Error("cooldown gate must run before the absence shortcut")
	}
	if source.calls != 0 {
		t.Error("cooldown-gated check must not touch the network")
	}
}

func TestCheckRecordsHistoryAtDecisionTime(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{version: "2.0.0"}
	// Install will fail, but the history entry is written before that
	installer := &fakeInstaller{installed: "1.0.0", ok: true, installErr: errors.New("npm exploded")}

	u, store := newTestUpdater(t, source, installer, now)

	res, err := u.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !res.UpdateNeeded {
		t.Fatal("expected update needed")
	}

	history := store.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	if history[0].From != "1.0.0" || history[0].To != "2.0.0" {
		t.Errorf("history transition: got %s→%s", history[0].From, history[0].To)
	}

	// Even though the subsequent install fails, the entry remains
	if err := u.Apply(context.Background(), res); err == nil {
		t.Fatal("expected install failure")
	}
	if len(store.History()) != 1 {
		t.Error("install failure must not remove the intent entry")
	}
}

func TestApplySetsLastUpdateTimeDespiteVerificationFailure(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{version: "2.0.0"}
	// Install succeeds but the tool still reports no version afterwards
	installer := &fakeInstaller{installed: "1.0.0", ok: true, afterInstall: "", afterInstallOK: false}

	u, store := newTestUpdater(t, source, installer, now)

	res, err := u.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	err = u.Apply(context.Background(), res)
	if !errors.Is(err, ErrUpdateVerification) {
		t.Fatalf("expected ErrUpdateVerification, got %v", err)
	}

	// Process success is recorded regardless of verification outcome
	if _, ok := store.LastUpdateTime(); !ok {
		t.Error("lastUpdateTime not recorded on install process success")
	}
}

func TestApplyInstallsLatest(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{version: "2.0.0"}
	installer := &fakeInstaller{installed: "1.0.0", ok: true, afterInstall: "2.0.0", afterInstallOK: true}

	u, _ := newTestUpdater(t, source, installer, now)

	res, err := u.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := u.Apply(context.Background(), res); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if len(installer.installs) != 1 || installer.installs[0] != "@google/gemini-cli@latest" {
		t.Errorf("unexpected installs: %v", installer.installs)
	}
}

func TestForceBypassesCooldown(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{version: "1.0.0"}
	installer := &fakeInstaller{installed: "1.0.0", ok: true}

	u, store := newTestUpdater(t, source, installer, now)

	// A check one second ago would normally gate everything
	if err := store.SetLastCheck(now.Add(-time.Second)); err != nil {
		t.Fatal(err)
	}

	res, err := u.Force(context.Background())
	if err != nil {
		t.Fatalf("Force failed: %v", err)
	}

	if res.Skipped {
		t.Error("Force must never be cooldown-gated")
	}
	if source.calls != 1 {
		t.Errorf("Force must consult the registry: %d calls", source.calls)
	}
}

func TestRollback(t *testing.T) {
	tests := []struct {
		name        string
		transitions [][2]string
		wantTarget  string
		wantErr     error
	}{
		{"empty history", nil, "", ErrNoRollbackTarget},
		{"single entry", [][2]string{{"1.0.0", "1.1.0"}}, "", ErrNoRollbackTarget},
		{"two entries", [][2]string{{"1.0.0", "1.1.0"}, {"1.1.0", "1.2.0"}}, "1.0.0", nil},
		{"three entries", [][2]string{{"1.0.0", "1.1.0"}, {"1.1.0", "1.2.0"}, {"1.2.0", "1.3.0"}}, "1.1.0", nil},
		{"fresh install then update", [][2]string{{"", "1.0.0"}, {"1.0.0", "1.1.0"}}, "", ErrNoRollbackTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
			source := &fakeSource{version: "9.9.9"}
			installer := &fakeInstaller{installed: "1.2.0", ok: true}

			u, store := newTestUpdater(t, source, installer, now)

			for _, tr := range tt.transitions {
				if err := store.AppendVersionHistory(tr[0], tr[1]); err != nil {
					t.Fatal(err)
				}
			}

			target, err := u.Rollback(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if len(installer.installs) != 0 {
					t.Error("failed rollback must not install anything")
				}
				return
			}

			if err != nil {
				t.Fatalf("Rollback failed: %v", err)
			}
			if target != tt.wantTarget {
				t.Errorf("target: got %q, want %q", target, tt.wantTarget)
			}

			want := "@google/gemini-cli@" + tt.wantTarget
			if len(installer.installs) != 1 || installer.installs[0] != want {
				t.Errorf("installs: got %v, want [%s]", installer.installs, want)
			}
		})
	}
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		candidate string
		current   string
		want      bool
	}{
		{"1.10.0", "1.2.3", true},
		{"1.2.3", "1.10.0", false},
		{"2.0.0", "2.0.0-beta", true},
		{"2.0.0-beta", "2.0.0", false},
		{"2.0.0", "2.0.0", false},
		{"0.0.1", "0.0.1", false},
		{"1.0.0", "0.99.99", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_vs_%s", tt.candidate, tt.current), func(t *testing.T) {
			got, err := IsNewer(tt.candidate, tt.current)
			if err != nil {
				t.Fatalf("IsNewer failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsNewer(%q, %q): got %v, want %v", tt.candidate, tt.current, got, tt.want)
			}
		})
	}
}

func TestIsNewerUnparsableCurrentIsStale(t *testing.T) {
	got, err := IsNewer("1.0.0", "garbage")
	if err != nil {
		t.Fatalf("IsNewer failed: %v", err)
	}
	if !got {
		t.Error("unparsable local version must be treated as stale")
	}
}

// TestMonotonicLastCheckProperty verifies that sequential successful checks
// never move the last-check timestamp backwards.
func TestMonotonicLastCheckProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("lastCheck is non-decreasing across checks", prop.ForAll(
		func(stepsMinutes []int) bool {
			now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			source := &fakeSource{version: "1.0.0"}
			installer := &fakeInstaller{installed: "1.0.0", ok: true}

			store, err := state.NewStore(t.TempDir())
			if err != nil {
				return false
			}

			var prev time.Time
			for _, step := range stepsMinutes {
				if step < 0 {
					step = -step
				}
				now = now.Add(time.Duration(step%600) * time.Minute)

				clock := now
				u := NewUpdater(testTool, store, source, installer, WithNowFunc(func() time.Time { return clock }))
				if _, err := u.Check(context.Background()); err != nil {
					return false
				}

				last, ok := store.LastCheck()
				if !ok {
					return false
				}
				if last.Before(prev) {
					t.Logf("lastCheck went backwards: %v < %v", last, prev)
					return false
				}
				prev = last
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 599)),
	))

	properties.TestingRun(t)
}

// TestVersionOrderingProperty cross-checks IsNewer against a by-component
// comparison for plain triples.
func TestVersionOrderingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	triple := gopter.CombineGens(gen.IntRange(0, 99), gen.IntRange(0, 99), gen.IntRange(0, 99))

	properties.Property("semver ordering matches component ordering", prop.ForAll(
		func(a, b []interface{}) bool {
			va := fmt.Sprintf("%d.%d.%d", a[0], a[1], a[2])
			vb := fmt.Sprintf("%d.%d.%d", b[0], b[1], b[2])

			got, err := IsNewer(va, vb)
			if err != nil {
				return false
			}

			want := false
			for i := 0; i < 3; i++ {
				ai, bi := a[i].(int), b[i].(int)
				if ai != bi {
					want = ai > bi
					break
				}
			}
			return got == want
		},
		triple,
		triple,
	))

	properties.TestingRun(t)
}
