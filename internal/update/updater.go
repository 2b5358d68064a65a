// Package update implements the update decision core: cooldown gating,
// version comparison, history bookkeeping, and install orchestration for the
// wrapped tool.
//
// A check walks Idle → Checking → {UpToDate | UpdateNeeded}; applying an
// update continues Installing → {Installed | InstallFailed}. The cooldown
// gate runs first and is the sole mechanism bounding network and subprocess
// traffic from frequent invocations.
package update

import (
	"context"
	"errors"
	"fmt"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/0xRaghu/gemini-cli-updater/internal/common/logger"
	"github.com/0xRaghu/gemini-cli-updater/internal/state"
	"github.com/0xRaghu/gemini-cli-updater/internal/tool"
)

// Error variables for updater errors
var (
	// ErrUpdateVerification is returned when an install ran but the tool's
	// version is still undetectable afterwards
	ErrUpdateVerification = errors.New("update could not be verified")
	// ErrNoRollbackTarget is returned when the history holds no version to roll back to
	ErrNoRollbackTarget = errors.New("no rollback target in version history")
)

// SkipReason explains why a check decided not to consult the network.
type SkipReason string

const (
	// SkipCooldown means the cooldown window since the last check is still open
	SkipCooldown SkipReason = "cooldown"
	// SkipDisabled means update checks were disabled by flag or environment
	SkipDisabled SkipReason = "disabled"
)

// CheckResult represents the outcome of a single update check.
type CheckResult struct {
	// Tool is the short name of the checked tool
	Tool string
	// CurrentVersion is the locally installed version, empty when unknown
	CurrentVersion string
	// LatestVersion is the version published upstream
	LatestVersion string
	// UpdateNeeded is true when the local installation is absent or older
	UpdateNeeded bool
	// Skipped is true when the check returned without consulting upstream
	Skipped bool
	// SkipReason explains a skipped check
	SkipReason SkipReason
}

// VersionSource resolves the latest published version of a package.
type VersionSource interface {
	LatestVersion(ctx context.Context, pkg string) (string, error)
}

// Installer resolves the locally installed version and performs installs.
type Installer interface {
	InstalledVersion(ctx context.Context, t tool.Tool) (string, bool)
	Install(ctx context.Context, pkg string) error
	InstallVersion(ctx context.Context, pkg, version string) error
}

// Updater coordinates the store, the registry, and the installer to decide
// whether and how to update the wrapped tool.
type Updater struct {
	tool      tool.Tool
	store     *state.Store
	source    VersionSource
	installer Installer
	// nowFunc allows injecting time for testing
	nowFunc func() time.Time
}

// Option is a functional option for configuring Updater
type Option func(*Updater)

// WithNowFunc sets a custom time function for testing
func WithNowFunc(fn func() time.Time) Option {
	return func(u *Updater) {
		u.nowFunc = fn
	}
}

// NewUpdater creates an updater for the given tool.
func NewUpdater(t tool.Tool, store *state.Store, source VersionSource, installer Installer, opts ...Option) *Updater {
	u := &Updater{
		tool:      t,
		store:     store,
		source:    source,
		installer: installer,
		nowFunc:   time.Now,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Check decides whether an update is due.
//
// Inside the cooldown window it returns immediately without any network or
// subprocess call. Otherwise it resolves the installed and latest versions
// concurrently, stamps the last-check time, and records a history entry when
// an update is needed. A resolver failure leaves the last-check time
// untouched so the next invocation retries promptly.
func (u *Updater) Check(ctx context.Context) (*CheckResult, error) {
	result := &CheckResult{Tool: u.tool.Name}
	checkStart := u.nowFunc()

	// Cooldown gate runs before anything else
	if last, ok := u.store.LastCheck(); ok {
		cooldown := u.store.Settings().Cooldown()
		if elapsed := checkStart.Sub(last); elapsed < cooldown {
			logger.Debug("update check skipped: %s of %s cooldown remaining",
				cooldown-elapsed, cooldown)
			result.Skipped = true
			result.SkipReason = SkipCooldown
			return result, nil
		}
	}

	// The two lookups are independent; resolve them concurrently
	type latestReply struct {
		version string
		err     error
	}
	latestCh := make(chan latestReply, 1)
	go func() {
		v, err := u.source.LatestVersion(ctx, u.tool.Package)
		latestCh <- latestReply{version: v, err: err}
	}()

	current, installed := u.installer.InstalledVersion(ctx, u.tool)
	latest := <-latestCh

	if latest.err != nil {
		// A failed check must not consume the cooldown
		return nil, fmt.Errorf("failed to resolve latest version of %s: %w", u.tool.Package, latest.err)
	}

	result.CurrentVersion = current
	result.LatestVersion = latest.version

	if !installed {
		// Missing installation always needs an install
		result.UpdateNeeded = true
	} else {
		needed, err := IsNewer(latest.version, current)
		if err != nil {
			return nil, fmt.Errorf("failed to compare versions for %s: %w", u.tool.Package, err)
		}
		result.UpdateNeeded = needed
	}

	// Stamp the check time regardless of outcome; this is what arms the cooldown
	if err := u.store.SetLastCheck(checkStart); err != nil {
		return nil, err
	}

	if result.UpdateNeeded {
		// History records intent at decision time, before the install runs
		if err := u.store.AppendVersionHistory(current, latest.version); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// Apply installs the latest version decided by res and verifies the install
// by re-querying the tool's version. The last-update time is recorded on
// install success even when verification cannot confirm the new version.
func (u *Updater) Apply(ctx context.Context, res *CheckResult) error {
	logger.Info("updating %s: %s → %s", u.tool.Name, orUnknown(res.CurrentVersion), res.LatestVersion)

	if err := u.installer.Install(ctx, u.tool.Package); err != nil {
		return err
	}

	if err := u.store.SetLastUpdateTime(u.nowFunc()); err != nil {
		return err
	}

	if _, ok := u.installer.InstalledVersion(ctx, u.tool); !ok {
		return fmt.Errorf("%w: %s reports no version after install", ErrUpdateVerification, u.tool.Command)
	}

	return nil
}

// Force clears the last-check timestamp so the cooldown gate cannot fire,
// then runs a normal check and applies the update when one is needed.
func (u *Updater) Force(ctx context.Context) (*CheckResult, error) {
	if err := u.store.ClearLastCheck(); err != nil {
		return nil, err
	}

	res, err := u.Check(ctx)
	if err != nil {
		return nil, err
	}

	if res.UpdateNeeded {
		if err := u.Apply(ctx, res); err != nil {
			return res, err
		}
	}

	return res, nil
}

// Rollback reinstalls the `from` version of the second-to-last history
// entry, pinned exactly.
func (u *Updater) Rollback(ctx context.Context) (string, error) {
	history := u.store.History()
	if len(history) < 2 {
		return "", fmt.Errorf("%w: need at least 2 history entries, have %d", ErrNoRollbackTarget, len(history))
	}

	target := history[len(history)-2].From
	if target == "" {
		// The transition before last started from no installation
		return "", fmt.Errorf("%w: previous transition has no source version", ErrNoRollbackTarget)
	}

	current, _ := u.installer.InstalledVersion(ctx, u.tool)
	logger.Info("rolling back %s: %s → %s", u.tool.Name, orUnknown(current), target)

	if err := u.installer.InstallVersion(ctx, u.tool.Package, target); err != nil {
		return "", err
	}

	if err := u.store.SetLastUpdateTime(u.nowFunc()); err != nil {
		return "", err
	}

	// The rollback is itself a transition worth remembering
	if err := u.store.AppendVersionHistory(current, target); err != nil {
		return "", err
	}

	return target, nil
}

// IsNewer reports whether candidate is strictly newer than current under
// semantic version ordering. Prereleases sort before their release
// ("2.0.0-beta" < "2.0.0") and components compare numerically
// ("1.2.3" < "1.10.0").
func IsNewer(candidate, current string) (bool, error) {
	cv, err := goversion.NewVersion(candidate)
	if err != nil {
		return false, fmt.Errorf("invalid candidate version %q: %w", candidate, err)
	}

	cur, err := goversion.NewVersion(current)
	if err != nil {
		// An unparsable local version cannot be trusted; treat it as stale
		return true, nil
	}

	return cv.GreaterThan(cur), nil
}

func orUnknown(v string) string {
	if v == "" {
		return "(not installed)"
	}
	return v
}
