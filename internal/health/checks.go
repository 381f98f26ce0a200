package health

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lyndonlyu/secretshield/internal/audit"
	"github.com/lyndonlyu/secretshield/internal/clipboard"
	"github.com/lyndonlyu/secretshield/internal/config"
	"github.com/lyndonlyu/secretshield/internal/filelock"
	"github.com/lyndonlyu/secretshield/internal/killswitch"
	"github.com/lyndonlyu/secretshield/internal/statedb"
)

// CheckConfig verifies that the configuration file can be loaded.
func CheckConfig(path string) ComponentStatus {
	cs := ComponentStatus{
		Name:     "config",
		Category: Critical,
	}

	if _, err := config.Load(path); err != nil {
		cs.Detail = fmt.Sprintf("Configuration error: %v", err)
		return cs
	}

	cs.Healthy = true
	cs.Detail = "Configuration loaded"
	return cs
}

// CheckAuditChain verifies the audit hash chain and its daily anchors.
func CheckAuditChain(auditDir string) ComponentStatus {
	cs := ComponentStatus{
		Name:     "audit_chain",
		Category: Critical,
	}

	logger, err := audit.NewLogger(auditDir)
	if err != nil {
		cs.Detail = fmt.Sprintf("Failed to open audit log: %v", err)
		return cs
	}

	valid, brokenAt, err := logger.Verify()
	if err != nil {
		cs.Detail = fmt.Sprintf("Verification error: %v", err)
		return cs
	}
	if !valid {
		cs.Detail = fmt.Sprintf("Hash chain broken at record %d", brokenAt)
		return cs
	}

	results, err := audit.VerifyAnchors(logger)
	if err != nil {
		cs.Detail = fmt.Sprintf("Anchor error: %v", err)
		return cs
	}
	for _, r := range results {
		if !r.OK {
			cs.Detail = fmt.Sprintf("Anchor %s: %s", r.Date, r.Message)
			return cs
		}
	}

	cs.Healthy = true
	cs.Detail = fmt.Sprintf("Hash chain intact, %d anchor(s)", len(results))
	return cs
}

// CheckAuditDir checks that the audit directory exists and is writable.
func CheckAuditDir(auditDir string) ComponentStatus {
	return checkDirWritable(auditDir, "audit_dir", Important)
}

// CheckHistory opens the history database, creating it if needed, and counts
// its records.
func CheckHistory(path string) ComponentStatus {
	cs := ComponentStatus{
		Name:     "history",
		Category: Important,
	}

	db, err := statedb.Open(path)
	if err != nil {
		cs.Detail = fmt.Sprintf("Open error: %v", err)
		return cs
	}
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		cs.Detail = fmt.Sprintf("Query error: %v", err)
		return cs
	}

	version, err := db.SchemaVersion()
	if err != nil {
		cs.Detail = fmt.Sprintf("Query error: %v", err)
		return cs
	}

	cs.Healthy = true
	cs.Detail = fmt.Sprintf("%d record(s), schema v%d", stats.Scrubs, version)
	return cs
}

// CheckClipboard reports whether copy and guard can reach the system
// clipboard. Scrub and scan work without one.
func CheckClipboard() ComponentStatus {
	return checkClipboard(clipboard.Available())
}

func checkClipboard(available bool) ComponentStatus {
	cs := ComponentStatus{
		Name:     "clipboard",
		Category: Optional,
		Healthy:  available,
		Detail:   "System clipboard available",
	}
	if !available {
		cs.Detail = "No clipboard backend (install xclip, xsel or wl-clipboard)"
	}
	return cs
}

// CheckGuardPause reports an active pause switch as degraded: a paused guard
// leaves secrets on the clipboard.
func CheckGuardPause(dataDir string) ComponentStatus {
	cs := ComponentStatus{
		Name:     "guard_pause",
		Category: Important,
		Healthy:  true,
		Detail:   "Not active",
	}

	sw := killswitch.Pause(dataDir)
	if sw.IsActive() {
		cs.Healthy = false
		cs.Detail = "ACTIVE, use 'secretshield guard resume' to deactivate"
		if reason := sw.Reason(); reason != "" {
			cs.Detail += " (" + reason + ")"
		}
	}
	return cs
}

// CheckGuardStop reports a stop request that no guard has consumed yet.
func CheckGuardStop(dataDir string) ComponentStatus {
	cs := ComponentStatus{
		Name:     "guard_stop",
		Category: Optional,
		Healthy:  true,
		Detail:   "Not active",
	}

	if killswitch.Stop(dataDir).IsActive() {
		cs.Healthy = false
		cs.Detail = "Pending, cleared when the next guard starts"
	}
	return cs
}

// CheckGuardLock reports the guard recorded in dataDir/guard.lock. A lock
// whose owner has exited is flagged; the next guard start reclaims it.
func CheckGuardLock(dataDir string) ComponentStatus {
	cs := ComponentStatus{
		Name:     "guard_lock",
		Category: Optional,
		Healthy:  true,
		Detail:   "No guard running",
	}

	lockPath := filepath.Join(dataDir, "guard.lock")
	meta, err := filelock.ReadMeta(lockPath)
	if err != nil {
		return cs
	}
	if filelock.IsStale(lockPath) {
		cs.Healthy = false
		cs.Detail = fmt.Sprintf("Stale lock left by PID %d", meta.PID)
		return cs
	}
	cs.Detail = fmt.Sprintf("Guard running (PID %d)", meta.PID)
	return cs
}

// checkDirWritable tests whether a directory exists and is writable by creating
// and immediately removing a temp file.
func checkDirWritable(dir, name, category string) ComponentStatus {
	cs := ComponentStatus{
		Name:     name,
		Category: category,
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			cs.Detail = "Missing"
		} else {
			cs.Detail = fmt.Sprintf("Stat error: %v", err)
		}
		return cs
	}
	if !info.IsDir() {
		cs.Detail = "Not a directory"
		return cs
	}

	tmp := filepath.Join(dir, ".health_check_tmp")
	if err := os.WriteFile(tmp, []byte("ok"), 0600); err != nil {
		cs.Detail = "Not writable"
		return cs
	}
	os.Remove(tmp)

	cs.Healthy = true
	cs.Detail = "Writable"
	return cs
}

// Evaluate runs every component check against cfg and returns the Report.
// The audit directory is checked before the chain, which creates it.
func Evaluate(cfg *config.Config) *Report {
	components := []ComponentStatus{
		CheckConfig(cfg.Path()),
		CheckAuditDir(cfg.AuditDir()),
		CheckAuditChain(cfg.AuditDir()),
		CheckHistory(cfg.HistoryPath()),
		CheckClipboard(),
		CheckGuardPause(cfg.BaseDir),
		CheckGuardStop(cfg.BaseDir),
		CheckGuardLock(cfg.BaseDir),
	}

	return NewReport(components)
}
