package provision

import "visiond/pkg/types"

// Status is the provisioning state of a single asset within one run.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusSkipped     Status = "skipped"
	StatusCompleted   Status = "completed"
)

// Progress is one coalesced progress update for a single asset. Totals are
// -1 when unknown (failed size probe).
type Progress struct {
	File          string
	Status        Status
	FileBytes     int64
	FileTotal     int64
	TotalBytes    int64
	TotalExpected int64
}

// ProgressFunc receives progress updates during Ensure. It is called from the
// provisioning goroutine; implementations must not block for long.
type ProgressFunc func(Progress)

// FilePercent returns the per-file completion percentage, or
// types.PercentUnknown when the file size is unknown.
func (p Progress) FilePercent() float64 {
	return percent(p.FileBytes, p.FileTotal)
}

// TotalPercent returns the aggregate completion percentage across all assets,
// or types.PercentUnknown when no sizes could be probed. With partially
// known sizes this is a best-effort estimate over the probed subset.
func (p Progress) TotalPercent() float64 {
	return percent(p.TotalBytes, p.TotalExpected)
}

func percent(n, total int64) float64 {
	if total <= 0 {
		return types.PercentUnknown
	}
	pct := float64(n) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
