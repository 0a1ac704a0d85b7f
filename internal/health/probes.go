package health

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/prometheus/procfs"

	"github.com/relaytranslate/relaytranslate/internal/translation"
)

var botTokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]{30,}$`)

// ValidBotToken reports whether token looks like a Telegram bot token.
// It makes no network call.
func ValidBotToken(token string) bool {
	return botTokenPattern.MatchString(token)
}

// Pinger sends a minimal request to the translation API.
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIReachable interprets a Ping result. Any HTTP response other than an
// auth failure counts as reachable, and so does a timeout; an auth failure
// or a connection fault without a response does not.
func APIReachable(err error) bool {
	if err == nil {
		return true
	}
	switch translation.KindOf(err) {
	case translation.KindAuthFailure:
		return false
	case translation.KindTimeout:
		return true
	}
	return translation.HadResponse(err)
}

// MemoryUsage is the resident memory of the process relative to the host.
type MemoryUsage struct {
	ResidentBytes uint64
	TotalBytes    uint64
}

// Fraction returns ResidentBytes / TotalBytes, or 0 when the total is unknown.
func (m MemoryUsage) Fraction() float64 {
	if m.TotalBytes == 0 {
		return 0
	}
	return float64(m.ResidentBytes) / float64(m.TotalBytes)
}

// MemoryProbe reports process memory usage.
type MemoryProbe interface {
	Usage() (MemoryUsage, error)
}

// NopMemoryProbe reports zero usage. It is used where /proc is unavailable.
type NopMemoryProbe struct{}

// Usage implements MemoryProbe.
func (NopMemoryProbe) Usage() (MemoryUsage, error) {
	return MemoryUsage{}, nil
}

// ProcMemoryProbe reads resident memory and total memory from /proc.
type ProcMemoryProbe struct {
	fs procfs.FS
}

// NewProcMemoryProbe opens the default /proc mount.
func NewProcMemoryProbe() (*ProcMemoryProbe, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("opening procfs: %w", err)
	}
	if _, err := fs.Self(); err != nil {
		return nil, fmt.Errorf("reading own process: %w", err)
	}
	return &ProcMemoryProbe{fs: fs}, nil
}

// NewMemoryProbe returns a ProcMemoryProbe, or NopMemoryProbe when /proc
// cannot be read on this platform.
func NewMemoryProbe() MemoryProbe {
	probe, err := NewProcMemoryProbe()
	if err != nil {
		return NopMemoryProbe{}
	}
	return probe
}

// Usage implements MemoryProbe.
func (p *ProcMemoryProbe) Usage() (MemoryUsage, error) {
	self, err := p.fs.Self()
	if err != nil {
		return MemoryUsage{}, fmt.Errorf("reading own process: %w", err)
	}
	stat, err := self.Stat()
	if err != nil {
		return MemoryUsage{}, fmt.Errorf("reading process stat: %w", err)
	}

	meminfo, err := p.fs.Meminfo()
	if err != nil {
		return MemoryUsage{}, fmt.Errorf("reading meminfo: %w", err)
	}
	if meminfo.MemTotal == nil {
		return MemoryUsage{}, errors.New("meminfo has no MemTotal")
	}

	return MemoryUsage{
		ResidentBytes: uint64(stat.ResidentMemory()), //nolint:gosec // resident memory is never negative
		TotalBytes:    *meminfo.MemTotal * 1024,
	}, nil
}
