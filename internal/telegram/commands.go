package telegram

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/relaytranslate/relaytranslate/internal/dispatch"
	"github.com/relaytranslate/relaytranslate/internal/health"
	"github.com/relaytranslate/relaytranslate/internal/langhint"
	"github.com/relaytranslate/relaytranslate/internal/translation"
)

// Command names.
const (
	CommandStart     = "start"
	CommandHelp      = "help"
	CommandStatus    = "status"
	CommandHealth    = "health"
	CommandLanguages = "languages"
)

// HealthChecker exposes the health monitor. Commands read the latest
// snapshot and only run a cycle when none exists yet, so asking for status
// never moves the failure counter.
type HealthChecker interface {
	Last() (health.Snapshot, bool)
	Check(ctx context.Context) health.Snapshot
}

// QueueReporter reports how many messages wait for a free worker.
type QueueReporter interface {
	Pending() int
}

// CircuitReporter reports the circuit breaker state of the translation API.
type CircuitReporter interface {
	CircuitState() string
}

// CommandsConfig holds what the command replies report on.
type CommandsConfig struct {
	Policy translation.Policy
	Health HealthChecker
	State  *health.State

	// Stats, Queue and Circuit are optional.
	Stats   *dispatch.Stats
	Queue   QueueReporter
	Circuit CircuitReporter

	// HealthPort is shown in /status.
	HealthPort string
}

// Commands answers bot commands.
type Commands struct {
	policy  translation.Policy
	health  HealthChecker
	state   *health.State
	stats   *dispatch.Stats
	queue   QueueReporter
	circuit CircuitReporter
	port    string
}

// NewCommands creates a command handler.
func NewCommands(cfg CommandsConfig) *Commands {
	state := cfg.State
	if state == nil {
		state = health.NewState()
	}
	return &Commands{
		policy:  cfg.Policy,
		health:  cfg.Health,
		state:   state,
		stats:   cfg.Stats,
		queue:   cfg.Queue,
		circuit: cfg.Circuit,
		port:    cfg.HealthPort,
	}
}

// Reply returns the answer to command, or false if the command is unknown.
func (c *Commands) Reply(ctx context.Context, command string) (string, bool) {
	switch strings.ToLower(command) {
	case CommandStart:
		return c.start(), true
	case CommandHelp:
		return c.help(), true
	case CommandStatus:
		return c.status(ctx), true
	case CommandHealth:
		return c.healthReport(ctx), true
	case CommandLanguages:
		return c.languages(), true
	}
	return "", false
}

func (c *Commands) start() string {
	var b strings.Builder
	b.WriteString("🤖 Translation bot is running!\n\n")
	b.WriteString("✨ Messages in a supported language are translated automatically:\n")
	c.writeDirections(&b)
	b.WriteString("\n📝 Add me to a group and chat normally, no commands needed.")
	return b.String()
}

func (c *Commands) help() string {
	var b strings.Builder
	b.WriteString("📖 Help\n\n🔄 Translation rules:\n")
	c.writeDirections(&b)
	b.WriteString("\n👥 Group setup:\n")
	b.WriteString("1. Add the bot to the group\n")
	b.WriteString("2. Allow it to send messages\n")
	b.WriteString("3. Disable privacy mode with @BotFather\n")
	b.WriteString("4. Chat normally\n\n")
	b.WriteString("🔧 Commands:\n")
	b.WriteString("/start - bot information\n")
	b.WriteString("/help - this message\n")
	b.WriteString("/status - bot status\n")
	b.WriteString("/health - detailed health checks\n")
	b.WriteString("/languages - supported languages")
	return b.String()
}

func (c *Commands) status(ctx context.Context) string {
	snap := c.snapshot(ctx)

	var b strings.Builder
	fmt.Fprintf(&b, "%s Status: %s\n", statusIcon(snap.Status), snap.Status)
	b.WriteString(snap.Message)
	b.WriteString("\n\n🌐 Translation rules:\n")
	c.writeDirections(&b)
	b.WriteString("\n📊 System:\n")
	fmt.Fprintf(&b, "• Uptime: %s\n", formatUptime(c.state.Uptime()))
	fmt.Fprintf(&b, "• Consecutive failed checks: %d of %d run\n", snap.FailureCount, c.state.Cycles())
	if c.stats != nil {
		fmt.Fprintf(&b, "• Messages: %d translated, %d skipped, %d failed\n",
			c.stats.Sent.Load(), c.stats.Skipped.Load(), c.stats.Failed.Load())
	}
	if c.queue != nil {
		fmt.Fprintf(&b, "• Waiting for a worker: %d\n", c.queue.Pending())
	}
	if c.circuit != nil {
		fmt.Fprintf(&b, "• Translation API circuit: %s\n", c.circuit.CircuitState())
	}
	if c.port != "" {
		fmt.Fprintf(&b, "• Health endpoint: port %s\n", c.port)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Commands) healthReport(ctx context.Context) string {
	snap := c.snapshot(ctx)

	names := make([]string, 0, len(snap.Checks))
	for name := range snap.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", statusIcon(snap.Status), snap.Message)
	for _, name := range names {
		mark := "✅"
		if !snap.Checks[name] {
			mark = "❌"
		}
		fmt.Fprintf(&b, "• %s: %s\n", name, mark)
	}
	fmt.Fprintf(&b, "\n⏱ Uptime: %s", formatUptime(c.state.Uptime()))
	if !snap.CheckedAt.IsZero() {
		fmt.Fprintf(&b, "\n🕒 Last check: %s", snap.CheckedAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}

func (c *Commands) languages() string {
	var b strings.Builder
	b.WriteString("🌍 Supported languages\n\n📥 Detected:\n")
	b.WriteString("• Chinese - CJK characters\n")
	b.WriteString("• Tagalog - common words\n")
	b.WriteString("• Urdu - Arabic script\n\n")
	b.WriteString("🔀 Directions:\n")
	c.writeDirections(&b)
	return strings.TrimRight(b.String(), "\n")
}

func (c *Commands) snapshot(ctx context.Context) health.Snapshot {
	if c.health == nil {
		return health.Snapshot{Status: health.StatusHealthy, Message: "health checks disabled"}
	}
	if snap, ok := c.health.Last(); ok {
		return snap
	}
	return c.health.Check(ctx)
}

func (c *Commands) writeDirections(b *strings.Builder) {
	directions := c.policy.Directions()
	if len(directions) == 0 {
		b.WriteString("• (none configured)\n")
		return
	}
	for _, d := range directions {
		fmt.Fprintf(b, "• %s → %s\n", d.Source.DisplayName(), d.Target.DisplayName())
	}
}

func statusIcon(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return "✅"
	case health.StatusDegraded:
		return "⚠️"
	default:
		return "❌"
	}
}

func formatUptime(d time.Duration) string {
	total := int64(d / time.Second)
	return fmt.Sprintf("%dh %dm %ds", total/3600, (total%3600)/60, total%60)
}

// hintsWithTargets lists the hints the policy translates, for logging.
func hintsWithTargets(policy translation.Policy) []string {
	var out []string
	for _, d := range policy.Directions() {
		if d.Source != langhint.HintUnknown {
			out = append(out, d.Source.Code()+"->"+string(d.Target))
		}
	}
	return out
}
