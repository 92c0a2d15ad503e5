// Package gatewayconfig loads and normalizes the Gateway's Policy, the
// frozen record that is "the union of all hook option
// sub-records." It follows the same layered-merge, JSONC-tolerant loading
// OpenCode's internal/config package uses for opencode.json, generalized
// to also accept YAML and to land on a Policy instead of a host Config.
package gatewayconfig

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// HooksPolicy controls dispatcher routing.
type HooksPolicy struct {
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Order    []string `json:"order,omitempty" yaml:"order,omitempty"`
	Disabled []string `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// GuardsPolicy carries the option knobs the guard-family hooks read.
type GuardsPolicy struct {
	MaxConcurrentWriters       int      `json:"maxConcurrentWriters" yaml:"maxConcurrentWriters"`
	MaxBehindCommits           int      `json:"maxBehindCommits" yaml:"maxBehindCommits"`
	RequireSummarySection      bool     `json:"requireSummarySection" yaml:"requireSummarySection"`
	RequireValidationSection   bool     `json:"requireValidationSection" yaml:"requireValidationSection"`
	RequireValidationEvidence  bool     `json:"requireValidationEvidence" yaml:"requireValidationEvidence"`
	RequireDeleteBranchOnMerge bool     `json:"requireDeleteBranchOnMerge" yaml:"requireDeleteBranchOnMerge"`
	RequireInlineMainSync      bool     `json:"requireInlineMainSync" yaml:"requireInlineMainSync"`
	ProtectedBranches          []string `json:"protectedBranches,omitempty" yaml:"protectedBranches,omitempty"`
	SourcePatterns             []string `json:"sourcePatterns,omitempty" yaml:"sourcePatterns,omitempty"`
	DocsPatterns               []string `json:"docsPatterns,omitempty" yaml:"docsPatterns,omitempty"`
	FailOpenOnError            bool     `json:"failOpenOnError" yaml:"failOpenOnError"`
	TasksToolEnabled           bool     `json:"tasksToolEnabled" yaml:"tasksToolEnabled"`
	SubagentSessionPattern     string   `json:"subagentSessionPattern,omitempty" yaml:"subagentSessionPattern,omitempty"`

	// DangerousCommandPatterns and SecretPatterns are opaque regex data, per
	// open question: "the precise regex set for secret patterns
	// and dangerous commands — treat as opaque data provided by policy."
	DangerousCommandPatterns []string `json:"dangerousCommandPatterns,omitempty" yaml:"dangerousCommandPatterns,omitempty"`
	SecretPatterns           []string `json:"secretPatterns,omitempty" yaml:"secretPatterns,omitempty"`
	// WriteExistingFileExemptGlobs excludes matching paths from
	// write-existing-file-guard (default ".sisyphus/*.md").
	WriteExistingFileExemptGlobs []string `json:"writeExistingFileExemptGlobs,omitempty" yaml:"writeExistingFileExemptGlobs,omitempty"`
	// NonInteractiveCommandPrefixes lists bash command names that require a
	// non-interactive flag (e.g. "npm init" needs "-y").
	NonInteractiveCommandPrefixes []string `json:"nonInteractiveCommandPrefixes,omitempty" yaml:"nonInteractiveCommandPrefixes,omitempty"`
	// ManifestFiles lists dependency-manifest basenames dependency-risk-guard
	// inspects for newly added lines.
	ManifestFiles []string `json:"manifestFiles,omitempty" yaml:"manifestFiles,omitempty"`
}

// LoopPolicy carries the continuation loop state machine's knobs.
type LoopPolicy struct {
	MaxIgnoredCompletionCycles uint64  `json:"maxIgnoredCompletionCycles" yaml:"maxIgnoredCompletionCycles"`
	StaleLoopMaxAgeHours       float64 `json:"staleLoopMaxAgeHours" yaml:"staleLoopMaxAgeHours"`
	DefaultMaxIterations       uint64  `json:"defaultMaxIterations" yaml:"defaultMaxIterations"`
	DefaultCompletionPromise   string  `json:"defaultCompletionPromise" yaml:"defaultCompletionPromise"`
	BootstrapFromRuntime       bool    `json:"bootstrapFromRuntime" yaml:"bootstrapFromRuntime"`
	// StaleLoopSweepCron schedules the optional periodic stale-loop sweep
	// (internal/hooks/staleloop), in standard 5-field cron syntax.
	StaleLoopSweepCron string `json:"staleLoopSweepCron" yaml:"staleLoopSweepCron"`
}

// ContextPolicy carries the pending-context collector/injector's knobs.
type ContextPolicy struct {
	MaxChars int `json:"maxChars" yaml:"maxChars"`
}

// GuardMarkerMode is a closed enum for how context-pressure hooks surface
// their reminders.
type GuardMarkerMode string

const (
	GuardMarkerModeMarker GuardMarkerMode = "marker"
	GuardMarkerModeStatus GuardMarkerMode = "status"
	GuardMarkerModeBoth   GuardMarkerMode = "both"
)

// GuardVerbosity is a closed enum for reminder message length.
type GuardVerbosity string

const (
	GuardVerbosityMinimal GuardVerbosity = "minimal"
	GuardVerbosityNormal  GuardVerbosity = "normal"
	GuardVerbosityVerbose GuardVerbosity = "verbose"
)

// AdvisoryPolicy carries the context-pressure/recovery advisory hooks'
// shared knobs.
type AdvisoryPolicy struct {
	ReminderCooldownToolCalls int             `json:"reminderCooldownToolCalls" yaml:"reminderCooldownToolCalls"`
	MinTokenDeltaForReminder  int             `json:"minTokenDeltaForReminder" yaml:"minTokenDeltaForReminder"`
	GuardMarkerMode           GuardMarkerMode `json:"guardMarkerMode" yaml:"guardMarkerMode"`
	GuardVerbosity            GuardVerbosity  `json:"guardVerbosity" yaml:"guardVerbosity"`
	WarningMaxRssMb           int             `json:"warningMaxRssMb" yaml:"warningMaxRssMb"`
	ArmedMaxRssMb             int             `json:"armedMaxRssMb" yaml:"armedMaxRssMb"`
	CriticalMaxRssMb          int             `json:"criticalMaxRssMb" yaml:"criticalMaxRssMb"`
	AutoPauseOnCritical       bool            `json:"autoPauseOnCritical" yaml:"autoPauseOnCritical"`
	MaxRetryBackoffSeconds    int             `json:"maxRetryBackoffSeconds" yaml:"maxRetryBackoffSeconds"`

	// DefaultWindowTokens/ExtendedWindowTokens bound context-window-monitor
	// and preemptive-compaction's token-usage fraction; ExtendedWindowTokens
	// applies when ANTHROPIC_1M_CONTEXT is set, per the closed
	// environment-variable set.
	DefaultWindowTokens   int     `json:"defaultWindowTokens" yaml:"defaultWindowTokens"`
	ExtendedWindowTokens  int     `json:"extendedWindowTokens" yaml:"extendedWindowTokens"`
	WindowWarnFraction    float64 `json:"windowWarnFraction" yaml:"windowWarnFraction"`
	WindowCompactFraction float64 `json:"windowCompactFraction" yaml:"windowCompactFraction"`
	// ProcessPressureSampleInterval paces processpressure's system-counter
	// sampling via a token-bucket (golang.org/x/time/rate), so repeated
	// tool.execute.after events don't re-sample more than once per interval.
	ProcessPressureSampleIntervalSeconds float64 `json:"processPressureSampleIntervalSeconds" yaml:"processPressureSampleIntervalSeconds"`
	// CodexHeaderModelPattern matches the model identifiers that trigger
	// codex-header-injector's one-time header prefix.
	CodexHeaderModelPattern string `json:"codexHeaderModelPattern" yaml:"codexHeaderModelPattern"`
}

// Policy is the frozen, process-wide configuration object. It is
// created once via Load and never mutated afterward.
type Policy struct {
	Hooks     HooksPolicy    `json:"hooks" yaml:"hooks"`
	Guards    GuardsPolicy   `json:"guards" yaml:"guards"`
	Loop      LoopPolicy     `json:"loop" yaml:"loop"`
	Context   ContextPolicy  `json:"context" yaml:"context"`
	Advisory  AdvisoryPolicy `json:"advisory" yaml:"advisory"`
}

// Default returns a Policy with every field at its documented default.
func Default() *Policy {
	p := &Policy{
		Hooks: HooksPolicy{Enabled: true},
		Guards: GuardsPolicy{
			MaxConcurrentWriters:     2,
			MaxBehindCommits:         20,
			RequireSummarySection:    true,
			RequireValidationSection: true,
			ProtectedBranches:        []string{"main", "master"},
			TasksToolEnabled:         true,
			SubagentSessionPattern:   "subagent",
			DangerousCommandPatterns: []string{
				`rm\s+-rf\s+/(\s|$)`,
				`:\(\)\{.*:\|:.*\};:`, // fork bomb
				`mkfs\.`,
				`dd\s+if=.*of=/dev/(sd|nvme|disk)`,
				`>\s*/dev/sd[a-z]`,
				`chmod\s+-R\s+777\s+/`,
			},
			SecretPatterns: []string{
				`AKIA[0-9A-Z]{16}`,
				`-----BEGIN (RSA|EC|OPENSSH|DSA) PRIVATE KEY-----`,
				`ghp_[A-Za-z0-9]{36}`,
				`sk-[A-Za-z0-9]{20,}`,
				`xox[baprs]-[A-Za-z0-9-]{10,}`,
			},
			WriteExistingFileExemptGlobs: []string{".sisyphus/*.md"},
			NonInteractiveCommandPrefixes: []string{
				"npm init", "npm install", "yarn add", "pip install", "apt-get install", "apt install",
			},
			ManifestFiles: []string{"go.mod", "package.json", "requirements.txt", "Cargo.toml"},
		},
		Loop: LoopPolicy{
			MaxIgnoredCompletionCycles: 2,
			StaleLoopMaxAgeHours:       12,
			DefaultMaxIterations:       0,
			DefaultCompletionPromise:   "DONE",
			StaleLoopSweepCron:         "*/30 * * * *",
		},
		Context: ContextPolicy{MaxChars: 4000},
		Advisory: AdvisoryPolicy{
			ReminderCooldownToolCalls: 10,
			MinTokenDeltaForReminder:  2000,
			GuardMarkerMode:           GuardMarkerModeMarker,
			GuardVerbosity:            GuardVerbosityNormal,
			WarningMaxRssMb:           6144,
			ArmedMaxRssMb:             8192,
			CriticalMaxRssMb:          10240,
			AutoPauseOnCritical:       true,
			MaxRetryBackoffSeconds:    30,
			DefaultWindowTokens:       200000,
			ExtendedWindowTokens:      1000000,
			WindowWarnFraction:        0.7,
			WindowCompactFraction:     0.85,
			ProcessPressureSampleIntervalSeconds: 30,
			CodexHeaderModelPattern:   `(?i)codex|gpt-5`,
		},
	}
	return p
}

// Load merges layered configuration (global, then project-local) into a
// normalized Policy, mirroring OpenCode's config.Load priority order:
// global config first, project config overrides it. Missing files are
// skipped silently; a present-but-unparseable file is also skipped, since
// configuration errors normalize to safe defaults rather than fail the
// gateway.
func Load(directory string) (*Policy, error) {
	policy := Default()

	home, _ := os.UserHomeDir()
	if home != "" {
		globalDir := filepath.Join(home, ".config", "opencode-gateway")
		loadInto(policy, filepath.Join(globalDir, "gateway-policy.json"))
		loadInto(policy, filepath.Join(globalDir, "gateway-policy.jsonc"))
		loadInto(policy, filepath.Join(globalDir, "gateway-policy.yaml"))
		loadInto(policy, filepath.Join(globalDir, "gateway-policy.yml"))
	}

	if directory != "" {
		projectDir := filepath.Join(directory, ".opencode")
		loadInto(policy, filepath.Join(projectDir, "gateway-policy.json"))
		loadInto(policy, filepath.Join(projectDir, "gateway-policy.jsonc"))
		loadInto(policy, filepath.Join(projectDir, "gateway-policy.yaml"))
		loadInto(policy, filepath.Join(projectDir, "gateway-policy.yml"))
	}

	normalize(policy)
	return policy, nil
}

// loadInto reads path, if present, and merges it onto policy. Decoding
// happens onto a copy of the current policy rather than a zero-valued one,
// so keys the overlay document omits keep their already-merged value
// instead of being clobbered back to a Go zero value — the same
// load-onto-accumulator approach as OpenCode's loadConfigFile, adapted
// because Policy's sub-records are narrow enough to merge whole-struct
// rather than field-by-field. Errors are swallowed: a missing or malformed
// overlay simply contributes nothing.
func loadInto(policy *Policy, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	merged := *policy
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if yaml.Unmarshal(data, &merged) != nil {
			return
		}
	default:
		if json.Unmarshal(stripJSONComments(data), &merged) != nil {
			return
		}
	}

	*policy = merged
}

var (
	singleLineComment = regexp.MustCompile(`(?m)//.*$`)
	multiLineComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// stripJSONComments removes // and /* */ comments, allowing JSONC overlays.
func stripJSONComments(data []byte) []byte {
	data = singleLineComment.ReplaceAll(data, nil)
	data = multiLineComment.ReplaceAll(data, nil)
	return bytes.TrimSpace(data)
}

// normalize applies the deterministic default-substitution rules
// requires of Policy: "maxConcurrentWriters ≤ 0 → 2; cooldowns ≤ 0 →
// default; unknown enum → default."
func normalize(p *Policy) {
	def := Default()

	if p.Guards.MaxConcurrentWriters <= 0 {
		p.Guards.MaxConcurrentWriters = def.Guards.MaxConcurrentWriters
	}
	if p.Guards.MaxBehindCommits <= 0 {
		p.Guards.MaxBehindCommits = def.Guards.MaxBehindCommits
	}
	if len(p.Guards.ProtectedBranches) == 0 {
		p.Guards.ProtectedBranches = def.Guards.ProtectedBranches
	}
	if p.Guards.SubagentSessionPattern == "" {
		p.Guards.SubagentSessionPattern = def.Guards.SubagentSessionPattern
	}
	if len(p.Guards.DangerousCommandPatterns) == 0 {
		p.Guards.DangerousCommandPatterns = def.Guards.DangerousCommandPatterns
	}
	if len(p.Guards.SecretPatterns) == 0 {
		p.Guards.SecretPatterns = def.Guards.SecretPatterns
	}
	if len(p.Guards.WriteExistingFileExemptGlobs) == 0 {
		p.Guards.WriteExistingFileExemptGlobs = def.Guards.WriteExistingFileExemptGlobs
	}
	if len(p.Guards.NonInteractiveCommandPrefixes) == 0 {
		p.Guards.NonInteractiveCommandPrefixes = def.Guards.NonInteractiveCommandPrefixes
	}
	if len(p.Guards.ManifestFiles) == 0 {
		p.Guards.ManifestFiles = def.Guards.ManifestFiles
	}

	if p.Loop.StaleLoopMaxAgeHours <= 0 {
		p.Loop.StaleLoopMaxAgeHours = def.Loop.StaleLoopMaxAgeHours
	}
	if p.Loop.DefaultCompletionPromise == "" {
		p.Loop.DefaultCompletionPromise = def.Loop.DefaultCompletionPromise
	}
	if p.Loop.StaleLoopSweepCron == "" {
		p.Loop.StaleLoopSweepCron = def.Loop.StaleLoopSweepCron
	}
	// maxIgnoredCompletionCycles=0 is a valid (if aggressive) setting, and
	// defaultMaxIterations=0 means "unbounded" — neither is
	// normalized away.

	if p.Context.MaxChars <= 0 {
		p.Context.MaxChars = def.Context.MaxChars
	}

	if p.Advisory.ReminderCooldownToolCalls <= 0 {
		p.Advisory.ReminderCooldownToolCalls = def.Advisory.ReminderCooldownToolCalls
	}
	if p.Advisory.MinTokenDeltaForReminder <= 0 {
		p.Advisory.MinTokenDeltaForReminder = def.Advisory.MinTokenDeltaForReminder
	}
	if p.Advisory.WarningMaxRssMb <= 0 {
		p.Advisory.WarningMaxRssMb = def.Advisory.WarningMaxRssMb
	}
	if p.Advisory.ArmedMaxRssMb <= 0 {
		p.Advisory.ArmedMaxRssMb = def.Advisory.ArmedMaxRssMb
	}
	if p.Advisory.CriticalMaxRssMb <= 0 {
		p.Advisory.CriticalMaxRssMb = def.Advisory.CriticalMaxRssMb
	}
	if p.Advisory.MaxRetryBackoffSeconds <= 0 {
		p.Advisory.MaxRetryBackoffSeconds = def.Advisory.MaxRetryBackoffSeconds
	}
	if p.Advisory.DefaultWindowTokens <= 0 {
		p.Advisory.DefaultWindowTokens = def.Advisory.DefaultWindowTokens
	}
	if p.Advisory.ExtendedWindowTokens <= 0 {
		p.Advisory.ExtendedWindowTokens = def.Advisory.ExtendedWindowTokens
	}
	if p.Advisory.WindowWarnFraction <= 0 {
		p.Advisory.WindowWarnFraction = def.Advisory.WindowWarnFraction
	}
	if p.Advisory.WindowCompactFraction <= 0 {
		p.Advisory.WindowCompactFraction = def.Advisory.WindowCompactFraction
	}
	if p.Advisory.ProcessPressureSampleIntervalSeconds <= 0 {
		p.Advisory.ProcessPressureSampleIntervalSeconds = def.Advisory.ProcessPressureSampleIntervalSeconds
	}
	if p.Advisory.CodexHeaderModelPattern == "" {
		p.Advisory.CodexHeaderModelPattern = def.Advisory.CodexHeaderModelPattern
	}
	switch p.Advisory.GuardMarkerMode {
	case GuardMarkerModeMarker, GuardMarkerModeStatus, GuardMarkerModeBoth:
	default:
		p.Advisory.GuardMarkerMode = def.Advisory.GuardMarkerMode
	}
	switch p.Advisory.GuardVerbosity {
	case GuardVerbosityMinimal, GuardVerbosityNormal, GuardVerbosityVerbose:
	default:
		p.Advisory.GuardVerbosity = def.Advisory.GuardVerbosity
	}
}
