// Package gateway wires every hook body in internal/hooks onto one
// dispatch.Dispatcher, mirroring OpenCode's own config → storage →
// providers → server composition root but assembling a hook pipeline
// instead of an HTTP server. One Gateway binds one working directory's
// policy for its whole lifetime; a process that needs to serve several
// directories concurrently constructs one Gateway per directory.
package gateway

import (
	"context"

	"github.com/opencode-ai/opencode-gateway/internal/audit"
	"github.com/opencode-ai/opencode-gateway/internal/collector"
	"github.com/opencode-ai/opencode-gateway/internal/dispatch"
	"github.com/opencode-ai/opencode-gateway/internal/gatewayconfig"
	"github.com/opencode-ai/opencode-gateway/internal/gatewaystate"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/autopilotloop"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/branchfreshness"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/codexheaderinjector"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/compactiontodopreserver"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/contextinjector"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/contextwindowmonitor"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/continuation"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/dangerouscommand"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/dependencyrisk"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/docsdrift"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/ghchecksmerge"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/modetransitionreminder"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/noninteractiveshell"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/parallelwriter"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/planhandoffreminder"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/postmergesync"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/prbodyevidence"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/preemptivecompaction"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/processpressure"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/providererrorclassifier"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/providerretrybackoff"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/secretcommit"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/secretleak"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/sessionrecovery"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/staleloop"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/stopcontinuationguard"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/stopguard"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/subagentquestionblocker"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/taskstodowritedisabler"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/todoreadcadencereminder"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/workflowconformance"
	"github.com/opencode-ai/opencode-gateway/internal/hooks/writeexistingfile"
	"github.com/opencode-ai/opencode-gateway/internal/loop"
	"github.com/opencode-ai/opencode-gateway/pkg/hostapi"
)

// Gateway is the fully wired hook pipeline plus the shared infrastructure
// (state store, pending-context collector, audit sink, continuation loop
// machine, stale-loop sweeper) every hook body draws on, bound to one
// frozen Policy: loaded once and never mutated for the life of the
// Gateway.
type Gateway struct {
	Policy     *gatewayconfig.Policy
	Dispatcher *dispatch.Dispatcher
	Store      *gatewaystate.Store
	Collector  *collector.Collector
	Audit      *audit.Sink
	Machine    *loop.Machine
	Sweeper    *staleloop.Sweeper
}

// New constructs a Gateway for directory (its policy is loaded once, layering
// global then project-local overlays per gatewayconfig.Load) around host,
// the caller's implementation of the small sequential async interface the
// assistant host exposes. auditOpts are passed through to audit.New
// unmodified, so callers can override the env-gated default (e.g. forcing
// it on for "gateway-plugin serve --audit").
func New(directory string, host hostapi.Host, auditOpts ...audit.Option) (*Gateway, error) {
	policy, err := gatewayconfig.Load(directory)
	if err != nil {
		return nil, err
	}

	store := gatewaystate.NewStore()
	coll := collector.New()
	sink := audit.New(auditOpts...)
	machine := loop.New(store, coll, host)
	guard := stopguard.New(store)
	sampler := processpressure.NewPSSampler()
	sweeper := staleloop.New(store, policy.Loop.StaleLoopSweepCron, policy.Loop.StaleLoopMaxAgeHours)

	dispatcher := dispatch.New(sink)
	for _, hook := range []dispatch.Hook{
		continuation.New(policy, machine),
		autopilotloop.New(policy, machine),
		contextwindowmonitor.New(policy, host, coll),
		preemptivecompaction.New(policy, host, sink),
		processpressure.New(policy, sampler, guard, sink, coll),
		providererrorclassifier.New(coll),
		providerretrybackoff.New(policy, coll),
		codexheaderinjector.New(policy, host),
		planhandoffreminder.New(coll),
		modetransitionreminder.New(coll),
		todoreadcadencereminder.New(policy, coll),
		compactiontodopreserver.New(host, sink),
		sessionrecovery.New(host, sink),
		contextinjector.New(policy, coll, sink),
		secretleak.New(policy, sink),

		dangerouscommand.New(policy),
		secretcommit.New(policy),
		writeexistingfile.New(policy),
		parallelwriter.New(policy),
		branchfreshness.New(policy),
		ghchecksmerge.New(policy),
		postmergesync.New(policy),
		docsdrift.New(policy),
		prbodyevidence.New(policy),
		workflowconformance.New(policy),
		noninteractiveshell.New(policy),
		subagentquestionblocker.New(policy),
		taskstodowritedisabler.New(policy),
		dependencyrisk.New(policy, coll),
		stopcontinuationguard.New(store),
	} {
		dispatcher.Register(hook)
	}

	return &Gateway{
		Policy:     policy,
		Dispatcher: dispatcher,
		Store:      store,
		Collector:  coll,
		Audit:      sink,
		Machine:    machine,
		Sweeper:    sweeper,
	}, nil
}

// Dispatch runs event through the registered hook pipeline under this
// Gateway's frozen Policy.
func (g *Gateway) Dispatch(ctx context.Context, event *hostapi.Event) error {
	return g.Dispatcher.Dispatch(ctx, g.Policy, event)
}
