// Package coordinator is C13: it owns one investigation's state machine
// and drives every other component through a single top-level method,
// grounded on the teacher's GenkitSecurityAnalyzer.AnalyzeHTTPTraffic
// (internal/driven/analyzer.go) "filter -> context -> analyze -> publish
// -> log" shape, generalized to "plan -> fetch/parse (pipelined) ->
// resolve -> report -> publish -> record."
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osint-pipeline/investigator/internal/cache"
	"github.com/osint-pipeline/investigator/internal/connector"
	"github.com/osint-pipeline/investigator/internal/graph"
	"github.com/osint-pipeline/investigator/internal/limits"
	"github.com/osint-pipeline/investigator/internal/matcher"
	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/normalizer"
	"github.com/osint-pipeline/investigator/internal/parser"
	"github.com/osint-pipeline/investigator/internal/perr"
	"github.com/osint-pipeline/investigator/internal/planner"
	"github.com/osint-pipeline/investigator/internal/progress"
	"github.com/osint-pipeline/investigator/internal/ratelimit"
	"github.com/osint-pipeline/investigator/internal/report"
	"github.com/osint-pipeline/investigator/internal/resolver"
	"github.com/osint-pipeline/investigator/internal/scheduler"
	"github.com/osint-pipeline/investigator/internal/telemetry"
	"github.com/osint-pipeline/investigator/internal/timeline"
)

const (
	minInvestigationDuration     = time.Minute
	maxInvestigationDuration     = 360 * time.Minute
	defaultInvestigationDuration = 120 * time.Minute
)

// Stage weights for the progress percentage: planning is a fixed cost,
// fetching/parsing/resolving are pipelined and share a weight driven by
// queries_executed/total, reporting is a fixed tail cost (§4.13).
const (
	weightPlanning = 5
	weightFetch    = 45
	weightResolve  = 35
	weightReport   = 15
)

// Config wires the already-built components C13 orchestrates. Registry,
// Limiter and Cache are process-wide singletons shared across
// investigations; everything else is stateless and safe to share too.
type Config struct {
	Registry       *connector.Registry
	Limiter        *ratelimit.Controller
	Cache          *cache.Cache
	Scheduler      scheduler.Config
	MatcherWeights matcher.Weights
	TextExtractor  parser.TextExtractor
	Narrative      report.NarrativeProvider
	Hub            *progress.Hub
	Telemetry      *telemetry.Collector

	// MaxInvestigationDuration is the per-investigation deadline
	// (max_investigation_duration_min, default 120, clamped to 1-360).
	MaxInvestigationDuration time.Duration
}

func (c *Config) clampDuration() {
	if c.MaxInvestigationDuration <= 0 {
		c.MaxInvestigationDuration = defaultInvestigationDuration
	}
	if c.MaxInvestigationDuration < minInvestigationDuration {
		c.MaxInvestigationDuration = minInvestigationDuration
	}
	if c.MaxInvestigationDuration > maxInvestigationDuration {
		c.MaxInvestigationDuration = maxInvestigationDuration
	}
}

// Coordinator is C13.
type Coordinator struct {
	cfg        Config
	planner    *planner.Planner
	scheduler  *scheduler.Scheduler
	parser     *parser.Parser
	normalizer *normalizer.Normalizer
	resolver   *resolver.Resolver
	reporter   *report.Reporter
	hub        *progress.Hub
	workingSet *limits.WorkingSetLimiter
}

// New builds a Coordinator against cfg. cfg.Registry, cfg.Limiter and
// cfg.Cache must be non-nil; cfg.Hub may be nil to disable progress
// broadcast entirely.
func New(cfg Config) *Coordinator {
	cfg.clampDuration()
	schedCfg := cfg.Scheduler
	if schedCfg.Telemetry == nil {
		schedCfg.Telemetry = cfg.Telemetry
	}
	return &Coordinator{
		cfg:        cfg,
		planner:    planner.New(cfg.Registry),
		scheduler:  scheduler.New(schedCfg, cfg.Registry, cfg.Limiter, cfg.Cache),
		parser:     parser.New(cfg.TextExtractor),
		normalizer: normalizer.New(),
		resolver:   resolver.New(cfg.MatcherWeights),
		reporter:   report.New(cfg.Narrative),
		hub:        cfg.Hub,
		workingSet: limits.NewWorkingSetLimiter(nil),
	}
}

// validateSeed rejects a seed per §6.1: full_name absent, max_search_depth
// outside 1-10, or retention_days outside 1-365.
func validateSeed(seed models.SeedInput) error {
	if seed.SubjectIdentifiers.FullName == "" {
		return perr.New(perr.KindValidation, "coordinator.validate", fmt.Errorf("subject_identifiers.full_name is required"))
	}
	if d := seed.Constraints.MaxSearchDepth; d < 1 || d > 10 {
		return perr.New(perr.KindValidation, "coordinator.validate", fmt.Errorf("max_search_depth %d outside 1-10", d))
	}
	if d := seed.Constraints.RetentionDays; d < 1 || d > 365 {
		return perr.New(perr.KindValidation, "coordinator.validate", fmt.Errorf("retention_days %d outside 1-365", d))
	}
	return nil
}

// run holds the mutable working state for one Run call: everything an
// investigation accumulates between created and its terminal status.
// Owned exclusively by the goroutine driving Run, per §5's shared-
// resource policy, except where noted.
type run struct {
	mu              sync.Mutex
	record          models.InvestigationRecord
	candidates      []resolver.CandidateSource
	candidateRefs   map[string][]string // candidate ID -> raw result IDs
	rawByResultID   map[string]models.RawResult
	roundCandidates []models.EntityCandidate // discovered this round, feeds planner.Expand
	totalQueries    int
	queriesExecuted int
}

// takeRoundCandidates drains the candidates discovered since the last
// call, handing them to the planner for the next expansion round.
func (r *run) takeRoundCandidates() []models.EntityCandidate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.roundCandidates
	r.roundCandidates = nil
	return out
}

// Run drives one investigation end to end and returns its final record,
// including an embedded report unless the investigation failed outright.
// It never panics: every fallible step is classified via perr and folds
// into either record.Errors (recoverable, investigation continues) or a
// transition to failed/cancelled (terminal).
func (c *Coordinator) Run(ctx context.Context, seed models.SeedInput) models.InvestigationRecord {
	invID := seed.InvestigationID
	if invID == "" {
		invID = uuid.NewString()
	}

	now := time.Now()
	r := &run{
		record: models.InvestigationRecord{
			InvestigationID: invID,
			CorrelationID:   seed.CorrelationID,
			Status:          models.StatusCreated,
			CurrentStage:    models.StatusCreated,
			Seed:            seed,
			StartedAt:       now,
			UpdatedAt:       now,
			Deadline:        now.Add(c.cfg.MaxInvestigationDuration),
		},
		candidateRefs: make(map[string][]string),
		rawByResultID: make(map[string]models.RawResult),
	}
	r.record.EstimatedCompletion = r.record.Deadline

	if err := validateSeed(seed); err != nil {
		return c.fail(r, err)
	}

	ctx, cancel := context.WithDeadline(ctx, r.record.Deadline)
	defer cancel()

	c.transition(r, models.StatusPlanning, 0, "planning investigation")

	plan, rejected := c.planner.Plan(seed)
	for _, rej := range rejected {
		c.recordError(r, fmt.Sprintf("rejected query %q: %s", rej.QueryString, rej.Reason))
	}
	r.totalQueries = len(plan)

	if len(plan) == 0 {
		c.recordError(r, "query plan is empty after planning and security filtering")
	}

	c.transition(r, models.StatusFetching, c.progressPercent(r), "fetching from sources")

	// tb accumulates C11's per-subject event log throughout the pipelined
	// fetch/parse stage below, keyed by invID since the eventual resolved
	// primary-subject entity ID isn't known until resolution completes.
	tb := timeline.New()

	// fetching, parsing, and resolving are pipelined: each query result is
	// parsed and normalized as it arrives rather than waiting for the
	// whole plan to drain, per §4.13.
	onProgress := func(qr scheduler.QueryResult) {
		r.mu.Lock()
		r.queriesExecuted++
		r.record.QueriesExecuted = r.queriesExecuted
		r.mu.Unlock()
		pct := c.progressPercent(r)

		if qr.Err != nil {
			c.recordError(r, fmt.Sprintf("query %s: %v", qr.Query.QueryID, qr.Err))
		}

		baseConfidence := c.connectorConfidence(qr.Connector)
		geoHint := seed.SubjectIdentifiers.GeographicHints

		for _, raw := range qr.Results {
			candidates, _, _ := c.parser.Parse(raw)

			r.mu.Lock()
			r.rawByResultID[raw.ResultID()] = raw
			r.mu.Unlock()

			recordTimelineEvents(tb, invID, raw, baseConfidence)

			for _, cand := range candidates {
				ne := c.normalizer.Normalize(cand, geoHint, baseConfidence)

				r.mu.Lock()
				r.candidates = append(r.candidates, resolver.CandidateSource{
					Entity:               ne,
					SourceName:           qr.Connector,
					SourceBaseConfidence: baseConfidence,
				})
				r.candidateRefs[cand.CandidateID] = cand.SourceRefs
				r.roundCandidates = append(r.roundCandidates, cand)
				r.mu.Unlock()
			}
		}

		c.publish(r, models.StatusFetching, pct, "")
	}

	// Round 1 drains the seed-derived plan; rounds 2..max_search_depth
	// re-invoke the planner over the identifiers each round discovered,
	// per §4.5's depth control. Queries already executed in an earlier
	// round never re-run: their deterministic IDs are tracked across
	// rounds.
	executed := make(map[string]bool, len(plan))
	queries := plan
	for depth := 1; len(queries) > 0; depth++ {
		for _, q := range queries {
			executed[q.QueryID] = true
		}
		c.scheduler.Run(ctx, queries, onProgress)

		if ctx.Err() != nil || depth >= seed.Constraints.MaxSearchDepth {
			break
		}

		followups, rejectedNext := c.planner.Expand(r.takeRoundCandidates(), depth+1)
		for _, rej := range rejectedNext {
			c.recordError(r, fmt.Sprintf("rejected query %q: %s", rej.QueryString, rej.Reason))
		}
		var next []models.Query
		for _, q := range followups {
			if executed[q.QueryID] {
				continue
			}
			next = append(next, q)
		}
		queries = next
		r.mu.Lock()
		r.totalQueries += len(next)
		r.mu.Unlock()
	}

	cancelled := errors.Is(ctx.Err(), context.Canceled)
	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
	partial := cancelled || timedOut
	if timedOut {
		c.recordError(r, "timeout")
	}

	c.transition(r, models.StatusResolving, c.progressPercent(r), "resolving entities")

	res := c.resolver.Resolve(r.candidates, seed.Thresholds)
	if c.cfg.Telemetry != nil {
		c.cfg.Telemetry.ObserveResolution(len(res.Resolved), len(res.Ambiguous))
	}

	g := graph.New()
	coOccurrences := resolver.BuildCoOccurrences(res.Resolved, r.candidateRefs)
	resolver.ApplyToGraph(g, res.Resolved, coOccurrences)

	r.mu.Lock()
	r.record.EntitiesFound = len(res.Resolved)
	r.mu.Unlock()

	c.transition(r, models.StatusReporting, c.progressPercent(r), "assembling report")

	rpt := c.reporter.Generate(report.Input{
		InvestigationID:  invID,
		SubjectName:      seed.SubjectIdentifiers.FullName,
		Partial:          partial,
		ResolvedEntities: res.Resolved,
		SourceRefsByID:   c.buildSourceRefs(r, res.Resolved),
		Timeline:         tb,
		SubjectID:        invID,
		Graph:            g,
	})
	// Generate itself is a pure function of its input; the emission
	// timestamp is stamped here so that stays true.
	rpt.GeneratedAt = time.Now()

	r.mu.Lock()
	r.record.Report = &rpt
	r.record.Partial = partial
	r.mu.Unlock()

	if cancelled {
		return c.cancelled(r)
	}
	return c.complete(r)
}

// connectorConfidence looks up a connector's declared base_confidence,
// defaulting to a neutral 0.5 if the connector is unknown (it should
// never be, but this keeps Normalize total rather than panicking on a
// registry miss).
func (c *Coordinator) connectorConfidence(name string) float64 {
	if c.cfg.Registry == nil {
		return 0.5
	}
	conn, ok := c.cfg.Registry.Get(name)
	if !ok {
		return 0.5
	}
	return conn.BaseConfidence()
}

func (c *Coordinator) buildSourceRefs(r *run, resolved []models.ResolvedEntity) map[string][]models.SourceReference {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][]models.SourceReference, len(resolved))
	for _, re := range resolved {
		var refs []models.SourceReference
		seen := make(map[string]bool)
		for _, candidateID := range re.MemberCandidates {
			for _, resultID := range r.candidateRefs[candidateID] {
				if seen[resultID] {
					continue
				}
				seen[resultID] = true
				raw, ok := r.rawByResultID[resultID]
				if !ok {
					continue
				}
				refs = append(refs, models.SourceReference{
					SourceName:  raw.SourceName,
					URL:         raw.URL,
					ResultID:    resultID,
					RetrievedAt: raw.RetrievedAt,
					ContentHash: raw.ContentHash,
				})
			}
		}
		out[re.EntityID] = refs
	}
	return out
}

// progressPercent maps the investigation's stage to a percentage. Created,
// planning, reporting and terminal stages return fixed values; in between,
// the fetch share grows with queries_executed/total. The number of
// entities resolved is not part of the computation.
func (c *Coordinator) progressPercent(r *run) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.record.Status {
	case models.StatusCreated:
		return 0
	case models.StatusPlanning:
		return weightPlanning / 2
	case models.StatusReporting:
		return weightPlanning + weightFetch + weightResolve
	case models.StatusCompleted, models.StatusFailed, models.StatusCancelled:
		return 100
	}

	fetchFraction := 0.0
	if r.totalQueries > 0 {
		fetchFraction = float64(r.queriesExecuted) / float64(r.totalQueries)
	}
	pct := weightPlanning + int(float64(weightFetch)*fetchFraction)
	if pct > weightPlanning+weightFetch {
		pct = weightPlanning + weightFetch
	}
	return pct
}

// transition moves the investigation to a new stage, updates the record,
// and publishes a non-critical progress event.
func (c *Coordinator) transition(r *run, status models.Status, pct int, message string) {
	r.mu.Lock()
	r.record.Status = status
	r.record.CurrentStage = status
	r.record.ProgressPercentage = pct
	r.record.UpdatedAt = time.Now()
	r.mu.Unlock()

	c.publish(r, status, pct, message)
}

func (c *Coordinator) publish(r *run, status models.Status, pct int, message string) {
	if c.hub == nil {
		return
	}
	r.mu.Lock()
	invID := r.record.InvestigationID
	r.mu.Unlock()

	c.hub.Publish(models.ProgressEvent{
		InvestigationID: invID,
		Status:          status,
		ProgressPercent: pct,
		Message:         message,
		Critical:        status.Terminal(),
		EmittedAt:       time.Now(),
	})
}

// recordError appends an error to the record's error log, trimmed to the
// coordinator's working-set limit (§ bounded memory for long-running
// investigations) so a noisy connector can't grow the log without bound.
func (c *Coordinator) recordError(r *run, msg string) {
	r.mu.Lock()
	r.record.Errors = c.workingSet.TrimErrors(append(r.record.Errors, msg))
	r.mu.Unlock()
}

// fail transitions directly to the failed terminal state, used for
// up-front validation failures that never reach planning.
func (c *Coordinator) fail(r *run, err error) models.InvestigationRecord {
	r.mu.Lock()
	r.record.Status = models.StatusFailed
	r.record.CurrentStage = models.StatusFailed
	r.record.Errors = c.workingSet.TrimErrors(append(r.record.Errors, err.Error()))
	now := time.Now()
	r.record.UpdatedAt = now
	r.record.CompletedAt = &now
	rec := r.record
	r.mu.Unlock()

	c.publish(r, models.StatusFailed, 100, err.Error())
	c.closeFeed(rec.InvestigationID)
	return rec
}

// closeFeed reports the feed's drop count and tears it down once the
// investigation is terminal.
func (c *Coordinator) closeFeed(investigationID string) {
	if c.hub == nil {
		return
	}
	if c.cfg.Telemetry != nil {
		c.cfg.Telemetry.ObserveProgressDropped(c.hub.Dropped(investigationID))
	}
	c.hub.Close(investigationID)
}

// complete transitions to the completed terminal state (partial or not)
// and tears down the progress feed.
func (c *Coordinator) complete(r *run) models.InvestigationRecord {
	r.mu.Lock()
	r.record.Status = models.StatusCompleted
	r.record.CurrentStage = models.StatusCompleted
	r.record.ProgressPercentage = 100
	now := time.Now()
	r.record.UpdatedAt = now
	r.record.CompletedAt = &now
	rec := r.record
	r.mu.Unlock()

	c.publish(r, models.StatusCompleted, 100, "investigation complete")
	c.closeFeed(rec.InvestigationID)
	return rec
}

// cancelled transitions to the cancelled terminal state: an explicit client
// cancel (ctx.Err() == context.Canceled, as opposed to a deadline timeout)
// ends the investigation here rather than as completed/partial, per the
// state diagram's separate cancelled branch and the invariant that a
// cancel delivered before any result arrives still yields a well-formed
// (possibly empty) report, never a failure.
func (c *Coordinator) cancelled(r *run) models.InvestigationRecord {
	r.mu.Lock()
	r.record.Status = models.StatusCancelled
	r.record.CurrentStage = models.StatusCancelled
	r.record.ProgressPercentage = 100
	now := time.Now()
	r.record.UpdatedAt = now
	r.record.CompletedAt = &now
	rec := r.record
	r.mu.Unlock()

	c.publish(r, models.StatusCancelled, 100, "investigation cancelled")
	c.closeFeed(rec.InvestigationID)
	return rec
}

// Cancellation is the caller's responsibility: Run takes ctx from its
// caller, so cancelling that ctx (e.g. a context.WithCancel the caller
// holds onto, keyed by investigation_id) propagates to the scheduler and
// every in-flight connector call for free, since scheduler.Run and every
// connector already honor ctx.Done() within the 2s budget (§5). The
// coordinator itself holds no registry of running investigations to
// cancel by ID; a caller that wants that (an HTTP DELETE handler, say)
// owns that mapping itself.
// recordTimelineEvents feeds C11 from one raw result: every date
// ExtractDates finds in the result's content becomes a TimelineEvent,
// categorized from keywords in its title and body and attributed to the
// source that produced it, per §4.9/§4.11.
func recordTimelineEvents(tb *timeline.Builder, subjectID string, raw models.RawResult, baseConfidence float64) {
	text := string(raw.Content)
	dates := timeline.ExtractDates(text)
	if len(dates) == 0 {
		return
	}

	title := raw.Title
	if title == "" {
		title = raw.SourceName + " result"
	}
	category := timeline.ClassifyCategory(title + " " + text)

	for _, d := range dates {
		tb.AddEvent(subjectID, category, title, d.Date, d.Precision, baseConfidence, []string{raw.ResultID()}, nil)
	}
}
