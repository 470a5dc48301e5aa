package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"retrievalagent/carbon"
	"retrievalagent/enrichment"
	"retrievalagent/geo"
	"retrievalagent/interests"
	"retrievalagent/places"
	"retrievalagent/quality"
	"retrievalagent/requirements"
	"retrievalagent/websearch"
	"retrievalagent/websearch/types"
)

const tracerName = "retrievalagent/retrieval"

// Options зависимости контроллера
type Options struct {
	Provider  types.PlaceProvider
	Partition *geo.Partition
	Config    Config
	Mapper    interests.Mapper
	Advisor   Advisor
	Enricher  *enrichment.Enricher
	Scorer    *carbon.Scorer
	// Cache конфигурация кэша ответов; кэш создается заново на каждый запуск
	Cache       *websearch.CacheConfig
	RetryDelays []time.Duration
	Sleep       websearch.SleepFunc
	Logger      *slog.Logger
	// NewRunID генератор идентификаторов запусков
	NewRunID func() string
}

// Controller адаптивный контроллер поиска.
// Не хранит состояние между запусками: каждый Run владеет своим хранилищем,
// журналом итераций и кэшем клиента.
type Controller struct {
	provider    types.PlaceProvider
	partition   *geo.Partition
	config      Config
	mapper      interests.Mapper
	advisor     Advisor
	enricher    *enrichment.Enricher
	scorer      *carbon.Scorer
	cache       *websearch.CacheConfig
	retryDelays []time.Duration
	sleep       websearch.SleepFunc
	logger      *slog.Logger
	newRunID    func() string
}

// Result итог запуска
type Result struct {
	RunID      string                   `json:"run_id"`
	Candidates []places.Candidate       `json:"candidates"`
	History    []Iteration              `json:"history"`
	Verdict    quality.Verdict          `json:"verdict"`
	Decision   quality.Decision         `json:"decision"`
	Targets    quality.Targets          `json:"targets"`
	Categories map[places.Kind][]string `json:"categories"`
	StoreSize  int                      `json:"store_size"`
	Cancelled  bool                     `json:"cancelled"`
	Duration   time.Duration            `json:"duration"`
}

// NewController создает контроллер
func NewController(opts Options) (*Controller, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("place provider is required")
	}
	config := opts.Config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if opts.Partition == nil {
		opts.Partition = geo.SingaporePartition()
	}
	if opts.Mapper == nil {
		opts.Mapper = interests.NewKeywordMapper(nil)
	}
	if opts.Scorer == nil {
		opts.Scorer = carbon.DefaultScorer()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}

	return &Controller{
		provider:    opts.Provider,
		partition:   opts.Partition,
		config:      config,
		mapper:      opts.Mapper,
		advisor:     opts.Advisor,
		enricher:    opts.Enricher,
		scorer:      opts.Scorer,
		cache:       opts.Cache,
		retryDelays: opts.RetryDelays,
		sleep:       opts.Sleep,
		logger:      opts.Logger,
		newRunID:    opts.NewRunID,
	}, nil
}

// Config возвращает действующую конфигурацию
func (c *Controller) Config() Config {
	return c.config
}

// Run выполняет один запуск для требований.
// Ошибки источника не прерывают запуск; ошибка возвращается только для
// отсутствующих требований.
func (c *Controller) Run(ctx context.Context, req *requirements.Requirement) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("requirement is required")
	}
	started := time.Now()
	runID := c.newRunID()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "retrieval.Run")
	defer span.End()
	span.SetAttributes(attribute.String("retrieval.run_id", runID))

	r := c.newRun(runID, req)
	defer r.cache.Close()

	r.logger.Info("retrieval run started",
		"pace", req.Pace,
		"duration_days", req.DurationDays,
		"neighborhood", req.Neighborhood,
		"targets", r.targets,
		"categories", r.plan.Categories,
		"defaulted", r.plan.Defaulted)
	if len(req.Warnings) > 0 {
		r.logger.Warn("requirement has ignored details", "warnings", req.Warnings)
	}

	verdict := r.loop(ctx)

	r.state = StateFinalizing
	finalists := r.finalize()
	if c.enricher != nil {
		finalists = c.enricher.Enrich(ctx, finalists)
	}
	finalists = c.scorer.ScoreAll(finalists)

	result := &Result{
		RunID:      runID,
		Candidates: finalists,
		History:    r.history,
		Verdict:    verdict,
		Decision:   verdict.Decision,
		Targets:    r.targets,
		Categories: r.plan.Categories,
		StoreSize:  r.store.Len(),
		Cancelled:  r.cancelled,
		Duration:   time.Since(started),
	}

	span.SetAttributes(
		attribute.String("retrieval.decision", string(result.Decision)),
		attribute.Int("retrieval.iterations", len(result.History)),
		attribute.Int("retrieval.candidates", len(result.Candidates)),
	)
	r.logger.Info("retrieval run finished",
		"decision", result.Decision,
		"iterations", len(result.History),
		"store_size", result.StoreSize,
		"finalists", len(result.Candidates),
		"duration", result.Duration)

	return result, nil
}

// run состояние одного запуска
type run struct {
	c         *Controller
	id        string
	req       *requirements.Requirement
	plan      interests.Plan
	targets   quality.Targets
	store     *places.Store
	cache     *websearch.Cache
	client    *websearch.Client
	evaluator *quality.Evaluator
	logger    *slog.Logger

	state         State
	globalStep    int
	thresholds    map[places.Kind]float64
	clusterRadius map[string]float64
	clusterKinds  map[string][]places.Kind
	retargets     map[string]int
	history       []Iteration
	cancelled     bool
}

func (c *Controller) newRun(runID string, req *requirements.Requirement) *run {
	logger := c.logger.With("run_id", runID)
	plan := interests.BuildPlan(c.mapper, req.Interests, req.Uninterests, req.DietaryPreferences, logger)

	cacheConfig := c.cache
	if cacheConfig == nil {
		cacheConfig = &websearch.CacheConfig{Enabled: true, TTL: time.Hour}
	}
	cache := websearch.NewCache(cacheConfig)

	return &run{
		c:       c,
		id:      runID,
		req:     req,
		plan:    plan,
		targets: c.config.Targets.Compute(req),
		store:   places.NewStore(c.partition),
		cache:   cache,
		client: websearch.NewClient(websearch.ClientConfig{
			Provider:    c.provider,
			Cache:       cache,
			RetryDelays: c.retryDelays,
			Sleep:       c.sleep,
			Logger:      logger,
		}),
		evaluator: quality.NewEvaluator(quality.Config{
			BalanceFactor: c.config.BalanceFactor,
			MaxIterations: c.config.MaxIterations,
		}, plan),
		logger:        logger,
		state:         StateInit,
		thresholds:    copyThresholds(c.config.InitialThresholds),
		clusterRadius: make(map[string]float64),
		clusterKinds:  make(map[string][]places.Kind),
		retargets:     make(map[string]int),
	}
}

// loop цикл SEARCHING → EVALUATING до терминального решения
func (r *run) loop(ctx context.Context) quality.Verdict {
	verdict := r.evaluator.Evaluate(r.store, r.targets, 0)

	for !verdict.Decision.Terminal() {
		r.state = StateSearching
		it := r.search(ctx, verdict)

		r.state = StateEvaluating
		verdict = r.evaluator.Evaluate(r.store, r.targets, len(r.history)+1)

		if verdict.Decision == quality.DecisionContinue {
			switch {
			case ctx.Err() != nil:
				r.cancelled = true
				verdict.Decision = quality.DecisionBudgetExhausted
				r.logger.Warn("retrieval run cancelled, finalizing", "error", ctx.Err())
			default:
				if relaxation, ok := r.relax(ctx, verdict, it.Number); ok {
					it.Relaxation = &relaxation
				} else {
					verdict.Decision = quality.DecisionBudgetExhausted
					r.logger.Info("nothing left to relax, finalizing")
				}
			}
		}
		it.Decision = verdict.Decision
		r.history = append(r.history, it)

		r.logger.Info("retrieval iteration evaluated",
			"iteration", it.Number,
			"radius_km", it.RadiusKm,
			"queries", len(it.Queries),
			"added", it.CandidatesAdded,
			"failures", it.Failures,
			"counts", verdict.CountsByKind,
			"coverage_gap", verdict.CoverageGap,
			"relevance", verdict.RelevanceScore,
			"decision", verdict.Decision,
			"relaxation", relaxationString(it.Relaxation))
	}
	return verdict
}

func relaxationString(r *Relaxation) string {
	if r == nil {
		return ""
	}
	return r.String() + " (" + r.Source + ")"
}

// globalRadius текущий глобальный радиус
func (r *run) globalRadius() float64 {
	return r.c.config.GlobalRadiiKm[r.globalStep]
}

// clusterRadiusFor радиус запроса для пары (тип, кластер)
func (r *run) clusterRadiusFor(clusterID string, kind places.Kind) float64 {
	global := r.globalRadius()
	local, ok := r.clusterRadius[clusterID]
	if !ok || local <= global {
		return global
	}
	for _, k := range r.clusterKinds[clusterID] {
		if k == kind {
			return local
		}
	}
	return global
}
