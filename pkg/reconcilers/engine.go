package reconcilers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/praetorian-inc/asea-lza/pkg/cascade"
	"github.com/praetorian-inc/asea-lza/pkg/config"
	"github.com/praetorian-inc/asea-lza/pkg/graph"
	"github.com/praetorian-inc/asea-lza/pkg/inventory"
	"github.com/praetorian-inc/asea-lza/pkg/mapping"
	"github.com/praetorian-inc/asea-lza/pkg/params"
	"github.com/praetorian-inc/asea-lza/pkg/resolver"
	"github.com/praetorian-inc/asea-lza/pkg/template"
	"github.com/praetorian-inc/asea-lza/pkg/types"
)

type Options struct {
	Config   *config.Config
	Mappings *types.Mappings
	// Files serves resource files and, through FileSource, templates.
	Files mapping.Source
	// Templates is consulted before Files for stack templates. Optional.
	Templates   template.Source
	Reconcilers []Reconciler
	Partition   string
	PolicyArns  map[string]string
	Logger      *slog.Logger
}

// Engine reconciles legacy stacks one at a time, in phase order.
type Engine struct {
	cfg         *config.Config
	mappings    *types.Mappings
	reconcilers []Reconciler
	partition   string
	policyArns  map[string]string
	logger      *slog.Logger

	inventory *inventory.Loader
	graphs    *graph.Loader
	resolver  *resolver.Resolver
	params    *params.Aggregator
	cascade   *cascade.Calculator
	paths     params.Paths
}

// Result holds the outputs of one run.
type Result struct {
	RunID     uuid.UUID                     `json:"runId"`
	StartedAt time.Time                     `json:"startedAt"`
	Stacks    int                           `json:"stacks"`
	Mappings  []types.ResourceMappingEntry  `json:"resourceMapping"`
	Deletions []types.DeletionFlag          `json:"deletions"`
	Templates map[string]*template.Template `json:"-"`
}

func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	partition := opts.Partition
	if partition == "" {
		partition = "aws"
	}
	recs := opts.Reconcilers
	if recs == nil {
		recs = All()
	}

	sources := template.Chain{opts.Templates, template.FileSource{Files: opts.Files}}
	loader := inventory.NewLoader(opts.Files, nil)

	prefix := ""
	if opts.Config != nil && opts.Config.Global != nil {
		prefix = opts.Config.Global.SsmParameterPrefix
	}

	return &Engine{
		cfg:         opts.Config,
		mappings:    opts.Mappings,
		reconcilers: recs,
		partition:   partition,
		policyArns:  opts.PolicyArns,
		logger:      logger,
		inventory:   loader,
		graphs:      graph.NewLoader(sources, graph.New()),
		resolver:    resolver.New(opts.Mappings, loader, opts.Config),
		params:      params.NewAggregator(),
		cascade:     cascade.NewCalculator(logger),
		paths:       params.NewPaths(prefix),
	}
}

// Run reconciles every stack of the mapping table.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	return e.RunStacks(ctx, e.mappings.Sorted())
}

// RunStacks reconciles the given top-level stacks in order. Deletion flags
// already produced by an earlier run of the same engine are not repeated.
func (e *Engine) RunStacks(ctx context.Context, stacks []*types.StackMapping) (*Result, error) {
	result := &Result{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		Templates: make(map[string]*template.Template),
	}
	rec := newRecorder()

	for _, stack := range stacks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.reconcileStack(ctx, stack, rec); err != nil {
			return nil, fmt.Errorf("%s: %w", stack.Key(), err)
		}
		result.Stacks++
	}

	for _, scope := range e.graphs.Graph().Scopes() {
		result.Templates[scope.Key()] = scope.Template()
	}
	result.Mappings = rec.mappings
	result.Deletions = rec.deletions
	e.logger.Info("reconciliation complete", "run", result.RunID, "stacks", result.Stacks, "mappings", len(result.Mappings), "deletions", len(result.Deletions))
	return result, nil
}

func (e *Engine) reconcileStack(ctx context.Context, stack *types.StackMapping, rec *recorder) error {
	store, err := e.inventory.Load(ctx, stack)
	if err != nil {
		return err
	}
	scope, err := e.graphs.Load(ctx, store)
	if err != nil {
		return err
	}

	accountName, ok := e.cfg.Accounts.AccountName(stack.AccountID)
	if !ok {
		accountName = stack.AccountKey
	}
	logger := e.logger.With("stack", stack.Key(), "phase", stack.Phase.String())
	logger.Info("reconciling stack", "account", accountName)

	rc := &Context{
		Stack:            stack,
		AccountName:      accountName,
		Store:            store,
		Scope:            scope,
		Graph:            e.graphs.Graph(),
		Resolver:         e.resolver,
		Params:           e.params,
		Paths:            e.paths,
		Cascade:          e.cascade,
		Config:           e.cfg,
		Partition:        e.partition,
		Pseudo:           types.NewPseudo(stack.AccountID, stack.Region, e.partition),
		PolicyArns:       e.policyArns,
		customerPolicies: make(map[string]localRef),
		groups:           make(map[string]localRef),
		rec:              rec,
	}

	for _, r := range e.reconcilers {
		md := r.Metadata()
		rc.Logger = logger.With("reconciler", md.Name)
		if !md.Handles(stack.Phase) {
			rc.Logger.Info("No " + md.Name + " to handle")
			continue
		}
		if err := r.Reconcile(ctx, rc); err != nil {
			return fmt.Errorf("%s: %w", md.Name, err)
		}
	}

	n, err := e.params.FlushAll(e.graphs.Graph())
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Debug("emitted parameters", "count", n)
	}
	return nil
}
