package cli

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/askdata/engine"
	"github.com/spektr-org/askdata/llm"
	"github.com/spektr-org/askdata/pipeline"
	"github.com/spektr-org/askdata/schema"
	"github.com/spektr-org/askdata/table"
	"github.com/spektr-org/askdata/translator"
)

// newProvider builds the language model client. Tests replace it.
var newProvider = llm.New

// loadDatasets reads both datasets concurrently.
func (a *app) loadDatasets(ctx context.Context) (pipeline.Datasets, error) {
	var data pipeline.Datasets
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := table.Load(gctx, engine.BindingA, a.cfg.Datasets.A)
		data.A = t
		return err
	})
	g.Go(func() error {
		t, err := table.Load(gctx, engine.BindingB, a.cfg.Datasets.B)
		data.B = t
		return err
	})
	if err := g.Wait(); err != nil {
		return pipeline.Datasets{}, err
	}
	a.logger.Info("datasets loaded",
		"a", a.cfg.Datasets.A.String(), "a_rows", data.A.Len(),
		"b", a.cfg.Datasets.B.String(), "b_rows", data.B.Len())
	return data, nil
}

// newExecutor builds the executor selected by executor.mode.
func (a *app) newExecutor() (engine.Executor, error) {
	mode, err := engine.ParseMode(a.cfg.Executor.Mode)
	if err != nil {
		return nil, err
	}
	opts := append(a.cfg.ExecutorOptions(), engine.WithLogger(a.logger))
	return engine.New(mode, opts...)
}

// newPipeline wires provider, translator and executor to data. The returned
// func releases the provider.
func (a *app) newPipeline(ctx context.Context, data pipeline.Datasets) (*pipeline.Pipeline, func(), error) {
	if err := a.cfg.RequireLLM(); err != nil {
		return nil, nil, err
	}
	mode, err := engine.ParseMode(a.cfg.Executor.Mode)
	if err != nil {
		return nil, nil, err
	}
	provider, err := newProvider(ctx, a.cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm provider: %w", err)
	}
	release := func() {
		if c, ok := provider.(io.Closer); ok {
			_ = c.Close()
		}
	}

	exec, err := a.newExecutor()
	if err != nil {
		release()
		return nil, nil, err
	}

	topts := []translator.Option{
		translator.WithLogger(a.logger),
		translator.WithMode(mode),
		translator.WithJoinKey(a.cfg.Datasets.JoinKey),
	}
	popts := []pipeline.Option{pipeline.WithLogger(a.logger)}
	switch {
	case a.cfg.Datasets.SchemaPrompts && a.cfg.Datasets.RefineSchema:
		pa, pb := a.profiles(ctx, provider, data)
		popts = append(popts, pipeline.WithProfiles(pa, pb))
	case a.cfg.Datasets.SchemaPrompts:
		popts = append(popts, pipeline.WithSchemaPrompts())
	}

	p, err := pipeline.New(data,
		translator.NewSynthesizer(provider, topts...),
		exec,
		translator.NewInterpreter(provider, topts...),
		popts...)
	if err != nil {
		release()
		return nil, nil, err
	}
	return p, release, nil
}

// profiles profiles both datasets and, when p is set, refines them with the
// model. A failed refine keeps the heuristic profile.
func (a *app) profiles(ctx context.Context, p llm.Provider, data pipeline.Datasets) (schema.Config, schema.Config) {
	pa, pb := schema.Profile(data.A), schema.Profile(data.B)
	if p == nil {
		return pa, pb
	}
	pa, _ = schema.Refine(ctx, p, pa, a.logger)
	pb, _ = schema.Refine(ctx, p, pb, a.logger)
	return pa, pb
}
