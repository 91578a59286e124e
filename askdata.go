// Package askdata answers natural-language questions about two tabular
// datasets.
//
// A query runs through three stages:
//
//	translator.Synthesizer  question + column names -> Starlark script (or JSON plan)
//	engine.Executor         script + datasets       -> filtered table
//	translator.Interpreter  question + table        -> prose answer
//
// pipeline.Pipeline runs the stages in order and stops at the first failure.
// server exposes the pipeline as POST /query; cmd/askdata is the CLI.
//
// Usage:
//
//	p, err := pipeline.New(pipeline.Datasets{A: patients, B: activity},
//	    translator.NewSynthesizer(provider),
//	    engine.NewScriptExecutor(engine.WithTimeout(5*time.Second)),
//	    translator.NewInterpreter(provider),
//	)
//	ans, err := p.Run(ctx, "Which smokers are older than 40?")
//
// Generated code never touches the host: scripts run in an embedded
// Starlark interpreter with no file, network or module access.
package askdata
