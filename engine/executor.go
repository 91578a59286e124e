package engine

// ============================================================================
// EXECUTOR: Mode dispatcher
// ============================================================================
// Entry point: New(mode, opts...)
//
//	script  Starlark program, table values bound as data_a / data_b
//	plan    JSON filter plan, validated before evaluation
//
// Neither executor calls an AI service. All computation is local and
// bounded by WithTimeout; scripts are also bounded by WithMaxSteps.
// ============================================================================

// New returns the executor for mode.
func New(mode Mode, opts ...Option) (Executor, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	if mode == ModePlan {
		return NewPlanExecutor(opts...), nil
	}
	return NewScriptExecutor(opts...), nil
}
