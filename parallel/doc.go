// Package parallel runs a function over every element of a slice using a
// bounded pool of workers, and chains such runs into multi-stage pipelines.
//
// Map applies one function to every element and returns the results in
// input order. RunPipeline and Pipeline apply a list of functions, one stage
// at a time: every element finishes stage i before any element enters stage
// i+1, so a failing stage never leaves partial results for later stages.
//
//	squares, err := parallel.Map(ctx, parallel.Adapt(func(x int) int { return x * x }),
//	    []int{1, 2, 3, 4})
//	// squares: [1 4 9 16]
//
//	out, err := parallel.RunPipeline(ctx, []pool.ProcessFunc[int, int]{
//	    parallel.Adapt(func(x int) int { return x * x }),
//	    parallel.Adapt(func(x int) int { return x + 1 }),
//	}, []int{1, 2, 3})
//	// out: [2 5 10]
//
// Both entry points accept the pool options (pool.WithWorkerCount and
// friends). Workers are created per call and always stopped before the call
// returns. The first failing element aborts the call and its error is
// returned unchanged; see package pool for the details.
package parallel
