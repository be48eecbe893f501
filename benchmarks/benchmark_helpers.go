// Package benchmarks measures parallel.Map, pipelines and the pool options
// against a sequential baseline.
package benchmarks

import (
	"context"
	"slices"
	"time"

	"github.com/utkarsh5026/parmap/pool"
)

// cpuBoundWork simulates a CPU-intensive operation
func cpuBoundWork(iterations int) pool.ProcessFunc[int, int] {
	return func(ctx context.Context, task int) (int, error) {
		result := 0
		for i := range iterations {
			result += i * task
		}
		return result, nil
	}
}

// ioBoundWork simulates an I/O operation with a delay
func ioBoundWork(delay time.Duration) pool.ProcessFunc[int, int] {
	return func(ctx context.Context, task int) (int, error) {
		select {
		case <-time.After(delay):
			return task * 2, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// mixedWork simulates a realistic workload with variable processing time
func mixedWork() pool.ProcessFunc[int, int] {
	return func(ctx context.Context, task int) (int, error) {
		time.Sleep(time.Duration(task%10) * time.Millisecond)

		result := 0
		for i := range 1000 {
			result += i
		}
		return result + task, nil
	}
}

func makeTasks(n int) []int {
	tasks := make([]int, n)
	for i := range tasks {
		tasks[i] = i
	}
	return tasks
}

// percentile returns the p-quantile (0..1) of latencies.
func percentile(latencies []time.Duration, p float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	index := min(int(float64(len(sorted))*p), len(sorted)-1)
	return sorted[index]
}
