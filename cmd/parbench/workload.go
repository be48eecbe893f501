package main

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// workloadFunc is applied to every item. It maps uint64 to uint64 so that
// any number of stages can be chained.
type workloadFunc func(uint64) uint64

func lookupWorkload(name string) (workloadFunc, error) {
	switch name {
	case "primes":
		return primes, nil
	case "collatz":
		return collatz, nil
	case "hash":
		return hash, nil
	default:
		return nil, fmt.Errorf("unknown workload %q", name)
	}
}

// primes counts the primes up to 1000 + v%2000 by trial division.
func primes(v uint64) uint64 {
	limit := 1000 + v%2000
	var count uint64
	for n := uint64(2); n <= limit; n++ {
		prime := true
		for d := uint64(2); d*d <= n; d++ {
			if n%d == 0 {
				prime = false
				break
			}
		}
		if prime {
			count++
		}
	}
	return count
}

// collatz returns the number of steps for v%100000 + 1 to reach 1.
func collatz(v uint64) uint64 {
	n := v%100000 + 1
	var steps uint64
	for n != 1 {
		if n%2 == 0 {
			n /= 2
		} else {
			n = 3*n + 1
		}
		steps++
	}
	return steps
}

// hash chains 64 rounds of SHA-256 over v and returns the leading 8 bytes.
func hash(v uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	sum := sha256.Sum256(buf[:])
	for range 63 {
		sum = sha256.Sum256(sum[:])
	}
	return binary.LittleEndian.Uint64(sum[:8])
}

// inputs returns the seeds 0..n-1.
func inputs(n int) []uint64 {
	items := make([]uint64, n)
	for i := range items {
		items[i] = uint64(i)
	}
	return items
}

// checksum folds results in order, so a reordering changes the value.
func checksum(values []uint64) uint64 {
	var sum uint64 = 1469598103934665603
	for _, v := range values {
		sum ^= v
		sum *= 1099511628211
	}
	return sum
}

// sequential computes the reference output on the calling goroutine.
func sequential(fn workloadFunc, stages int, items []uint64) []uint64 {
	out := make([]uint64, len(items))
	for i, v := range items {
		for range stages {
			v = fn(v)
		}
		out[i] = v
	}
	return out
}
