/*
Package workers sizes and enforces encoder concurrency.

# Sizing

When running in a container the number of usable CPUs may be limited by
cgroup constraints. Go 1.19+ sets GOMAXPROCS from the container CPU limit,
while runtime.NumCPU still reports the host count, so sizing is based on
GOMAXPROCS:

	slots := workers.ForCPU(8) // one encode per CPU, at most 8

The COMPRESS_WORKERS environment variable overrides the calculation:

	env:
	- name: COMPRESS_WORKERS
	  value: "2"

# Encode Slots

Each compression runs a native encoder that will happily use every core it
is given. Pool is a counting semaphore shared by all sessions so the process
never runs more encodes than it has slots:

	pool := workers.NewPool(workers.ForCPU(8))

	if err := pool.Acquire(ctx); err != nil {
		return err // ctx cancelled while waiting
	}
	defer pool.Release()

Slot usage is exported through the encode slot metrics.
*/
package workers
