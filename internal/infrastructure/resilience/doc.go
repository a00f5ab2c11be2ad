/*
Package resilience provides a circuit breaker for shell spawning.

# Overview

Starting a PTY can fail repeatedly when the host is out of file descriptors,
the configured shell is missing or the process table is full. The breaker
stops hammering the host in that state: after enough consecutive failures
it opens and rejects spawns immediately until a cool-down elapses, then lets
a single probe through.

# Usage

	breaker := resilience.New("spawn", resilience.Settings{
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Breaker state changed", zap.Stringer("to", to))
		},
	})

	proc, err := resilience.Call(breaker, func() (terminal.Process, error) {
		return spawner.Spawn(spec)
	})

# States

	Closed --[MaxFailures consecutive]-> Open --[Timeout]-> HalfOpen
	   ^                                                      |
	   +------------------[probe succeeds]--------------------+
	                       [probe fails] -> Open
*/
package resilience
