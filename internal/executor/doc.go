// Package executor builds, sends and decodes one upstream HTTP call per
// endpoint invocation.
//
// A call runs in a fixed order: auth resolution, path expansion, query
// serialization, header merging, credential application, body encoding, then
// the send loop. The send loop is a small state machine
// (attempt, evaluate, sleep, done) that retries 429 responses according to the
// resolved RetryPolicy. Sleeper, clock and jitter source are injectable:
//
//	exec := executor.New(registry, auth.NewResolver(tokens), env,
//		executor.WithSleeper(executor.SleeperFunc(func(time.Duration) {})),
//		executor.WithRandom(func() float64 { return 0.5 }),
//	)
//
// Upstream statuses are never errors. Only construction problems, timeouts and
// transport failures return a REQUEST_ERROR.
package executor
