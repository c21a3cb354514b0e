package job

import "context"

// Executor runs the analyze and transpile steps. Implementations never
// return an error: every failure mode is folded into the Result so callers
// handle one shape regardless of strategy.
//
// Two implementations exist, selected by configuration at construction
// time: RemoteExecutor submits jobs to the backend service over HTTP and
// LocalExecutor shells out to the migration CLI on this host.
type Executor interface {
	Analyze(ctx context.Context, req AnalyzeRequest) Result
	Transpile(ctx context.Context, req TranspileRequest) Result
}
