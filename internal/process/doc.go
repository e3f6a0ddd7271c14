// Package process spawns child processes from a reusable launcher.
//
// A Launcher binds one binary, a fixed list of base arguments and a
// SpawnConfig. Each run starts one child:
//   - RunWithArgs appends per-call arguments to the base arguments
//   - RunWithInput writes text to the child's stdin and closes it
//   - Run dispatches on an Input built with Args or Text
//
// Runs never block. Standard output and standard error are collected in
// arrival order and handed to the CompletionFunc once the child exits. Any
// stderr output marks the run as failed: Result.Err is then a *StderrError
// carrying the text, even when the exit code is 0. A child that cannot be
// started reports a *SpawnError instead.
//
// Every running child is tracked by its launcher until it exits. Kill
// drains that registry and sends each child a termination signal.
//
// Example:
//
//	cat := process.MustNew("cat", nil, nil)
//	cat.RunWithInput("hello\n", cat.LogFunc())
//	cat.Wait()
//
// Output is buffered in memory with no size cap, so long-running or chatty
// children should stream to an inherited descriptor instead (StreamInherit).
package process
