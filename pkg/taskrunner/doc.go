// Package taskrunner is the public entry point for running jobs. It exposes the
// `Executor` interface plus helpers (`Factory`, `Resolve`, `BuildDependencies`)
// so the CLI can wire zap, the event reporter, and the process runner once,
// while tests swap in fakes. `Run` and `ExitCode` cover the common case of
// running a configuration with OS-backed defaults.
package taskrunner
