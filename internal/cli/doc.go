// Package cli is the command dispatcher for the review binary.
//
// Parse turns raw argument tokens into an immutable ExecutionArgs value;
// a Dispatcher then resolves credentials, picks the target repository and
// runs either the pull-request listing flow or the review flow, returning a
// process exit code. Only the config subcommands go through cobra; every
// other invocation is handed to Parse so the optional-value --out grammar
// is preserved.
package cli
