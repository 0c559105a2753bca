// Package cli implements the vitals command-line interface.
//
// # Command Structure
//
//	vitals serve              - HTTP API over the monitoring core
//	vitals watch [target]     - live terminal dashboard for one host
//	vitals snapshot <target>  - one or more snapshots as JSON or YAML
//	vitals doctor [target]    - config, SSH, and remote tool diagnostics
//	vitals version            - build information
//
// A target is user@host[:port], an ~/.ssh/config alias, or the name of a
// host profile in vitals.yaml.
//
// # Flag Handling
//
// Global flags (--config, --log-level, --no-color) live on the root command.
// setupGlobals runs before every command except version: it loads and
// validates the config, applies flag overrides, and builds the logger.
// doctor carries on with defaults when that fails and reports why.
//
// Each command owns its Registry and closes every session on the way out,
// including when SIGINT or SIGTERM cancels the command context.
package cli
