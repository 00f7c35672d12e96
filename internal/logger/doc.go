// Package logger wraps zap with:
//   - a global sugared logger writing console lines to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and configuration.
//
// Stdout is left to probe results; every diagnostic goes through here.
package logger
