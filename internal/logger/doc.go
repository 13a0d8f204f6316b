// Package logger wraps zap for the assembler:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and a verbosity switch driven by configuration,
//   - a Redactor that hides secrets before command lines reach the log.
//
// Every pipeline stage receives a context and extracts the logger from it,
// so log lines carry the name of the stage that produced them.
package logger
