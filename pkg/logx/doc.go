// Package logx configures homecmd's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Sinks swappable at runtime via Service.Apply (config hot reload)
package logx
