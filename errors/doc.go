// Package errors provides standardized error handling for streamkit.
//
// # Classification
//
// Errors fall into three classes:
//
//   - Transient: I/O failures (timeouts, resets, refused connections). A stream
//     that surfaces one stops generating or writing, but keeps its buffered data.
//   - Invalid: API misuse and malformed input. Every stream contract violation
//     (push after EOF, write after end, a completion reported twice) wraps
//     ErrContractViolation and is Invalid.
//   - Fatal: unrecoverable conditions. The event loop stops when a task panics or
//     when an unhandled stream error is escalated.
//
// # Wrapping
//
// All wrapping follows the format
//
//	"component.method: action failed: %w"
//
// via Wrap, WrapTransient, WrapInvalid and WrapFatal:
//
//	if err != nil {
//	    return errors.WrapTransient(err, "Socket", "Connect", "dial "+addr)
//	}
//
// Contract violations are detected with IsContractViolation:
//
//	s.OnError(func(err error) {
//	    if errors.IsContractViolation(err) {
//	        // programming error in the producer or consumer
//	    }
//	})
package errors
