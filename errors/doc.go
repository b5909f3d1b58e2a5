// Package errors provides structured error types for the bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The kinds that matter at the guest boundary are:
//
//	invalid_handle        lookup against a handle that is not live
//	out_of_bounds         memory offset or length past the buffer
//	unsupported_encoding  invalid UTF-8 or an unknown field primitive
//	allocation            the guest allocator could not satisfy a request
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindUnsupportedEncoding).
//		Path("pointer_move", "x").
//		Type("string").
//		Detail("field values must be numeric").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle("texture", 7)
//	err := errors.OutOfBounds(errors.PhaseMemory, 65530, 12, 65536)
//
// Kind-only sentinels (ErrInvalidHandle, ErrOutOfBounds, ...) match any
// phase with the standard errors.Is.
package errors
