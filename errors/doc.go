// Package errors provides the structured error type used by the scalewire
// decode engine.
//
// Errors are categorized by Kind and carry a path of Location frames
// describing where inside a nested value the decode failed. The path is
// built lazily: nothing is recorded while a decode succeeds, frames are
// attached only as an error unwinds back through the enclosing fields,
// variants and indices.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.KindWrongLength).
//		Detail("value has %d items, target wants %d", 3, 4).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotEnoughInput(4, 2)
//	err := errors.VariantNotFound(5, "Option")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
