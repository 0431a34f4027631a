// Package errors provides the structured error type shared by spacs packages.
// Local failures (payload serialization, response validation, registry state)
// are reported as *AppError values carrying a machine-readable code, so callers
// can branch with IsCode / IsSerialization / IsValidation instead of matching
// on message text.
package errors
