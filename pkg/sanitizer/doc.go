// Package sanitizer normalizes doctor and patient input before validation and
// storage.
//
// All functions are idempotent and never fail: unusable input comes back as
// an empty string so that the validator reports it as missing.
//
//   - Phone numbers: E.164, national numbers read in the configured default region
//   - Emails: trimmed and lowercased
//   - Names and notes: whitespace collapsed, trimmed
//   - Slugs: lowercase ASCII letters and digits joined by single hyphens
package sanitizer
