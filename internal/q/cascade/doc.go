// Package cascade loads layered configuration into a flat Go struct from multiple sources with predictable precedence.
//
// A Loader holds sources ordered from lowest to highest priority. Register them with the With* methods, then call StrictlyLoad. The zero value of Loader is ready to use;
// New exists for fluent chaining (ex: New().WithDefaults(...).WithJSONFile(...).WithNearestJSONFile(...).WithEnv(...).StrictlyLoad(&cfg)).
//
// Sources
//   - Defaults from a map[string]any.
//   - JSON files read at load time. WithJSONFile registers a specific path. WithNearestJSONFile searches upward from a starting path for the first readable, non-blank file
//     with a given relative name; it panics if fileName is absolute.
//   - Environment variables mapped to keys via WithEnv. Missing and empty variables are ignored.
//
// Keys and coercion: keys are matched case-insensitively against a field's cascade tag, then its json tag, then its name. Unknown keys are ignored. Destination fields must be
// strings, bools or signed integers; strings are parsed into bools and integers (surrounding whitespace ignored), and whole JSON numbers fill integer fields.
//
// Providence: a field named <Field>Providence of type Providence records the source that last set <Field>.
//
// Errors: StrictlyLoad fails fast on the first readable source that cannot be parsed or that supplies a value that cannot be coerced. Missing or unreadable sources and blank
// files are skipped. Errors name their source.
package cascade
