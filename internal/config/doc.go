// Package config loads nodediff settings through internal/q/cascade.
//
// Sources, lowest to highest priority:
//   - built-in defaults (encoding "cp866", one job, temp files next to their target).
//   - the user file ".nodediff/config.json" in the user config directory (the home directory; %USERPROFILE%\AppData\Local on Windows).
//   - the nearest ".nodediff/config.json" found by walking upward from the working directory.
//   - environment variables NODEDIFF_ENCODING, NODEDIFF_JOBS and NODEDIFF_TEMPDIR.
//
// JSON keys are matched case-insensitively and unknown keys are ignored. Missing, unreadable or blank files are skipped; a file that cannot be parsed, or a value of
// the wrong type, is an error naming its source. Every field records the source that last set it in a sibling Providence field.
package config
