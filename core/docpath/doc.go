// Package docpath implements dot-notation access to nested, JSON-shaped
// document trees (map[string]any with nested mappings and sequences).
//
// It provides the primitives the store layer is built on:
//
//   - Get / Has / Put / Unset for reading, building and removing values at
//     dot-separated paths such as "a.b.c" (numeric segments index into
//     sequences);
//   - Merge for recursive mapping merges;
//   - Substitute for bidirectional field aliasing between external and
//     internal document layouts;
//   - Copy for deep document duplication;
//   - Size for approximate memory accounting when chunking.
//
// Unset prunes mapping ancestors that the removal left empty, so aliasing a
// deeply nested field away does not leave husks of empty objects behind.
package docpath
