// Package schema validates documents against declarative JSON-Schema
// descriptions before they enter a target store. Beyond structural
// validation it supports reconstructor key-paths: designated dot-paths
// whose mapping value must be a serialization some reconstructor accepts,
// used for complex sub-objects that round-trip through a serialized form.
package schema
