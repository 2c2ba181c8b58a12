// Package records defines the data model shared by every stage of a harvest:
// the untyped remote exchange document, the canonical record with its bounded
// extension bag, resources, and harvest traces.
package records
