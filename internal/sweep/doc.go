// Package sweep defines the core types and collaborator interfaces shared by the
// liveness classification pipeline: fetch results, redirect hops, render
// outcomes, verdicts, and chunk assignments.
package sweep
