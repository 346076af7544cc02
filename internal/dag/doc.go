// Package dag orders the steps of a build. Steps are nodes of a directed
// acyclic graph; an edge a -> b means b consumes something a produces. The
// Executor runs steps one at a time in a deterministic topological order and
// stops at the first failure, skipping everything that has not run yet.
package dag
