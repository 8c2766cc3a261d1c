// Package node contains the concrete workflow nodes: the model-backed
// LocalNode and the Sequential/Parallel/Loop composites, plus the Execute
// helper that is the single path every child execution goes through
// (interceptor chain, per-node timeout, failure degradation, output-key
// write-back).
package node
