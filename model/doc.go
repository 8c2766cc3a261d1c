// Package model defines the provider-agnostic generation interface used by
// reasoning nodes, plus a MockModel for tests. Concrete adapters live in the
// anthropic and openai subpackages.
package model
