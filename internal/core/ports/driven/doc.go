// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the LLM translation provider and the
// translation cache store.
package driven
