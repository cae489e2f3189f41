// Package domain contains the core types of the batch translation
// engine: fragments, requests, results, progress events and the
// sentinel errors shared across ports and adapters. It has no
// dependencies outside the standard library.
package domain
