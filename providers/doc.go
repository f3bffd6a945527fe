// Package providers defines the adapter contract between the canonical
// request/response shape and each upstream provider's native wire format,
// plus the registry that resolves inbound requests to one adapter.
//
// Adapters are pure mapping code: they hold configuration but no per-call
// state, and are safe to invoke concurrently. Each upstream lives in its own
// subpackage (openai, anthropic, gemini, azure, mistral, openrouter); the
// openai adapter accepts the canonical shape directly and doubles as the
// default and as the normalization target for all others.
package providers
