// Package ratelimit paces calls to remote embedding and LLM providers
// with a token bucket shared by every caller of the wrapped service.
package ratelimit
