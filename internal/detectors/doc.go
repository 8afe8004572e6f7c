// Package detectors provides regex-based PII detectors and a registry that
// assembles them into ordered detector chains.
//
// Detection is best-effort pattern matching. The patterns favour recall on
// common email, phone and national-id shapes and make no exactness claims.
package detectors
