//go:build hftdebug

package structure

// debugAssertions turns contract violations (stale handles, double release)
// into panics.
const debugAssertions = true
