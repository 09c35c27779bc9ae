//go:build !hftdebug

package structure

const debugAssertions = false
