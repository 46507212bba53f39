// ABOUTME: Simple no-op telemetry implementation for testing - ONLY provides disabled telemetry, no business logic mocking
// ABOUTME: Allows testing of real components with telemetry disabled to verify they work without telemetry

package telemetry

// NewForTesting returns a no-op telemetry instance for use in tests.
func NewForTesting() Telemetry { return NewNoop() }
