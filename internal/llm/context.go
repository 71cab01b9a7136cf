package llm

import "context"

type operationKey struct{}

// UnattributedOperation labels provider calls made outside an orchestrated
// operation, such as ad-hoc CLI calls.
const UnattributedOperation = "adhoc"

// WithOperation tags ctx with the orchestrated operation a provider call
// serves. Request events and token metrics are grouped by it.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey{}, operation)
}

// OperationFrom returns the operation ctx was tagged with.
func OperationFrom(ctx context.Context) string {
	if v, ok := ctx.Value(operationKey{}).(string); ok && v != "" {
		return v
	}
	return UnattributedOperation
}
