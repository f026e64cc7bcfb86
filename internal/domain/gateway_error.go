package domain

import "fmt"

// GatewayErrorKind clasifica los fallos del gateway de completions.
type GatewayErrorKind string

const (
	GatewayInvalidRequest   GatewayErrorKind = "invalid_request"
	GatewayUnauthenticated  GatewayErrorKind = "unauthenticated"
	GatewayRateLimited      GatewayErrorKind = "rate_limited"
	GatewayNotFound         GatewayErrorKind = "not_found"
	GatewayUpstreamFailure  GatewayErrorKind = "upstream_failure"
	GatewayConfiguration    GatewayErrorKind = "configuration_error"
	GatewayMethodNotAllowed GatewayErrorKind = "method_not_allowed"
)

// GatewayError es el unico tipo de error que cruza el borde del gateway.
type GatewayError struct {
	Kind   GatewayErrorKind
	Detail string
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError arma un GatewayError sin causa subyacente.
func NewGatewayError(kind GatewayErrorKind, detail string) *GatewayError {
	return &GatewayError{Kind: kind, Detail: detail}
}
