package api

// Convertible is implemented by wrapped domain types that can be exposed through the API.
type Convertible[T any] interface {
	// ToAPIType can be used to convert a wrapped domain type to an API-safe type.
	// It should be responsible for any normalization required to ensure consistency
	// across the API boundary.
	ToAPIType() (T, error)
}

var _ Convertible[Server] = DomainServer{}
