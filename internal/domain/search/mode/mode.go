package mode

// Mode is the strategy that served a set of search results.
type Mode string

// Search mode constants.
const (
	// Vector ranks items by embedding similarity in the vector store.
	Vector Mode = "vector"
	// Text matches item names and descriptions with ILIKE at a fixed similarity.
	Text Mode = "text"
	// Category pulls every item of a matched category at a fixed similarity.
	Category Mode = "category"
	// None means no strategy produced results.
	None Mode = "none"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Vector || m == Text || m == Category || m == None
}

// Degradation explains why a weaker strategy served the request.
type Degradation string

// Degradation kinds.
const (
	DegradedNone      Degradation = ""
	DegradedEmbedding Degradation = "embedding_failure"
	DegradedDimension Degradation = "dimension_mismatch"
	DegradedRPC       Degradation = "rpc_error"
	DegradedEmpty     Degradation = "rpc_empty"
)
