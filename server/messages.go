package server

// Service and procedure names.
const (
	ReductionServiceName = "redex.v1.ReductionService"
	ReduceProcedure      = "/" + ReductionServiceName + "/Reduce"
	InspectProcedure     = "/" + ReductionServiceName + "/Inspect"
)

// ReduceRequest asks for a term to be normalized.
type ReduceRequest struct {
	Source   string `cbor:"1,keyasint"`
	MaxSteps int    `cbor:"2,keyasint,omitempty"`
}

// ReduceResponse carries the reduced term. Normal is false when the step
// limit stopped reduction early; Result is then the partially reduced term.
type ReduceResponse struct {
	Result   string `cbor:"1,keyasint"`
	Steps    int    `cbor:"2,keyasint"`
	Normal   bool   `cbor:"3,keyasint"`
	Hash     []byte `cbor:"4,keyasint"`
	Snapshot []byte `cbor:"5,keyasint"`
}

// InspectRequest asks for static facts about a term.
type InspectRequest struct {
	Source string `cbor:"1,keyasint"`
}

// InspectResponse describes a parsed term without reducing it.
type InspectResponse struct {
	Rendered  string `cbor:"1,keyasint"`
	Nodes     int    `cbor:"2,keyasint"`
	Closed    bool   `cbor:"3,keyasint"`
	HeadRedex bool   `cbor:"4,keyasint"`
	Hash      []byte `cbor:"5,keyasint"`
}
