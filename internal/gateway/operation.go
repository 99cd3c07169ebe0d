package gateway

// Operation names a logical gateway operation.
type Operation string

// Supported operations.
const (
	OpRoads                 Operation = "roads"
	OpNearestRoad           Operation = "nearest_road"
	OpJunctions             Operation = "junctions"
	OpConstructionGeometry  Operation = "construction_geometry"
	OpHospitalBuffers       Operation = "hospital_buffers"
	OpImpactRoad            Operation = "impact_road"
	OpImpactZones           Operation = "impact_zones"
	OpImpactHospitals       Operation = "impact_hospitals"
	OpImpactSummary         Operation = "impact_summary"
	OpImpactSemantic        Operation = "impact_semantic"
	OpImpactJunction        Operation = "impact_junction"
	OpImpactConstruction    Operation = "impact_construction"
	OpMapBufferHospitals    Operation = "map_buffer_hospitals"
	OpMapHospitalBuffers    Operation = "map_hospital_buffers"
	OpViolations            Operation = "violations"
	OpMapHighlight          Operation = "map_highlight"
	OpMapHighlightHospitals Operation = "map_highlight_hospitals"
	OpRAGQuery              Operation = "rag_query"
)

// BackendKind tells the Service which executor serves an operation.
type BackendKind int

const (
	// BackendLocal runs a query against the spatial store.
	BackendLocal BackendKind = iota + 1
	// BackendRemote forwards to the inference service.
	BackendRemote
)

func (k BackendKind) String() string {
	switch k {
	case BackendLocal:
		return BackendSpatial
	case BackendRemote:
		return BackendInference
	default:
		return "unknown"
	}
}

// Shape is how rows from a local query are turned into a response body.
type Shape int

const (
	// ShapeAggregate expects one row whose only column is a complete FeatureCollection.
	ShapeAggregate Shape = iota + 1
	// ShapeRows returns every row as a JSON object, in row order.
	ShapeRows
	// ShapeSingle returns the first column of the first row under LocalTarget.Field.
	ShapeSingle
)

// LocalTarget is a parameterized query against the spatial store.
type LocalTarget struct {
	// Query is the SQL text with $n placeholders.
	Query string
	// Bind lists request parameter names in placeholder order.
	Bind []string
	// Shape selects the reshape mode.
	Shape Shape
	// Field is the response key used by ShapeSingle.
	Field string
}

// BodyShape selects the outbound request body of a remote call.
type BodyShape int

const (
	// BodyNone sends no body.
	BodyNone BodyShape = iota
	// BodyQuestion sends {"question": ...} taken verbatim from the inbound body.
	BodyQuestion
)

// RemoteTarget is an inference service endpoint.
type RemoteTarget struct {
	// Method is the outbound HTTP method.
	Method string
	// Path is the path template; {name} placeholders take path parameter values.
	Path string
	// Forward lists request parameters appended as query parameters, in order.
	Forward []string
	// Fixed holds constant query parameters.
	Fixed map[string]string
	// Body selects the outbound body.
	Body BodyShape
}

// Target is the backend an operation is dispatched to. Exactly one of Local and
// Remote is set, matching Kind.
type Target struct {
	Kind   BackendKind
	Local  *LocalTarget
	Remote *RemoteTarget
}

// Descriptor declares everything the pipeline needs to serve one operation.
type Descriptor struct {
	Operation Operation
	// PathParams are accepted path parameter names.
	PathParams []string
	// QueryParams are accepted query parameter names; others are dropped.
	QueryParams []string
	// Defaults apply when a query parameter is absent or empty.
	Defaults map[string]string
	// Rules are validator tags keyed by parameter name.
	Rules map[string]string
	// Body declares whether and how the inbound body is read.
	Body BodyShape
	// Target is the backend serving the operation.
	Target Target
	// FailureMessage is the client-facing message for backend failures.
	FailureMessage string
}
