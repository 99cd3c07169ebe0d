package gateway

import "net/http"

// Spatial store queries. The aggregate queries coalesce an empty source set to an
// empty feature array so the envelope never carries "features": null.
const (
	roadsQuery = `
		SELECT jsonb_build_object(
			'type', 'FeatureCollection',
			'features', COALESCE(jsonb_agg(ST_AsGeoJSON(t.*)::jsonb), '[]'::jsonb)
		)
		FROM (
			SELECT osm_id, name, highway, way
			FROM planet_osm_roads
			WHERE highway IS NOT NULL
			LIMIT 2000
		) t`

	nearestRoadQuery = `
		SELECT osm_id
		FROM planet_osm_roads
		ORDER BY way <-> ST_SetSRID(ST_Point($1::text::double precision, $2::text::double precision), 4326)
		LIMIT 1`

	junctionsQuery = `
		SELECT
			id,
			ST_Y(geom) AS lat,
			ST_X(geom) AS lon
		FROM road_junctions
		LIMIT 5000`

	constructionGeometryQuery = `
		SELECT
			id,
			ST_AsGeoJSON(geom) AS geometry,
			risk_factor
		FROM construction_projects`

	hospitalBuffersQuery = `
		SELECT jsonb_build_object(
			'type', 'FeatureCollection',
			'features', COALESCE(jsonb_agg(
				jsonb_build_object(
					'type', 'Feature',
					'geometry', ST_AsGeoJSON(geom)::jsonb,
					'properties', jsonb_build_object(
						'hospital_id', hospital_id,
						'radius_m', radius_m
					)
				)
			), '[]'::jsonb)
		)
		FROM hospital_buffers`
)

// Parameter names.
const (
	ParamRoadID     = "roadId"
	ParamJunctionID = "junctionId"
	ParamEntity     = "entity"
	ParamHops       = "hops"
	ParamDistance   = "distance"
	ParamLat        = "lat"
	ParamLng        = "lng"
	ParamQuestion   = "question"
)

func local(t LocalTarget) Target {
	return Target{Kind: BackendLocal, Local: &t}
}

func remote(t RemoteTarget) Target {
	return Target{Kind: BackendRemote, Remote: &t}
}

// Operations returns the operation table served by the gateway. Hop defaults differ
// per operation (2 for the road impact, 3 for zones/hospitals/summary/semantic) and
// are kept that way on purpose.
func Operations() []Descriptor {
	return []Descriptor{
		{
			Operation: OpRoads,
			Target: local(LocalTarget{
				Query: roadsQuery,
				Shape: ShapeAggregate,
			}),
			FailureMessage: "Error fetching roads",
		},
		{
			Operation:   OpNearestRoad,
			QueryParams: []string{ParamLat, ParamLng},
			Rules: map[string]string{
				ParamLat: "required,latitude",
				ParamLng: "required,longitude",
			},
			Target: local(LocalTarget{
				Query: nearestRoadQuery,
				// ST_Point takes x (longitude) first.
				Bind:  []string{ParamLng, ParamLat},
				Shape: ShapeSingle,
				Field: "road_id",
			}),
			FailureMessage: "Nearest road lookup failed",
		},
		{
			Operation: OpJunctions,
			Target: local(LocalTarget{
				Query: junctionsQuery,
				Shape: ShapeRows,
			}),
			FailureMessage: "Error fetching junctions",
		},
		{
			Operation: OpConstructionGeometry,
			Target: local(LocalTarget{
				Query: constructionGeometryQuery,
				Shape: ShapeRows,
			}),
			FailureMessage: "Error fetching construction geometry",
		},
		{
			Operation: OpHospitalBuffers,
			Target: local(LocalTarget{
				Query: hospitalBuffersQuery,
				Shape: ShapeAggregate,
			}),
			FailureMessage: "Error fetching hospital buffers",
		},
		{
			Operation:   OpImpactRoad,
			PathParams:  []string{ParamRoadID},
			QueryParams: []string{ParamHops},
			Defaults:    map[string]string{ParamHops: "2"},
			Target: remote(RemoteTarget{
				Method:  http.MethodGet,
				Path:    "/impact/road/{roadId}",
				Forward: []string{ParamHops},
			}),
			FailureMessage: "Impact service unavailable",
		},
		{
			Operation:   OpImpactZones,
			PathParams:  []string{ParamRoadID},
			QueryParams: []string{ParamHops},
			Defaults:    map[string]string{ParamHops: "3"},
			Target: remote(RemoteTarget{
				Method:  http.MethodGet,
				Path:    "/api/impact/zones/{roadId}",
				Forward: []string{ParamHops},
			}),
			FailureMessage: "Zone impact service unavailable",
		},
		{
			Operation:   OpImpactHospitals,
			PathParams:  []string{ParamRoadID},
			QueryParams: []string{ParamHops},
			Defaults:    map[string]string{ParamHops: "3"},
			Target: remote(RemoteTarget{
				Method:  http.MethodGet,
				Path:    "/api/impact/hospitals/{roadId}",
				Forward: []string{ParamHops},
			}),
			FailureMessage: "Hospital impact service unavailable",
		},
		{
			Operation:   OpImpactSummary,
			PathParams:  []string{ParamRoadID},
			QueryParams: []string{ParamHops},
			Defaults:    map[string]string{ParamHops: "3"},
			Target: remote(RemoteTarget{
				Method:  http.MethodGet,
				Path:    "/api/impact/summary/{roadId}",
				Forward: []string{ParamHops},
			}),
			FailureMessage: "Impact summary service unavailable",
		},
		{
			Operation:   OpImpactSemantic,
			PathParams:  []string{ParamRoadID},
			QueryParams: []string{ParamHops},
			Defaults:    map[string]string{ParamHops: "3"},
			Target: remote(RemoteTarget{
				Method:  http.MethodGet,
				Path:    "/api/impact/semantic/{roadId}",
				Forward: []string{ParamHops},
			}),
			FailureMessage: "Semantic impact service unavailable",
		},
		{
			Operation:  OpImpactJunction,
			PathParams: []string{ParamJunctionID},
			Target: remote(RemoteTarget{
				Method: http.MethodGet,
				Path:   "/api/impact/junction/{junctionId}",
			}),
			FailureMessage: "Junction impact service unavailable",
		},
		{
			Operation:  OpImpactConstruction,
			PathParams: []string{ParamRoadID},
			Target: remote(RemoteTarget{
				Method: http.MethodGet,
				Path:   "/api/impact/construction/{roadId}",
			}),
			FailureMessage: "Construction impact service unavailable",
		},
		{
			Operation:   OpMapBufferHospitals,
			QueryParams: []string{ParamDistance},
			Defaults:    map[string]string{ParamDistance: "100"},
			Target: remote(RemoteTarget{
				Method:  http.MethodGet,
				Path:    "/map/buffer/hospitals",
				Forward: []string{ParamDistance},
			}),
			FailureMessage: "Hospital buffer service unavailable",
		},
		{
			Operation: OpMapHospitalBuffers,
			Target: remote(RemoteTarget{
				Method: http.MethodGet,
				Path:   "/map/hospital-buffers",
			}),
			FailureMessage: "Hospital buffer service unavailable",
		},
		{
			Operation: OpViolations,
			Target: remote(RemoteTarget{
				Method: http.MethodGet,
				Path:   "/map/violations/construction-hospitals",
			}),
			FailureMessage: "Violation detection service unavailable",
		},
		{
			Operation:  OpMapHighlight,
			PathParams: []string{ParamEntity},
			Target: remote(RemoteTarget{
				Method:  http.MethodGet,
				Path:    "/map/highlight",
				Forward: []string{ParamEntity},
			}),
			FailureMessage: "Map highlight service unavailable",
		},
		{
			Operation: OpMapHighlightHospitals,
			Target: remote(RemoteTarget{
				Method: http.MethodGet,
				Path:   "/map/highlight",
				Fixed:  map[string]string{ParamEntity: "hospital"},
			}),
			FailureMessage: "Hospital highlight service unavailable",
		},
		{
			Operation: OpRAGQuery,
			Body:      BodyQuestion,
			Target: remote(RemoteTarget{
				Method: http.MethodPost,
				Path:   "/rag/query",
				Body:   BodyQuestion,
			}),
			FailureMessage: "Question answering service unavailable",
		},
	}
}
