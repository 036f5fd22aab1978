// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

// Schema URIs of the built-in extensions.
const (
	EOv1_0_0         = "https://stac-extensions.github.io/eo/v1.0.0/schema.json"
	EOv1_1_0         = "https://stac-extensions.github.io/eo/v1.1.0/schema.json"
	RasterV1_0_0     = "https://stac-extensions.github.io/raster/v1.0.0/schema.json"
	RasterV1_1_0     = "https://stac-extensions.github.io/raster/v1.1.0/schema.json"
	ProjectionV1_0_0 = "https://stac-extensions.github.io/projection/v1.0.0/schema.json"
	ProjectionV1_1_0 = "https://stac-extensions.github.io/projection/v1.1.0/schema.json"
	ProjectionV1_2_0 = "https://stac-extensions.github.io/projection/v1.2.0/schema.json"
	ProjectionV2_0_0 = "https://stac-extensions.github.io/projection/v2.0.0/schema.json"
	ViewV1_0_0       = "https://stac-extensions.github.io/view/v1.0.0/schema.json"
	SatV1_0_0        = "https://stac-extensions.github.io/sat/v1.0.0/schema.json"
	FileV2_1_0       = "https://stac-extensions.github.io/file/v2.1.0/schema.json"
)

const anywhere = InProperties | InAssets

func builtinDescriptors() []Descriptor {
	eoBase := []FieldSpec{
		Field("bands", FieldArray, Of(FieldObject), In(anywhere)),
		Field("cloud_cover", FieldNumber, In(anywhere)),
		Field("common_name", FieldString, In(InBands)),
		Field("center_wavelength", FieldNumber, In(InBands)),
		Field("full_width_half_max", FieldNumber, In(InBands)),
	}
	eo11 := append(append([]FieldSpec{}, eoBase...),
		Field("snow_cover", FieldNumber, In(anywhere)),
		Field("solar_illumination", FieldNumber, In(InBands)),
	)

	raster := []FieldSpec{
		Field("bands", FieldArray, Of(FieldObject), In(InAssets)),
		Field("sampling", FieldString, In(InBands)),
		Field("bits_per_sample", FieldInteger, In(InBands)),
		Field("spatial_resolution", FieldNumber, In(InBands)),
		Field("scale", FieldNumber, In(InBands)),
		Field("offset", FieldNumber, In(InBands)),
		Field("histogram", FieldObject, In(InBands)),
	}

	projCommon := []FieldSpec{
		Field("wkt2", FieldString, In(anywhere)),
		Field("projjson", FieldObject, In(anywhere)),
		Field("geometry", FieldObject, In(anywhere)),
		Field("bbox", FieldArray, Of(FieldNumber), In(anywhere)),
		Field("centroid", FieldObject, In(anywhere)),
		Field("shape", FieldArray, Of(FieldInteger), In(anywhere)),
		Field("transform", FieldArray, Of(FieldNumber), In(anywhere)),
	}
	epsg := Field("epsg", FieldInteger, In(anywhere))
	code := Field("code", FieldString, In(anywhere))
	proj1 := append([]FieldSpec{epsg}, projCommon...)
	proj12 := append([]FieldSpec{epsg, code}, projCommon...)
	proj2 := append([]FieldSpec{code}, projCommon...)

	view := []FieldSpec{
		Field("off_nadir", FieldNumber, In(anywhere)),
		Field("incidence_angle", FieldNumber, In(anywhere)),
		Field("azimuth", FieldNumber, In(anywhere)),
		Field("sun_azimuth", FieldNumber, In(anywhere)),
		Field("sun_elevation", FieldNumber, In(anywhere)),
	}

	sat := []FieldSpec{
		Field("platform_international_designator", FieldString),
		Field("orbit_state", FieldString),
		Field("absolute_orbit", FieldInteger),
		Field("relative_orbit", FieldInteger),
		Field("anx_datetime", FieldString),
	}

	file := []FieldSpec{
		Field("size", FieldInteger, In(anywhere)),
		Field("checksum", FieldString, In(anywhere)),
		Field("header_size", FieldInteger, In(anywhere)),
		Field("byte_order", FieldString, In(anywhere)),
		Field("values", FieldArray, Of(FieldObject), In(anywhere)),
		Field("local_path", FieldString, In(anywhere)),
	}

	return []Descriptor{
		{URI: EOv1_0_0, Prefix: "eo", Fields: eoBase},
		{URI: EOv1_1_0, Prefix: "eo", Fields: eo11},
		{URI: RasterV1_0_0, Prefix: "raster", Fields: raster},
		{URI: RasterV1_1_0, Prefix: "raster", Fields: raster},
		{URI: ProjectionV1_0_0, Prefix: "proj", Fields: proj1},
		{URI: ProjectionV1_1_0, Prefix: "proj", Fields: proj1},
		{URI: ProjectionV1_2_0, Prefix: "proj", Fields: proj12},
		{URI: ProjectionV2_0_0, Prefix: "proj", Fields: proj2},
		{URI: ViewV1_0_0, Prefix: "view", Fields: view},
		{URI: SatV1_0_0, Prefix: "sat", Fields: sat},
		{URI: FileV2_1_0, Prefix: "file", Fields: file},
	}
}

// Projection holds the proj: members.
type Projection struct {
	Code      *string        `json:"code,omitempty"`
	EPSG      *int64         `json:"epsg,omitempty"`
	WKT2      *string        `json:"wkt2,omitempty"`
	PROJJSON  map[string]any `json:"projjson,omitempty"`
	Geometry  map[string]any `json:"geometry,omitempty"`
	Bbox      []float64      `json:"bbox,omitempty"`
	Centroid  *Centroid      `json:"centroid,omitempty"`
	Shape     []int64        `json:"shape,omitempty"`
	Transform []float64      `json:"transform,omitempty"`
}

// Centroid is a lat/lon point.
type Centroid struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ElectroOptical holds the eo: members.
type ElectroOptical struct {
	CloudCover *float64         `json:"cloud_cover,omitempty"`
	SnowCover  *float64         `json:"snow_cover,omitempty"`
	Bands      []map[string]any `json:"bands,omitempty"`
}

// View holds the view: members.
type View struct {
	OffNadir       *float64 `json:"off_nadir,omitempty"`
	IncidenceAngle *float64 `json:"incidence_angle,omitempty"`
	Azimuth        *float64 `json:"azimuth,omitempty"`
	SunAzimuth     *float64 `json:"sun_azimuth,omitempty"`
	SunElevation   *float64 `json:"sun_elevation,omitempty"`
}
