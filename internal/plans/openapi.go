package plans

import "github.com/JaimeStill/citygarden/pkg/openapi"

const tag = "Plans"

var statusEnum = []any{"completed", "rejected", "failed"}

// Document adds the plan schemas and operations to spec.
func Document(spec *openapi.Spec) {
	spec.AddTag(tag, "Garden plan generation and run history")
	spec.Components.AddSchemas(schemas)
	spec.AddPaths(paths())
}

var schemas = map[string]*openapi.Schema{
	"CreateRequest": {
		Type:     "object",
		Required: []string{"image_urls", "location"},
		Properties: map[string]*openapi.Schema{
			"image_urls": openapi.ArrayOf(&openapi.Schema{Type: "string", Format: "uri"}).Sized(1, 3),
			"user_preferences": {
				Type: "object",
				Properties: map[string]*openapi.Schema{
					"growType":   {Type: "string", Example: "vegetables"},
					"subType":    {Type: "string", Example: "leafy greens"},
					"cycleType":  {Type: "string", Example: "perennial"},
					"winterType": {Type: "string", Example: "hardy"},
				},
			},
			"location": {
				Type:     "object",
				Required: []string{"latitude", "longitude"},
				Properties: map[string]*openapi.Schema{
					"latitude":  (&openapi.Schema{Type: "number"}).Bounded(-90, 90),
					"longitude": (&openapi.Schema{Type: "number"}).Bounded(-180, 180),
					"address":   {Type: "string"},
				},
			},
		},
	},
	"Plant": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":                 {Type: "string"},
			"name":               {Type: "string"},
			"description":        {Type: "string"},
			"growing_conditions": {Type: "string"},
			"planting_tips":      {Type: "string"},
			"care_tips":          {Type: "string"},
			"harvesting_tips":    {Type: "string"},
		},
	},
	"PlantImage": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"name":      {Type: "string"},
			"image_url": {Type: "string", Format: "uri"},
			"error":     {Type: "string", Description: "Set when the illustration could not be produced"},
		},
	},
	"Response": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":                    {Type: "string", Format: "uuid"},
			"status":                {Type: "string", Enum: statusEnum},
			"garden_image_url":      {Type: "string", Format: "uri"},
			"plant_recommendations": openapi.ArrayOf(openapi.SchemaRef("Plant")),
			"plant_images":          openapi.ArrayOf(openapi.SchemaRef("PlantImage")),
		},
	},
	"Analysis": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"compliance_check":    {Type: "string"},
			"sun_exposure":        {Type: "string"},
			"micro_climate":       {Type: "string"},
			"hardscape_elements":  {Type: "string"},
			"plant_inventory":     {Type: "string"},
			"environment_factors": {Type: "string"},
			"wind_pattern":        {Type: "string"},
		},
	},
	"Plan": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":                    {Type: "string", Format: "uuid", ReadOnly: true},
			"status":                {Type: "string", Enum: statusEnum},
			"location":              {Type: "string"},
			"latitude":              {Type: "number"},
			"longitude":             {Type: "number"},
			"style_preferences":     {Type: "string"},
			"image_urls":            openapi.ArrayOf(&openapi.Schema{Type: "string"}),
			"analysis":              openapi.SchemaRef("Analysis"),
			"plant_recommendations": openapi.ArrayOf(openapi.SchemaRef("Plant")),
			"final_output":          {Type: "string"},
			"garden_image_url":      {Type: "string"},
			"plant_images":          openapi.ArrayOf(openapi.SchemaRef("PlantImage")),
			"path":                  openapi.ArrayOf(&openapi.Schema{Type: "string"}),
			"error":                 {Type: "string"},
			"created_at":            {Type: "string", Format: "date-time", ReadOnly: true},
		},
	},
	"PlanPage": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"data":        openapi.ArrayOf(openapi.SchemaRef("Plan")),
			"total":       {Type: "integer"},
			"page":        {Type: "integer"},
			"page_size":   {Type: "integer"},
			"total_pages": {Type: "integer"},
		},
	},
}

func paths() map[string]*openapi.PathItem {
	create := &openapi.Operation{
		OperationID: "createPlan",
		Summary:     "Generate a garden plan",
		Description: "Runs the full pipeline on the submitted photos. A photo set that fails the compliance check returns status rejected.",
		Tags:        []string{tag},
		RequestBody: openapi.RequestBodyJSON("CreateRequest", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Pipeline outcome", "Response"),
			400: openapi.ResponseRef("BadRequest"),
			502: openapi.ResponseRef("BadGateway"),
		},
	}

	// operationId must be unique per document.
	alias := *create
	alias.OperationID = "createGardenPlan"

	return map[string]*openapi.PathItem{
		"/plans": {
			Get: &openapi.Operation{
				OperationID: "listPlans",
				Summary:     "List plans",
				Tags:        []string{tag},
				Parameters:  []*openapi.Parameter{
					openapi.QueryParam("page", "integer", "Page number", false),
					openapi.QueryParam("page_size", "integer", "Results per page", false),
					openapi.QueryParam("search", "string", "Match location or style preferences", false),
					openapi.QueryParam("sort", "string", "Sort fields, e.g. -created_at", false),
					openapi.QueryParam("status", "string", "Filter by run status", false),
					openapi.QueryParam("created_after", "string", "RFC 3339 lower bound on created_at", false).WithFormat("date-time"),
					openapi.QueryParam("created_before", "string", "RFC 3339 upper bound on created_at", false).WithFormat("date-time"),
				},
				Responses: map[int]*openapi.Response{
					200: openapi.ResponseJSON("Plan page", "PlanPage"),
					400: openapi.ResponseRef("BadRequest"),
				},
			},
			Post: create,
		},
		"/plans/{id}": {
			Get: &openapi.Operation{
				OperationID: "findPlan",
				Summary:     "Find a plan",
				Tags:        []string{tag},
				Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Plan ID")},
				Responses: map[int]*openapi.Response{
					200: openapi.ResponseJSON("Stored plan", "Plan"),
					400: openapi.ResponseRef("BadRequest"),
					404: openapi.ResponseRef("NotFound"),
				},
			},
			Delete: &openapi.Operation{
				OperationID: "deletePlan",
				Summary:     "Delete a plan and its generated images",
				Tags:        []string{tag},
				Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Plan ID")},
				Responses: map[int]*openapi.Response{
					204: {Description: "Deleted"},
					400: openapi.ResponseRef("BadRequest"),
					404: openapi.ResponseRef("NotFound"),
				},
			},
		},
		"/garden_plan": {
			Post: &alias,
		},
	}
}
