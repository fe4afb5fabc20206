package types

// Serving types accepted by ServingMode.ServingType.
const (
	ServingOnDemand  = "ON_DEMAND"
	ServingDedicated = "DEDICATED"
)

// ChatDetails is the body of the backend chat action.
type ChatDetails struct {
	CompartmentID string      `json:"compartmentId"`
	ServingMode   ServingMode `json:"servingMode"`
	ChatRequest   ChatRequest `json:"chatRequest"`
}

// ServingMode addresses either an on-demand model or a dedicated endpoint.
type ServingMode struct {
	ServingType string `json:"servingType"`
	ModelID     string `json:"modelId,omitempty"`
	EndpointID  string `json:"endpointId,omitempty"`
}

// OnDemand returns the serving mode for a shared on-demand model.
func OnDemand(modelID string) ServingMode {
	return ServingMode{ServingType: ServingOnDemand, ModelID: modelID}
}

// Dedicated returns the serving mode for a dedicated endpoint.
func Dedicated(endpointID string) ServingMode {
	return ServingMode{ServingType: ServingDedicated, EndpointID: endpointID}
}

// ChatRequest is implemented by the three family-specific request shapes.
type ChatRequest interface {
	APIFormat() string
	SetStream(stream bool)
}

// ImageURL carries an image reference, usually a data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// StreamOptions tunes streamed GENERIC responses.
type StreamOptions struct {
	IsIncludeUsage bool `json:"isIncludeUsage"`
}
