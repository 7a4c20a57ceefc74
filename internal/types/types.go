package types

import "time"

// Scope is the granularity of an outbreak query.
type Scope string

const (
	ScopeNationwide Scope = "nationwide"
	ScopeState      Scope = "state"
)

// ScopeFor returns the scope implied by a state name ("" means nationwide).
func ScopeFor(stateName string) Scope {
	if stateName == "" {
		return ScopeNationwide
	}
	return ScopeState
}

// AffectedLocation is a location reported for a disease outbreak.
type AffectedLocation struct {
	Name           string `json:"name"`
	EstimatedCases string `json:"estimatedCases,omitempty"`
	Trend          string `json:"trend,omitempty"`
}

// Disease is a single outbreak record parsed from the AI response.
type Disease struct {
	Name              string             `json:"name"`
	Type              string             `json:"type,omitempty"`
	RiskLevel         string             `json:"riskLevel"`
	Symptoms          []string           `json:"symptoms"`
	SafetyMeasures    []string           `json:"safetyMeasures"`
	PreventionMethods []string           `json:"preventionMethods"`
	Transmission      string             `json:"transmission,omitempty"`
	AffectedLocations []AffectedLocation `json:"affectedLocations,omitempty"`
}

// DiseaseList is the JSON shape the fetcher asks the model to produce.
type DiseaseList struct {
	Diseases []Disease `json:"diseases"`
}

// Message types delivered by the WhatsApp webhook.
const (
	MessageTypeText        = "text"
	MessageTypeButtonReply = "button_reply"
	MessageTypeListReply   = "list_reply"
	MessageTypeImage       = "image"
	MessageTypeAudio       = "audio"
	MessageTypeDocument    = "document"
)

// MediaData describes an inbound media attachment.
type MediaData struct {
	ID       string
	MimeType string
	SHA256   string
	Data     []byte
}

// InboundMessage is a platform-unwrapped message from the messaging webhook.
type InboundMessage struct {
	PhoneNumber string
	MessageID   string
	Content     string
	Type        string
	Timestamp   time.Time
	Media       *MediaData
}

// Button is an interactive reply button on an outbound message.
type Button struct {
	ID    string
	Title string
}

// ListRow is a single selectable row in an interactive list message.
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// ListSection groups rows in an interactive list message.
type ListSection struct {
	Title string
	Rows  []ListRow
}
