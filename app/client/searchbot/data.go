package searchbot

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// InitiateChatQuery asks the backend to open a new conversation.
const InitiateChatQuery = "__INITIATE_CHAT__"

// Criteria is the backend-owned search constraint snapshot.
type Criteria map[string]any

func (c Criteria) Clone() Criteria {
	if c == nil {
		return nil
	}

	out := make(Criteria, len(c))
	for k, v := range c {
		out[k] = v
	}

	return out
}

// Turn is one transcript record; exactly one of User and Bot is set.
type Turn struct {
	User string `json:"user,omitempty"`
	Bot  string `json:"bot,omitempty"`
}

type Request struct {
	Query               string   `json:"query"`
	CriteriaSoFar       Criteria `json:"criteria_so_far"`
	ConversationHistory []Turn   `json:"conversation_history"`
}

type Property struct {
	Title     string `json:"title,omitempty"`
	Location  string `json:"location,omitempty"`
	Price     Price  `json:"price"`
	Bedrooms  Count  `json:"bedrooms"`
	Bathrooms Count  `json:"bathrooms"`
	Highlight string `json:"llm_highlight,omitempty"`
}

// Price is an optional amount. Null, absent and unparseable values are all
// treated as "not set".
type Price struct {
	Value float64
	Valid bool
}

func NewPrice(v float64) Price {
	return Price{Value: v, Valid: true}
}

func (p *Price) UnmarshalJSON(data []byte) error {
	*p = Price{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		*p = NewPrice(number)
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
		if number, err = strconv.ParseFloat(text, 64); err == nil {
			*p = NewPrice(number)
		}
	}

	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}

	return json.Marshal(p.Value)
}

// Count is a room count. Backends send numbers or labels such as "Studio".
type Count struct {
	Text  string
	Valid bool
}

func NewCount(text string) Count {
	return Count{Text: text, Valid: true}
}

func (c *Count) UnmarshalJSON(data []byte) error {
	*c = Count{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err == nil {
		*c = NewCount(number.String())
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil && strings.TrimSpace(text) != "" {
		*c = NewCount(strings.TrimSpace(text))
	}

	return nil
}

func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}

	if _, err := strconv.ParseFloat(c.Text, 64); err == nil {
		return []byte(c.Text), nil
	}

	return json.Marshal(c.Text)
}

// Response is the normalized backend reply. Criteria is nil when the backend
// did not send a snapshot. Err is non-nil on every failure path.
type Response struct {
	BotMessage      string
	Results         []Property
	Criteria        Criteria
	SearchPerformed bool
	AskForFeedback  bool
	Raw             json.RawMessage
	Err             error
}

type responseBody struct {
	BotDialogueMessage string
	SearchResults      []Property
	Criteria           Criteria
	SearchPerformed    bool
	AskForFeedback     bool
}

// decodeResponse reads a 2xx body field by field. Only invalid JSON is an
// error; a wrongly typed field falls back to its zero value and a body that
// is not an object yields all defaults.
func decodeResponse(data []byte) (responseBody, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		if !json.Valid(data) {
			return responseBody{}, err
		}
		return responseBody{}, nil
	}

	return responseBody{
		BotDialogueMessage: stringField(fields["bot_dialogue_message"]),
		SearchResults:      propertiesField(fields["search_results"]),
		Criteria:           criteriaField(fields["current_search_criteria_for_frontend"]),
		SearchPerformed:    boolField(fields["search_performed_with_criteria"]),
		AskForFeedback:     boolField(fields["ask_for_feedback"]),
	}, nil
}

func stringField(raw json.RawMessage) string {
	var text string
	if json.Unmarshal(raw, &text) != nil {
		return ""
	}

	return text
}

func boolField(raw json.RawMessage) bool {
	var flag bool
	if json.Unmarshal(raw, &flag) != nil {
		return false
	}

	return flag
}

// criteriaField returns nil unless raw is a JSON object.
func criteriaField(raw json.RawMessage) Criteria {
	var criteria map[string]any
	if json.Unmarshal(raw, &criteria) != nil || criteria == nil {
		return nil
	}

	return Criteria(criteria)
}

// propertiesField keeps the listings that are objects.
func propertiesField(raw json.RawMessage) []Property {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}

	out := make([]Property, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if json.Unmarshal(item, &fields) != nil || fields == nil {
			continue
		}

		out = append(out, propertyFromFields(fields))
	}

	return out
}

func propertyFromFields(fields map[string]json.RawMessage) Property {
	p := Property{
		Title:     stringField(fields["title"]),
		Location:  stringField(fields["location"]),
		Highlight: stringField(fields["llm_highlight"]),
	}

	_ = p.Price.UnmarshalJSON(fields["price"])
	_ = p.Bedrooms.UnmarshalJSON(fields["bedrooms"])
	_ = p.Bathrooms.UnmarshalJSON(fields["bathrooms"])

	return p
}

// UnmarshalJSON never fails: mistyped fields are left empty.
func (p *Property) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) != nil {
		*p = Property{}
		return nil
	}

	*p = propertyFromFields(fields)

	return nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

type Feedback struct {
	Feedback           string `json:"feedback"`
	UserQueryContext   string `json:"user_query_context"`
	BotResponseContext string `json:"bot_response_context"`
}
