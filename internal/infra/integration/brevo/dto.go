package brevo

// Contact é o contato de marketing enviado para uma lista do Brevo.
type Contact struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Tags       []string
	Blacklist  bool // descadastrado
	Attributes map[string]any
}

type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type TransactionalEmail struct {
	Sender      Recipient         `json:"sender"`
	To          []Recipient       `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Tags        []string          `json:"tags,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

type upsertContactRequest struct {
	Email            string         `json:"email"`
	Attributes       map[string]any `json:"attributes,omitempty"`
	ListIDs          []int64        `json:"listIds,omitempty"`
	EmailBlacklisted bool           `json:"emailBlacklisted"`
	UpdateEnabled    bool           `json:"updateEnabled"`
}

type contactResponse struct {
	ID int64 `json:"id"`
}

type sendEmailResponse struct {
	MessageID string `json:"messageId"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
