package asaas

type CreateCustomerInput struct {
	Name              string
	Email             string
	CpfCnpj           string
	Phone             string
	MobilePhone       string
	PostalCode        string
	AddressNumber     string
	ExternalReference string // id do aluno
}

type CreateSubscriptionInput struct {
	CustomerID        string
	Value             float64
	NextDueDate       string // YYYY-MM-DD
	Cycle             string // MONTHLY
	BillingType       string // BOLETO, PIX, CREDIT_CARD, UNDEFINED
	Description       string
	MaxPayments       int
	ExternalReference string // id da matrícula
}

// ListParams são os filtros de paginação das listagens do Asaas (limit máximo 100).
type ListParams struct {
	Offset      int
	Limit       int
	DueDateFrom string
	Customer    string
}

type Page[T any] struct {
	HasMore    bool `json:"hasMore"`
	TotalCount int  `json:"totalCount"`
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	Data       []T  `json:"data"`
}

type Payment struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	Subscription      string  `json:"subscription"`
	Value             float64 `json:"value"`
	NetValue          float64 `json:"netValue"`
	BillingType       string  `json:"billingType"`
	Status            string  `json:"status"`
	DueDate           string  `json:"dueDate"`
	PaymentDate       string  `json:"paymentDate"`
	ClientPaymentDate string  `json:"clientPaymentDate"`
	InvoiceURL        string  `json:"invoiceUrl"`
	ExternalReference string  `json:"externalReference"`
	Deleted           bool    `json:"deleted"`
}

type Subscription struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	Value             float64 `json:"value"`
	Cycle             string  `json:"cycle"`
	BillingType       string  `json:"billingType"`
	Status            string  `json:"status"`
	NextDueDate       string  `json:"nextDueDate"`
	ExternalReference string  `json:"externalReference"`
	Deleted           bool    `json:"deleted"`
}

// WebhookEvent é o corpo enviado pelo Asaas em cada notificação.
type WebhookEvent struct {
	ID           string        `json:"id"`
	Event        string        `json:"event"`
	DateCreated  string        `json:"dateCreated"`
	Payment      *Payment      `json:"payment,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

type createCustomerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email,omitempty"`
	CpfCnpj              string `json:"cpfCnpj"`
	Phone                string `json:"phone,omitempty"`
	MobilePhone          string `json:"mobilePhone,omitempty"`
	PostalCode           string `json:"postalCode,omitempty"`
	AddressNumber        string `json:"addressNumber,omitempty"`
	ExternalReference    string `json:"externalReference,omitempty"`
	NotificationDisabled bool   `json:"notificationDisabled"`
}

type customerResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type createSubscriptionRequest struct {
	Customer          string  `json:"customer"`
	BillingType       string  `json:"billingType"`
	Value             float64 `json:"value"`
	NextDueDate       string  `json:"nextDueDate"`
	Cycle             string  `json:"cycle"`
	Description       string  `json:"description"`
	MaxPayments       int     `json:"maxPayments,omitempty"`
	ExternalReference string  `json:"externalReference,omitempty"`
}

type errorResponse struct {
	Errors []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"errors"`
}
