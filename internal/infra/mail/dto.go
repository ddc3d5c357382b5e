package mail

// Message é um email já renderizado, pronto para o provedor.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Tags    []string
}

// TemplateData são as variáveis disponíveis nos templates de campanha.
type TemplateData struct {
	Name           string
	FirstName      string
	Email          string
	UnsubscribeURL string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}
