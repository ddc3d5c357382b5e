package importer

// Field é uma coluna de destino de um schema de importação.
type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Aliases  []string  `json:"aliases,omitempty"`
	Type     ValueType `json:"type"`
	Required bool      `json:"required"`
}

type Schema struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

var LeadSchema = Schema{
	Name: "lead",
	Fields: []Field{
		{Name: "name", Label: "Nome", Aliases: []string{"nome completo", "cliente", "full name", "lead"}, Type: TypeText, Required: true},
		{Name: "email", Label: "E-mail", Aliases: []string{"email", "correio eletronico", "e mail"}, Type: TypeEmail},
		{Name: "phone", Label: "Telefone", Aliases: []string{"celular", "whatsapp", "fone", "tel", "phone"}, Type: TypePhone},
		{Name: "cpf", Label: "CPF", Aliases: []string{"documento", "cpf cnpj"}, Type: TypeCPF},
		{Name: "source", Label: "Origem", Aliases: []string{"fonte", "canal", "source"}, Type: TypeText},
		{Name: "interest", Label: "Interesse", Aliases: []string{"curso", "procedimento", "produto"}, Type: TypeText},
		{Name: "notes", Label: "Observações", Aliases: []string{"obs", "anotacoes", "comentarios"}, Type: TypeText},
		{Name: "tags", Label: "Tags", Aliases: []string{"etiquetas", "marcadores"}, Type: TypeText},
	},
}

var StudentSchema = Schema{
	Name: "student",
	Fields: []Field{
		{Name: "name", Label: "Nome", Aliases: []string{"nome completo", "aluno", "aluna", "full name"}, Type: TypeText, Required: true},
		{Name: "cpf", Label: "CPF", Aliases: []string{"documento", "cpf do aluno"}, Type: TypeCPF, Required: true},
		{Name: "email", Label: "E-mail", Aliases: []string{"email", "e mail"}, Type: TypeEmail},
		{Name: "phone", Label: "Telefone", Aliases: []string{"celular", "whatsapp", "fone"}, Type: TypePhone},
		{Name: "birth_date", Label: "Data de nascimento", Aliases: []string{"nascimento", "data nasc", "dt nascimento"}, Type: TypeDate},
		{Name: "zip_code", Label: "CEP", Aliases: []string{"codigo postal"}, Type: TypeNumber},
		{Name: "street", Label: "Endereço", Aliases: []string{"rua", "logradouro"}, Type: TypeText},
		{Name: "number", Label: "Número", Aliases: []string{"num", "nro"}, Type: TypeNumber},
		{Name: "district", Label: "Bairro", Type: TypeText},
		{Name: "city", Label: "Cidade", Aliases: []string{"municipio"}, Type: TypeText},
		{Name: "state", Label: "Estado", Aliases: []string{"uf"}, Type: TypeText},
	},
}

// SchemaByName devolve LeadSchema ou StudentSchema.
func SchemaByName(name string) (Schema, bool) {
	switch name {
	case LeadSchema.Name:
		return LeadSchema, true
	case StudentSchema.Name:
		return StudentSchema, true
	}
	return Schema{}, false
}
