package usecase

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ValidateLeadInput(input CreateLeadInput) []ValidationError {
	var errors []ValidationError

	if len(input.Name) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}

	email := strings.TrimSpace(input.Email)
	phone := strings.TrimSpace(input.Phone)
	if email == "" && phone == "" {
		errors = append(errors, ValidationError{"email", "email or phone is required"})
	}
	if email != "" && !isValidEmail(email) {
		errors = append(errors, ValidationError{"email", "is invalid"})
	}
	if phone != "" && !isValidPhoneNumber(phone) {
		errors = append(errors, ValidationError{"phone", "must be a valid phone number"})
	}
	if input.CPF != "" && !entity.ValidateCPF(input.CPF) {
		errors = append(errors, ValidationError{"cpf", "is invalid"})
	}

	return errors
}

func ValidateStudentInput(input CreateStudentInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.Name) == "" {
		errors = append(errors, ValidationError{"name", "is required"})
	} else if len(input.Name) < 3 {
		errors = append(errors, ValidationError{"name", "must have at least 3 characters"})
	} else if len(input.Name) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}

	if input.CPF == "" {
		errors = append(errors, ValidationError{"cpf", "is required"})
	} else if !entity.ValidateCPF(input.CPF) {
		errors = append(errors, ValidationError{"cpf", "is invalid"})
	}

	if strings.TrimSpace(input.Email) != "" && !isValidEmail(input.Email) {
		errors = append(errors, ValidationError{"email", "is invalid"})
	}
	if strings.TrimSpace(input.Phone) != "" && !isValidPhoneNumber(input.Phone) {
		errors = append(errors, ValidationError{"phone", "must be a valid phone number"})
	}
	if strings.TrimSpace(input.BirthDate) != "" {
		if _, ok := parseBRDate(input.BirthDate); !ok {
			errors = append(errors, ValidationError{"birth_date", "must be a valid date (YYYY-MM-DD)"})
		}
	}
	if input.ZipCode != "" && !isValidZipCode(input.ZipCode) {
		errors = append(errors, ValidationError{"zip_code", "must be a valid zip code (XXXXX-XXX)"})
	}

	return errors
}

var nonDigits = regexp.MustCompile(`\D`)

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	return err == nil && addr.Address == strings.TrimSpace(email)
}

func isValidPhoneNumber(phone string) bool {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	cleaned = strings.TrimPrefix(cleaned, "55")
	return len(cleaned) >= 10 && len(cleaned) <= 11
}

// NormalizePhone mantém só os dígitos e prefixa o 55, como o WhatsApp espera.
func NormalizePhone(phone string) string {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	if cleaned == "" {
		return ""
	}
	if len(cleaned) <= 11 {
		cleaned = "55" + cleaned
	}
	return cleaned
}

// parseBRDate aceita dd/mm/aaaa e datas ISO e devolve AAAA-MM-DD.
func parseBRDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "02/01/2006", "2/1/2006", "02-01-2006", "02.01.2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func isValidZipCode(zipcode string) bool {
	cleaned := nonDigits.ReplaceAllString(zipcode, "")
	return len(cleaned) == 8
}
