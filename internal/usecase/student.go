package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type CreateStudentInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	CPF        string `json:"cpf"`
	BirthDate  string `json:"birth_date"`
	LeadID     string `json:"lead_id"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
}

type UpdateStudentInput struct {
	Name      *string         `json:"name"`
	Email     *string         `json:"email"`
	Phone     *string         `json:"phone"`
	CPF       *string         `json:"cpf"`
	BirthDate *string         `json:"birth_date"`
	Address   *entity.Address `json:"address"`
}

type StudentUseCase struct {
	Repo     entity.StudentRepositoryInterface
	Contacts entity.EmailContactRepositoryInterface
	Auditor  Auditor
}

func NewStudentUseCase(repo entity.StudentRepositoryInterface, contacts entity.EmailContactRepositoryInterface, auditor Auditor) *StudentUseCase {
	if auditor == nil {
		auditor = nopAuditor{}
	}
	return &StudentUseCase{Repo: repo, Contacts: contacts, Auditor: auditor}
}

func (uc *StudentUseCase) CreateStudent(ctx context.Context, actor Actor, input CreateStudentInput) (*entity.Student, error) {
	if errs := ValidateStudentInput(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	student, err := entity.NewStudent(actor.OrganizationID, input.Name, input.Email, input.Phone, input.CPF)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidCPF) {
			return nil, &DomainError{Code: CodeInvalidCPF, Message: "CPF inválido"}
		}
		return nil, &DomainError{Code: CodeValidation, Message: err.Error()}
	}

	if student.Phone != "" {
		student.Phone = NormalizePhone(student.Phone)
	}
	if input.BirthDate != "" {
		student.BirthDate, _ = parseBRDate(input.BirthDate)
	}
	student.LeadID = input.LeadID
	student.Address = entity.Address{
		Street:     input.Street,
		Number:     input.Number,
		Complement: input.Complement,
		District:   input.District,
		City:       input.City,
		State:      strings.ToUpper(input.State),
		ZipCode:    nonDigits.ReplaceAllString(input.ZipCode, ""),
	}

	if err := uc.ensureUniqueCPF(ctx, actor.OrganizationID, student.CPF, ""); err != nil {
		return nil, err
	}

	if err := uc.Repo.Create(ctx, student); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			return nil, conflict("CPF já cadastrado")
		}
		return nil, dbError("failed to create student", err)
	}

	uc.Auditor.Audit(ctx, actor, "student.created", entity.SubjectStudent, student.ID, map[string]any{"lead_id": student.LeadID})
	log.Printf("🎓 Aluno criado: %s (org %s)", student.ID, student.OrganizationID)
	return student, nil
}

func (uc *StudentUseCase) ensureUniqueCPF(ctx context.Context, organizationID, cpf, selfID string) error {
	existing, err := uc.Repo.FindByCPF(ctx, organizationID, cpf)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil
		}
		return dbError("failed to check CPF", err)
	}
	if existing.ID != selfID && existing.IsActive {
		return conflict("CPF já cadastrado")
	}
	return nil
}

// CheckCPF valida o CPF e avisa se já existe aluno ativo com ele (pré-checagem do formulário).
func (uc *StudentUseCase) CheckCPF(ctx context.Context, actor Actor, cpf string) error {
	if !entity.ValidateCPF(cpf) {
		return &DomainError{Code: CodeInvalidCPF, Message: "CPF inválido"}
	}
	return uc.ensureUniqueCPF(ctx, actor.OrganizationID, entity.NormalizeCPF(cpf), "")
}

func (uc *StudentUseCase) GetStudent(ctx context.Context, actor Actor, id string) (*entity.Student, error) {
	return uc.find(ctx, actor.OrganizationID, id)
}

func (uc *StudentUseCase) ListStudents(ctx context.Context, actor Actor, filter entity.StudentFilter) ([]*entity.Student, error) {
	filter.Limit = clampLimit(filter.Limit)
	students, err := uc.Repo.List(ctx, actor.OrganizationID, filter)
	if err != nil {
		return nil, dbError("failed to list students", err)
	}
	return students, nil
}

func (uc *StudentUseCase) UpdateStudent(ctx context.Context, actor Actor, id string, input UpdateStudentInput) (*entity.Student, error) {
	student, err := uc.find(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if student.AnonymizedAt != nil {
		return nil, &DomainError{Code: CodeInvalidStep, Message: "aluno anonimizado não pode ser alterado"}
	}

	var errs []ValidationError
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len(name) < 3 {
			errs = append(errs, ValidationError{"name", "must have at least 3 characters"})
		}
		student.Name = name
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != "" && !isValidEmail(email) {
			errs = append(errs, ValidationError{"email", "is invalid"})
		}
		student.Email = email
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone != "" {
			if !isValidPhoneNumber(phone) {
				errs = append(errs, ValidationError{"phone", "must be a valid phone number"})
			}
			phone = NormalizePhone(phone)
		}
		student.Phone = phone
	}
	if input.BirthDate != nil {
		if *input.BirthDate == "" {
			student.BirthDate = ""
		} else if d, ok := parseBRDate(*input.BirthDate); ok {
			student.BirthDate = d
		} else {
			errs = append(errs, ValidationError{"birth_date", "must be a valid date (YYYY-MM-DD)"})
		}
	}
	if input.Address != nil {
		addr := *input.Address
		if addr.ZipCode != "" && !isValidZipCode(addr.ZipCode) {
			errs = append(errs, ValidationError{"zip_code", "must be a valid zip code (XXXXX-XXX)"})
		}
		addr.ZipCode = nonDigits.ReplaceAllString(addr.ZipCode, "")
		addr.State = strings.ToUpper(addr.State)
		student.Address = addr
	}
	cpfChanged := false
	if input.CPF != nil {
		cpf := entity.NormalizeCPF(*input.CPF)
		if !entity.ValidateCPF(cpf) {
			return nil, &DomainError{Code: CodeInvalidCPF, Message: "CPF inválido"}
		}
		cpfChanged = cpf != student.CPF
		student.CPF = cpf
	}
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	if cpfChanged {
		if err := uc.ensureUniqueCPF(ctx, actor.OrganizationID, student.CPF, student.ID); err != nil {
			return nil, err
		}
	}

	student.UpdatedAt = time.Now()
	if err := uc.Repo.Update(ctx, student); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			return nil, conflict("CPF já cadastrado")
		}
		return nil, dbError("failed to update student", err)
	}

	uc.Auditor.Audit(ctx, actor, "student.updated", entity.SubjectStudent, student.ID, nil)
	return student, nil
}

func (uc *StudentUseCase) DeactivateStudent(ctx context.Context, actor Actor, id string) error {
	if !actor.CanManage() {
		return forbidden("apenas administradores e gestores podem desativar alunos")
	}

	student, err := uc.find(ctx, actor.OrganizationID, id)
	if err != nil {
		return err
	}
	if !student.IsActive {
		return nil
	}

	student.IsActive = false
	student.UpdatedAt = time.Now()
	if err := uc.Repo.Update(ctx, student); err != nil {
		return dbError("failed to deactivate student", err)
	}

	uc.Auditor.Audit(ctx, actor, "student.deactivated", entity.SubjectStudent, student.ID, nil)
	return nil
}

// AnonymizeStudent atende o direito de eliminação da LGPD: apaga os dados pessoais e mantém
// matrículas e cobranças, que têm base legal própria (obrigação fiscal).
func (uc *StudentUseCase) AnonymizeStudent(ctx context.Context, actor Actor, id string) error {
	if !actor.IsAdmin() {
		return forbidden("apenas administradores podem anonimizar titulares")
	}

	student, err := uc.find(ctx, actor.OrganizationID, id)
	if err != nil {
		return err
	}
	if student.AnonymizedAt != nil {
		return nil
	}

	email := student.Email
	now := time.Now()
	student.Name = "Titular anonimizado"
	student.Email = ""
	student.Phone = ""
	student.CPF = ""
	student.BirthDate = ""
	student.Address = entity.Address{}
	student.IsActive = false
	student.AnonymizedAt = &now
	student.UpdatedAt = now

	if err := uc.Repo.Update(ctx, student); err != nil {
		return dbError("failed to anonymize student", err)
	}

	if uc.Contacts != nil && email != "" {
		if err := uc.Contacts.Unsubscribe(ctx, actor.OrganizationID, email); err != nil {
			log.Printf("⚠️ Falha ao descadastrar contato do aluno anonimizado %s: %v", student.ID, err)
		}
	}

	uc.Auditor.Audit(ctx, actor, "student.anonymized", entity.SubjectStudent, student.ID, nil)
	log.Printf("🧹 Aluno %s anonimizado (LGPD)", student.ID)
	return nil
}

func (uc *StudentUseCase) find(ctx context.Context, organizationID, id string) (*entity.Student, error) {
	student, err := uc.Repo.FindByID(ctx, organizationID, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, notFound("aluno")
		}
		return nil, dbError("failed to load student", err)
	}
	return student, nil
}
