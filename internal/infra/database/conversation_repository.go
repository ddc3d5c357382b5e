package database

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/xavierca1/ligue-crm/internal/entity"
)

type ConversationRepository struct {
	DB *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{DB: db}
}

const conversationColumns = `id, organization_id, phone, contact_name, lead_id, student_id, unread_count, last_message_at, created_at`

// FindOrCreateByPhone cria a conversa na primeira mensagem e já tenta vincular lead/aluno
// pelo telefone.
func (r *ConversationRepository) FindOrCreateByPhone(ctx context.Context, organizationID, phone, contactName string) (*entity.Conversation, error) {
	query := `
		INSERT INTO conversations (id, organization_id, phone, contact_name, lead_id, student_id, unread_count, last_message_at, created_at)
		VALUES (
			$1, $2, $3, $4,
			(SELECT id FROM leads WHERE organization_id = $2 AND phone = $3 AND is_active = TRUE ORDER BY created_at DESC LIMIT 1),
			(SELECT id FROM students WHERE organization_id = $2 AND phone = $3 AND is_active = TRUE ORDER BY created_at DESC LIMIT 1),
			0, NOW(), NOW()
		)
		ON CONFLICT (organization_id, phone) DO UPDATE SET
			contact_name = COALESCE(NULLIF(EXCLUDED.contact_name, ''), conversations.contact_name)
		RETURNING ` + conversationColumns
	return scanConversation(r.DB.QueryRowContext(ctx, query, uuid.New().String(), organizationID, phone, nullString(contactName)))
}

func (r *ConversationRepository) FindByID(ctx context.Context, organizationID, id string) (*entity.Conversation, error) {
	return scanConversation(r.DB.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE organization_id = $1 AND id = $2`, organizationID, id))
}

func (r *ConversationRepository) List(ctx context.Context, organizationID string, limit, offset int) ([]*entity.Conversation, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+conversationColumns+` FROM conversations
		WHERE organization_id = $1 ORDER BY last_message_at DESC LIMIT $2 OFFSET $3`, organizationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*entity.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// AddMessage grava a mensagem e atualiza a conversa na mesma transação. Mensagens recebidas
// incrementam o contador de não lidas.
func (r *ConversationRepository) AddMessage(ctx context.Context, m *entity.Message) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, direction, body, status, provider_message_id, sent_by_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		m.ID,
		m.ConversationID,
		m.Direction,
		m.Body,
		m.Status,
		nullString(m.ProviderMessageID),
		nullString(m.SentByUserID),
		m.CreatedAt,
	)
	if err != nil {
		return mapError(err)
	}

	unread := 0
	if m.Direction == entity.DirectionInbound {
		unread = 1
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET last_message_at = $2, unread_count = unread_count + $3 WHERE id = $1
	`, m.ConversationID, m.CreatedAt, unread); err != nil {
		return fmt.Errorf("erro ao atualizar conversa %s: %w", m.ConversationID, err)
	}

	return tx.Commit()
}

// UpdateMessageStatus fecha o envio de uma mensagem gravada como PENDING.
func (r *ConversationRepository) UpdateMessageStatus(ctx context.Context, id, status, providerMessageID string) error {
	return expectOne(r.DB.ExecContext(ctx,
		`UPDATE messages SET status = $2, provider_message_id = COALESCE($3, provider_message_id) WHERE id = $1`,
		id, status, nullString(providerMessageID)))
}

// ListMessages devolve as últimas `limit` mensagens em ordem cronológica.
func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, conversation_id, direction, body, status, provider_message_id, sent_by_user_id, created_at
		FROM messages WHERE conversation_id = $1
		ORDER BY created_at DESC LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*entity.Message
	for rows.Next() {
		var m entity.Message
		var providerID, sentBy sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.Body, &m.Status, &providerID, &sentBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ProviderMessageID = fromNull(providerID)
		m.SentByUserID = fromNull(sentBy)
		list = append(list, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(list)
	return list, nil
}

func (r *ConversationRepository) MarkRead(ctx context.Context, organizationID, id string) error {
	return expectOne(r.DB.ExecContext(ctx,
		`UPDATE conversations SET unread_count = 0 WHERE organization_id = $1 AND id = $2`, organizationID, id))
}

func scanConversation(row rowScanner) (*entity.Conversation, error) {
	var (
		c                 entity.Conversation
		name, lead, stdnt sql.NullString
	)
	err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.Phone,
		&name,
		&lead,
		&stdnt,
		&c.UnreadCount,
		&c.LastMessageAt,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	c.ContactName = fromNull(name)
	c.LeadID = fromNull(lead)
	c.StudentID = fromNull(stdnt)
	return &c, nil
}
