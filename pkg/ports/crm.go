package ports

import "context"

// CRM entity types understood by bitrix_crm and validation_bitrix nodes.
const (
	EntityLead    = "lead"
	EntityDeal    = "deal"
	EntityContact = "contact"
	EntityCompany = "company"
)

// CRMClient is the narrow contract to the external CRM/ticketing subsystem.
// All methods operate on generic field maps; the engine never interprets
// CRM-specific schemas beyond the fields a flow names explicitly.
type CRMClient interface {
	// GetEntity fetches an entity by explicit id.
	GetEntity(ctx context.Context, entityType, id string) (map[string]any, error)

	// FindByField returns the first entity whose field matches value, or nil.
	FindByField(ctx context.Context, entityType, field, value string) (map[string]any, error)

	// CreateEntity creates an entity and returns its new id.
	CreateEntity(ctx context.Context, entityType string, fields map[string]any) (string, error)

	// UpdateEntity overwrites the given fields on an existing entity.
	UpdateEntity(ctx context.Context, entityType, id string, fields map[string]any) error

	// DeleteEntity removes an entity.
	DeleteEntity(ctx context.Context, entityType, id string) error

	// SearchEntities returns all entities matching the filter.
	SearchEntities(ctx context.Context, entityType string, filter map[string]any) ([]map[string]any, error)

	// EntityByContact fetches the entity associated with the contact
	// identifier (phone/email/external id depending on the backend). Used for
	// {{entity:FIELD}} interpolation; callers fetch at most once per message.
	EntityByContact(ctx context.Context, entityType, contactID string) (map[string]any, error)

	// FieldValue looks up one field of the entity identified by the contact
	// identifier.
	FieldValue(ctx context.Context, entityType, contactID, field string) (string, error)
}
