package models

import (
	"encoding/json"
	"time"
)

// Project status constants
const (
	ProjectDraft     = "draft"
	ProjectReady     = "ready"
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectArchived  = "archived"
)

// Devis (quote) status constants
const (
	DevisSent     = "sent"
	DevisApproved = "approved"
	DevisRejected = "rejected"
)

// Approval and comment roles as stored in the database
const (
	RoleClient     = "client"
	RoleContractor = "contractor"
)

// Role keys used by the JSON materials document
const (
	RoleKeyClient = "client"
	RoleKeyCray   = "cray"
)

// Approval status constants
const (
	ApprovalApproved    = "approved"
	ApprovalRejected    = "rejected"
	ApprovalChangeOrder = "change_order"
	ApprovalPending     = "pending"
	ApprovalSuppliedBy  = "supplied_by"
)

// Delivery status constants
const (
	DeliveryPending   = "pending"
	DeliveryOrdered   = "ordered"
	DeliveryShipped   = "shipped"
	DeliveryDelivered = "delivered"
	DeliveryCancelled = "cancelled"
)

// Edit history sources
const (
	SourceManual = "manual"
	SourceAgent  = "agent"
)

// User roles
const (
	UserAdmin      = "admin"
	UserContractor = "contractor"
	UserClient     = "client"
	UserWorker     = "worker"
)

// Agent action kinds
const (
	ActionUpdateItemApproval   = "update_item_approval"
	ActionAddReplacementURL    = "add_replacement_url"
	ActionRemoveReplacementURL = "remove_replacement_url"
	ActionUpdateItemField      = "update_item_field"
)

// Action execution statuses
const (
	StatusRequiresConfirmation = "requires_confirmation"
	StatusSuccess              = "success"
	StatusAlreadyExecuted      = "already_executed"
)

// Materials document (the shape the frontend reads and writes)

type MaterialsDocument struct {
	Currency string       `json:"currency,omitempty"`
	Sections []SectionDoc `json:"sections"`
}

type SectionDoc struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	Items []ItemDoc `json:"items"`
}

type ItemDoc struct {
	Product      string       `json:"product"`
	Reference    *string      `json:"reference"`
	SupplierLink *string      `json:"supplierLink"`
	LaborType    *string      `json:"laborType,omitempty"`
	Price        PriceDoc     `json:"price"`
	Approvals    ApprovalsDoc `json:"approvals"`
	Order        OrderDoc     `json:"order"`
	Comments     CommentsDoc  `json:"comments"`
	Chantier     *string      `json:"chantier,omitempty"`
}

type PriceDoc struct {
	TTC     *float64 `json:"ttc"`
	HTQuote *float64 `json:"htQuote"`
}

type ApprovalsDoc struct {
	Client ApprovalDoc `json:"client"`
	Cray   ApprovalDoc `json:"cray"`
}

type ApprovalDoc struct {
	Status          *string  `json:"status,omitempty"`
	Note            *string  `json:"note,omitempty"`
	ValidatedAt     *string  `json:"validatedAt,omitempty"`
	ReplacementURLs []string `json:"replacementUrls,omitempty"`
}

type OrderDoc struct {
	Ordered   *bool        `json:"ordered,omitempty"`
	OrderDate *string      `json:"orderDate,omitempty"`
	Delivery  *DeliveryDoc `json:"delivery,omitempty"`
	Quantity  *int         `json:"quantity,omitempty"`
}

// IsEmpty reports whether the order carries no information at all
func (o OrderDoc) IsEmpty() bool {
	return o.Ordered == nil && o.OrderDate == nil && o.Delivery == nil && o.Quantity == nil
}

type DeliveryDoc struct {
	Date   *string `json:"date"`
	Status *string `json:"status"`
}

type CommentsDoc struct {
	Client *string `json:"client"`
	Cray   *string `json:"cray"`
}

// Domain types

type Project struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Address        *string    `json:"address"`
	ClientName     *string    `json:"clientName"`
	Status         string     `json:"status"`
	DevisStatus    *string    `json:"devisStatus"`
	InvoiceCount   int        `json:"invoiceCount"`
	PercentagePaid int        `json:"percentagePaid"`
	StartDate      *time.Time `json:"startDate"`
	EndDate        *time.Time `json:"endDate"`
	IsDemo         bool       `json:"isDemo"`
	HasData        bool       `json:"hasData"`
	Hidden         bool       `json:"hidden"`
	IsSystem       bool       `json:"isSystem"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// ChantierName is how a project is referred to from materials and jobs
func (p Project) ChantierName() string {
	if p.Address != nil && *p.Address != "" {
		return *p.Address
	}
	return p.Name
}

type Worker struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email *string     `json:"email"`
	Phone *string     `json:"phone"`
	Jobs  []WorkerJob `json:"jobs"`
}

type WorkerJob struct {
	ID           string     `json:"id"`
	ProjectID    *string    `json:"projectId,omitempty"`
	ChantierName string     `json:"chantierName"`
	JobType      *string    `json:"jobType"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
}

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	HasPassword  bool       `json:"has_password"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login"`
}

type EditHistoryEntry struct {
	ID           int64           `json:"id"`
	ItemID       *int64          `json:"item_id"`
	SectionID    *string         `json:"section_id"`
	SectionLabel *string         `json:"section_label"`
	Product      *string         `json:"product"`
	FieldPath    string          `json:"field_path"`
	OldValue     json.RawMessage `json:"old_value"`
	NewValue     json.RawMessage `json:"new_value"`
	Source       string          `json:"source"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Agent query rows

type ValidationItem struct {
	ItemID       int64   `json:"item_id"`
	SectionID    string  `json:"section_id"`
	SectionLabel string  `json:"section_label"`
	Product      string  `json:"product"`
	Status       *string `json:"status"`
}

type TodoItem struct {
	ItemID       int64   `json:"item_id"`
	SectionID    string  `json:"section_id"`
	SectionLabel string  `json:"section_label"`
	Product      string  `json:"product"`
	ActionReason string  `json:"action_reason"`
	LaborType    *string `json:"labor_type"`
}

type PricingSummary struct {
	TotalTTC  float64 `json:"total_ttc"`
	TotalHT   float64 `json:"total_ht"`
	ItemCount int     `json:"item_count"`
}

type SectionItem struct {
	ItemID           int64    `json:"item_id"`
	Product          string   `json:"product"`
	Reference        *string  `json:"reference"`
	PriceTTC         *float64 `json:"price_ttc"`
	PriceHTQuote     *float64 `json:"price_ht_quote"`
	LaborType        *string  `json:"labor_type"`
	ClientStatus     *string  `json:"client_status"`
	ContractorStatus *string  `json:"contractor_status"`
	Ordered          *bool    `json:"ordered"`
	DeliveryDate     *string  `json:"delivery_date"`
}

type SearchResult struct {
	ItemID       int64   `json:"item_id"`
	SectionID    string  `json:"section_id"`
	SectionLabel string  `json:"section_label"`
	Product      string  `json:"product"`
	Reference    *string `json:"reference"`
}

// ActionPreview describes a proposed change. It carries everything needed
// to apply the change later, so nothing but this value is stored.
type ActionPreview struct {
	Action       string `json:"action"`
	ItemID       int64  `json:"item_id"`
	ItemProduct  string `json:"item_product"`
	SectionID    string `json:"section_id"`
	SectionLabel string `json:"section_label"`
	Role         string `json:"role,omitempty"`
	FieldName    string `json:"field_name,omitempty"`
	FieldPath    string `json:"field_path"`
	CurrentValue any    `json:"current_value"`
	NewValue     any    `json:"new_value"`
	URL          string `json:"url,omitempty"`
	NLP          string `json:"nlp"`
}

type ActionResult struct {
	Success bool `json:"success"`
}

// Request types

type UpdateMaterialsRequest struct {
	Materials *MaterialsDocument `json:"materials"`
	ProjectID string             `json:"project_id,omitempty"`
}

type UpdateCellRequest struct {
	SectionID           string          `json:"section_id"`
	ItemIndex           *int            `json:"item_index"`
	FieldPath           string          `json:"field_path"`
	NewValue            json.RawMessage `json:"new_value"`
	ExpectedProductHint string          `json:"expected_product_hint,omitempty"`
}

// ProjectInput is used for create and partial update; nil fields are untouched
type ProjectInput struct {
	ID             *string `json:"id"`
	Name           *string `json:"name"`
	Address        *string `json:"address"`
	ClientName     *string `json:"clientName"`
	Status         *string `json:"status"`
	DevisStatus    *string `json:"devisStatus"`
	InvoiceCount   *int    `json:"invoiceCount"`
	PercentagePaid *int    `json:"percentagePaid"`
	StartDate      *string `json:"startDate"`
	EndDate        *string `json:"endDate"`
	IsDemo         *bool   `json:"isDemo"`
	HasData        *bool   `json:"hasData"`
	Hidden         *bool   `json:"hidden"`
}

type WorkerInput struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Email *string          `json:"email"`
	Phone *string          `json:"phone"`
	Jobs  []WorkerJobInput `json:"jobs"`
}

type WorkerJobInput struct {
	ID           string  `json:"id"`
	ChantierName string  `json:"chantierName"`
	JobType      *string `json:"jobType"`
	StartDate    string  `json:"startDate"`
	EndDate      *string `json:"endDate"`
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type QueryRequest struct {
	Prompt         string             `json:"prompt"`
	Language       string             `json:"language,omitempty"`
	Materials      *MaterialsDocument `json:"materials,omitempty"`
	CustomTables   json.RawMessage    `json:"customTables,omitempty"`
	ProjectID      string             `json:"project_id,omitempty"`
	UserRole       string             `json:"user_role,omitempty"`
	ConversationID string             `json:"conversation_id,omitempty"`
}

type ConfirmActionRequest struct {
	ActionID string `json:"action_id"`
}

// Response types

type StatusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type PendingAction struct {
	Status    string        `json:"status"`
	ActionID  string        `json:"action_id"`
	Preview   ActionPreview `json:"preview"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type ActionPreviewResponse struct {
	ActionID  string        `json:"action_id"`
	Preview   ActionPreview `json:"preview"`
	Executed  bool          `json:"executed"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type ExecuteActionResponse struct {
	Status   string         `json:"status"`
	ActionID string         `json:"action_id"`
	Result   *ActionResult  `json:"result,omitempty"`
	Preview  *ActionPreview `json:"preview,omitempty"`
}

type QueryResponse struct {
	Answer         string                 `json:"answer"`
	Language       string                 `json:"language"`
	PendingAction  *PendingAction         `json:"pending_action,omitempty"`
	ExecutedAction *ExecuteActionResponse `json:"executed_action,omitempty"`
}

type ProjectsResponse struct {
	Projects []Project `json:"projects"`
}

type WorkersResponse struct {
	Workers []Worker `json:"workers"`
}

type UsersResponse struct {
	Users []User `json:"users"`
}

type RolesResponse struct {
	Roles []string `json:"roles"`
}

type EditHistoryResponse struct {
	Entries []EditHistoryEntry `json:"entries"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
