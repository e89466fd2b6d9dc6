package grievance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/frahmantamala/grievance-management/internal/auth"
	grievanceDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/grievance"
	"github.com/frahmantamala/grievance-management/internal/core/role"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusSolved     = "solved"
	StatusNotSolved  = "not_solved"
	StatusClosed     = "closed"

	transferLabelPrefix = "transferred_to_"
	attachmentURLFormat = "/api/v1/grievances/attachments/%d"
)

var Statuses = []string{StatusPending, StatusInProgress, StatusSolved, StatusNotSolved, StatusClosed}

func IsValidStatus(s string) bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

type Grievance struct {
	ID           int64        `json:"id"`
	TicketID     string       `json:"ticket_id"`
	UserID       int64        `json:"user_id"`
	DepartmentID int64        `json:"department_id"`
	Content      string       `json:"content"`
	AssignedTo   *int64       `json:"assigned_to,omitempty"`
	Status       string       `json:"status"`
	ResolvedBy   *int64       `json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Attachments  []Attachment `json:"attachments"`
}

func (g *Grievance) CanBeResolved() bool {
	return g.Status == StatusPending || g.Status == StatusInProgress
}

func (g *Grievance) CanBeClosed() bool {
	return g.Status == StatusSolved || g.Status == StatusNotSolved
}

// Resource exposes the attributes the policy checks against.
func (g *Grievance) Resource() auth.Resource {
	departmentID := g.DepartmentID
	return auth.Resource{
		DepartmentID: &departmentID,
		OwnerID:      g.UserID,
		AssigneeID:   g.AssignedTo,
	}
}

func (g *Grievance) Resolve(resolverID int64, solved bool, at time.Time) {
	g.Status = StatusNotSolved
	if solved {
		g.Status = StatusSolved
	}
	g.ResolvedBy = &resolverID
	g.ResolvedAt = &at
	g.UpdatedAt = at
}

// TransferTo moves the grievance back into the queue of departmentID.
func (g *Grievance) TransferTo(departmentID int64, at time.Time) {
	g.DepartmentID = departmentID
	g.AssignedTo = nil
	g.Status = StatusPending
	g.UpdatedAt = at
}

type Attachment struct {
	ID          int64     `json:"id"`
	GrievanceID int64     `json:"grievance_id"`
	FilePath    string    `json:"-"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	FileSize    int64     `json:"file_size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

func (a Attachment) FileURL() string {
	return fmt.Sprintf(attachmentURLFormat, a.ID)
}

type AttachmentView struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	FileType   string    `json:"file_type"`
	FileSize   int64     `json:"file_size"`
	FileURL    string    `json:"file_url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (a Attachment) View() AttachmentView {
	return AttachmentView{
		ID:         a.ID,
		FileName:   a.FileName,
		FileType:   a.FileType,
		FileSize:   a.FileSize,
		FileURL:    a.FileURL(),
		UploadedAt: a.UploadedAt,
	}
}

type HistoryEntry struct {
	ID          int64     `json:"id"`
	GrievanceID int64     `json:"grievance_id"`
	Status      string    `json:"status"`
	ChangedByID int64     `json:"changed_by_id"`
	ChangedAt   time.Time `json:"changed_at"`
	Notes       *string   `json:"notes,omitempty"`
}

// View is one of the two grievance projections returned to clients.
type View interface {
	grievanceView()
}

type Full struct {
	ID           int64            `json:"id"`
	TicketID     string           `json:"ticket_id"`
	UserID       int64            `json:"user_id"`
	DepartmentID int64            `json:"department_id"`
	Content      string           `json:"content"`
	AssignedTo   *int64           `json:"assigned_to"`
	Status       string           `json:"status"`
	ResolvedBy   *int64           `json:"resolved_by"`
	ResolvedAt   *time.Time       `json:"resolved_at"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Attachments  []AttachmentView `json:"attachments"`
}

// Limited is what submitters see: no assignee or resolver details.
type Limited struct {
	ID           int64            `json:"id"`
	TicketID     string           `json:"ticket_id"`
	DepartmentID int64            `json:"department_id"`
	Content      string           `json:"content"`
	Status       string           `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Attachments  []AttachmentView `json:"attachments"`
}

func (Full) grievanceView()    {}
func (Limited) grievanceView() {}

func (g *Grievance) attachmentViews() []AttachmentView {
	views := make([]AttachmentView, 0, len(g.Attachments))
	for _, a := range g.Attachments {
		views = append(views, a.View())
	}
	return views
}

func (g *Grievance) Full() Full {
	return Full{
		ID:           g.ID,
		TicketID:     g.TicketID,
		UserID:       g.UserID,
		DepartmentID: g.DepartmentID,
		Content:      g.Content,
		AssignedTo:   g.AssignedTo,
		Status:       g.Status,
		ResolvedBy:   g.ResolvedBy,
		ResolvedAt:   g.ResolvedAt,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
		Attachments:  g.attachmentViews(),
	}
}

func (g *Grievance) Limited() Limited {
	return Limited{
		ID:           g.ID,
		TicketID:     g.TicketID,
		DepartmentID: g.DepartmentID,
		Content:      g.Content,
		Status:       g.Status,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
		Attachments:  g.attachmentViews(),
	}
}

func ProjectFor(actor *auth.Actor, g *Grievance) View {
	if actor != nil && actor.Role == role.User {
		return g.Limited()
	}
	return g.Full()
}

// Slug lowercases name and replaces every run of characters that are not
// letters or digits with a single underscore.
func Slug(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// TransferLabel names the history row of a transfer. Names without letters
// or digits fall back to the department id.
func TransferLabel(departmentName string, departmentID int64) string {
	slug := Slug(departmentName)
	if slug == "" {
		slug = strconv.FormatInt(departmentID, 10)
	}
	return transferLabelPrefix + slug
}

func ToDataModel(g *Grievance) *grievanceDatamodel.Grievance {
	return &grievanceDatamodel.Grievance{
		ID:           g.ID,
		TicketID:     g.TicketID,
		UserID:       g.UserID,
		DepartmentID: g.DepartmentID,
		Content:      g.Content,
		AssignedTo:   g.AssignedTo,
		Status:       g.Status,
		ResolvedBy:   g.ResolvedBy,
		ResolvedAt:   g.ResolvedAt,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func FromDataModel(g *grievanceDatamodel.Grievance, attachments []*grievanceDatamodel.Attachment) *Grievance {
	out := &Grievance{
		ID:           g.ID,
		TicketID:     g.TicketID,
		UserID:       g.UserID,
		DepartmentID: g.DepartmentID,
		Content:      g.Content,
		AssignedTo:   g.AssignedTo,
		Status:       g.Status,
		ResolvedBy:   g.ResolvedBy,
		ResolvedAt:   g.ResolvedAt,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
		Attachments:  make([]Attachment, 0, len(attachments)),
	}
	for _, a := range attachments {
		out.Attachments = append(out.Attachments, AttachmentFromDataModel(a))
	}
	return out
}

func AttachmentFromDataModel(a *grievanceDatamodel.Attachment) Attachment {
	return Attachment{
		ID:          a.ID,
		GrievanceID: a.GrievanceID,
		FilePath:    a.FilePath,
		FileName:    a.FileName,
		FileType:    a.FileType,
		FileSize:    a.FileSize,
		UploadedAt:  a.UploadedAt,
	}
}

func HistoryFromDataModel(h *grievanceDatamodel.StatusHistory) HistoryEntry {
	return HistoryEntry{
		ID:          h.ID,
		GrievanceID: h.GrievanceID,
		Status:      h.Status,
		ChangedByID: h.ChangedByID,
		ChangedAt:   h.ChangedAt,
		Notes:       h.Notes,
	}
}
