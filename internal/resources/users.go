package resources

import (
	"context"
	"strings"

	"github.com/isdelr/bizops-api/internal/auth"
	"github.com/isdelr/bizops-api/internal/models"
	"github.com/isdelr/bizops-api/internal/query"
	"github.com/isdelr/bizops-api/internal/schema"
	"github.com/isdelr/bizops-api/internal/services"
	"gorm.io/gorm"
)

// UserPayload is the write payload of the users resource.
type UserPayload struct {
	Name     *string `json:"name" validate:"required_on_create,omitempty,max=255"`
	Email    *string `json:"email" validate:"required_on_create,omitempty,email,max=255"`
	Password *string `json:"password" validate:"required_on_create,omitempty,min=8,max_bytes=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin staff"`
	Active   *bool   `json:"active"`
}

// Users defines the users resource. Only administrators may change accounts.
func Users() *services.Resource[models.User, UserPayload] {
	roles := schema.Options(models.RoleAdmin, models.RoleStaff)

	return &services.Resource[models.User, UserPayload]{
		Name:     "users",
		Singular: "user",
		Query: query.Config{
			Searchable:  []string{"name", "email"},
			Sortable:    []string{"id", "name", "email", "role", "created_at"},
			DefaultSort: "name",
			Filters: []query.Filter{
				{Key: "admins", Label: "Administrators", Scope: where("role = ?", models.RoleAdmin)},
				{Key: "staff", Label: "Staff", Scope: where("role = ?", models.RoleStaff)},
				{Key: "inactive", Label: "Inactive", Scope: where("active = ?", false)},
			},
		},
		Schema: []schema.Group{
			{Group: "Account", Fields: []schema.Field{
				schema.NewField("name", "Name", schema.TypeText).IsRequired(),
				schema.NewField("email", "Email", schema.TypeEmail).IsRequired(),
				schema.NewField("password", "Password", schema.TypePassword).IsRequired().
					WithHelp("At least 8 characters. Leave empty to keep the current password."),
			}},
			{Group: "Access", Fields: []schema.Field{
				schema.NewField("role", "Role", schema.TypeSelect).WithOptions(roles...).WithDefault(models.RoleStaff),
				schema.NewField("active", "Active", schema.TypeCheckbox).WithDefault(true),
			}},
		},
		Columns: []schema.Column{
			schema.NewColumn("id", "ID").Sorted().As(schema.FormatNumber),
			schema.NewColumn("name", "Name").Sorted().Searched().Linked(),
			schema.NewColumn("email", "Email").Sorted().Searched(),
			schema.NewColumn("role", "Role").Sorted().As(schema.FormatBadge),
			schema.NewColumn("active", "Active").As(schema.FormatBoolean),
			schema.NewColumn("created_at", "Created").Sorted().As(schema.FormatDateTime),
		},
		Apply:     applyUser,
		Authorize: authorizeUser,
		Label:     func(u *models.User) string { return u.Email },
	}
}

func applyUser(_ context.Context, _ *gorm.DB, p *UserPayload, rec *models.User, creating bool) error {
	if creating {
		rec.Role = models.RoleStaff
		rec.Active = true
	}
	if p.Name != nil {
		rec.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		rec.Email = services.NormalizeEmail(*p.Email)
	}
	if p.Password != nil {
		hashed, err := services.HashPassword(*p.Password)
		if err != nil {
			return err
		}
		rec.PasswordHash = hashed
	}
	if p.Role != nil {
		rec.Role = *p.Role
	}
	if p.Active != nil {
		rec.Active = *p.Active
	}
	return nil
}

func authorizeUser(ctx context.Context, action services.Action, rec *models.User) error {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok || !claims.IsAdmin() {
		return services.ErrForbidden
	}
	if action == services.ActionDelete && rec != nil && rec.ID == claims.UserID {
		return services.ErrForbidden
	}
	return nil
}
