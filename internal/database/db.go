package database

import (
	"log"

	"procurehub/internal/kvstore"
	"procurehub/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM. The startup
// ping is disabled so a temporarily unreachable database still yields a
// usable handle; queries fail at call time and the demo login fallback
// takes over until the database comes back.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Requirement{},
		&model.Draft{},
		&model.ApprovalMatrix{},
		&model.ApprovalMatrixLevel{},
		&model.ApprovalWorkflow{},
		&model.WorkflowLevel{},
		&model.ApproverDecision{},
		&model.AuditLog{},
		&model.Role{},
		&model.Permission{},
		&model.DropdownOption{},
		&kvstore.KVEntry{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// SeedPermissions creates the built-in roles and their permission grants if
// they do not exist yet. Safe to run on every startup.
func SeedPermissions(db *gorm.DB) error {
	perms := []model.Permission{
		{Code: "requirements.read", Name: "View requirements", Group: "requirements"},
		{Code: "requirements.write", Name: "Create and edit requirements", Group: "requirements"},
		{Code: "requirements.publish", Name: "Publish requirements", Group: "requirements"},
		{Code: "approvals.read", Name: "View approval workflows", Group: "approvals"},
		{Code: "approvals.decide", Name: "Approve or reject requirements", Group: "approvals"},
		{Code: "users.read", Name: "View users", Group: "users"},
		{Code: "users.write", Name: "Create and edit users", Group: "users"},
		{Code: "users.delete", Name: "Delete users", Group: "users"},
		{Code: "users.verify", Name: "Adjudicate verification requests", Group: "users"},
		{Code: "audit.read", Name: "View audit logs", Group: "audit"},
	}
	for i := range perms {
		if err := db.Where(model.Permission{Code: perms[i].Code}).FirstOrCreate(&perms[i]).Error; err != nil {
			return err
		}
	}

	byCode := make(map[string]model.Permission, len(perms))
	for _, p := range perms {
		byCode[p.Code] = p
	}
	grant := func(codes ...string) []model.Permission {
		out := make([]model.Permission, 0, len(codes))
		for _, c := range codes {
			out = append(out, byCode[c])
		}
		return out
	}

	roles := []model.Role{
		{Name: model.RoleAdmin, Description: "Platform administrator", IsSystem: true,
			Permissions: perms},
		{Name: model.RoleIndustry, Description: "Industry buyer", IsSystem: true,
			Permissions: grant("requirements.read", "requirements.write", "requirements.publish", "approvals.read", "approvals.decide")},
		{Name: model.RoleVendor, Description: "Vendor", IsSystem: true,
			Permissions: grant("requirements.read")},
		{Name: model.RoleProfessional, Description: "Independent professional", IsSystem: true,
			Permissions: grant("requirements.read")},
	}
	for i := range roles {
		var existing model.Role
		err := db.Where("name = ?", roles[i].Name).First(&existing).Error
		if err == nil {
			continue
		}
		if err := db.Create(&roles[i]).Error; err != nil {
			return err
		}
	}

	return nil
}
