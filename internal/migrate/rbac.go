package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/silverquant/tierstore/internal/storage/mysqlstore"
)

// UsersDoc mirrors a users.json provisioning file: the permission
// catalog, the roles granting them, and the operator accounts holding
// the roles.
type UsersDoc struct {
	Permissions []PermissionEntry `json:"permissions"`
	Roles       []RoleEntry       `json:"roles"`
	Users       []UserEntry       `json:"users"`
}

type PermissionEntry struct {
	Name        string `json:"name"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

type RoleEntry struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type UserEntry struct {
	Username     string   `json:"username"`
	PasswordHash string   `json:"password_hash"`
	Email        string   `json:"email"`
	Roles        []string `json:"roles"`
}

// ReadUsersDoc parses a users.json provisioning file.
func ReadUsersDoc(path string) (UsersDoc, error) {
	var doc UsersDoc
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decoding %s: %w", path, err)
	}
	return doc, nil
}

// Users provisions operators from users.json into the MySQL access
// tables. Permissions land first, then roles with their grants, then
// users with their role assignments, so every link has both sides.
// Records already present count as skipped, not failures.
func Users(ctx context.Context, dst *mysqlstore.Store, jsonPath string, dryRun bool, log zerolog.Logger) (Report, error) {
	report := Report{Task: "users"}
	start := time.Now()

	doc, err := ReadUsersDoc(jsonPath)
	if err != nil {
		return report, err
	}
	report.Total = len(doc.Permissions) + len(doc.Roles) + len(doc.Users)

	count := func(created bool, err error, kind, name string) {
		switch {
		case err != nil:
			report.Failed++
			log.Error().Err(err).Str(kind, name).Msg("user migration failed")
		case !created:
			report.Skipped++
			log.Debug().Str(kind, name).Msg("already present")
		default:
			report.Success++
		}
	}

	for _, p := range doc.Permissions {
		if dryRun {
			report.Skipped++
			continue
		}
		created, err := dst.CreatePermission(ctx, p.Name, p.Resource, p.Action, p.Description)
		count(created, err, "permission", p.Name)
	}

	for _, r := range doc.Roles {
		if dryRun {
			report.Skipped++
			continue
		}
		created, err := dst.CreateRole(ctx, r.Name, r.Description)
		count(created, err, "role", r.Name)
		if err != nil {
			continue
		}
		for _, perm := range r.Permissions {
			if _, err := dst.GrantPermission(ctx, r.Name, perm); err != nil {
				log.Warn().Err(err).Str("role", r.Name).Str("permission", perm).Msg("grant failed")
			}
		}
	}

	for _, u := range doc.Users {
		if dryRun {
			report.Skipped++
			continue
		}
		created, err := dst.CreateUser(ctx, u.Username, u.PasswordHash, u.Email)
		count(created, err, "user", u.Username)
		if err != nil {
			continue
		}
		for _, role := range u.Roles {
			if _, err := dst.AssignRole(ctx, u.Username, role); err != nil {
				log.Warn().Err(err).Str("user", u.Username).Str("role", role).Msg("role assignment failed")
			}
		}
	}

	report.Elapsed = time.Since(start)
	log.Info().Str("report", report.String()).Msg("user migration finished")
	return report, nil
}
