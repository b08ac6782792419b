// Package electoral imports verified office holders from the legacy
// electoral-results registry (SQL Server) into the organizational
// directory. One-shot: run at startup when the import flag is set, or
// from an operational task.
package electoral

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/rs/zerolog"

	"github.com/impulso-digital/plataforma/internal/directory"
	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/config"
	"github.com/impulso-digital/plataforma/internal/shared/errors"
	"github.com/impulso-digital/plataforma/internal/shared/types"
)

// CreatedByImport marks directory members that came from the registry.
const CreatedByImport = "electoral_import"

// officeRoles maps registry office names to catalog roles. Offices not
// listed here are outside the platform's hierarchy and are skipped.
var officeRoles = map[string]hierarchy.Role{
	"alcalde":                hierarchy.RoleMayor,
	"diputado":               hierarchy.RoleAssemblyDeputy,
	"regidor":                hierarchy.RoleCouncilMember,
	"director departamental": hierarchy.RoleDepartmentalDirector,
}

const electedQuery = `
SELECT nombre_completo, correo, telefono, cargo,
       departamento, municipio, inicio_periodo, fin_periodo
FROM dbo.funcionarios_electos
WHERE electo = 1`

// Result summarizes one import run.
type Result struct {
	Imported int
	Skipped  int
	Failed   int
}

// Importer reads elected officials from the registry and provisions
// them as verified office holders.
type Importer struct {
	db     *sql.DB
	store  directory.Store
	logger zerolog.Logger
}

// NewImporter opens a connection to the electoral registry
func NewImporter(cfg config.ElectoralConfig, store directory.Store, logger zerolog.Logger) (*Importer, error) {
	db, err := sql.Open("sqlserver", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open electoral registry connection: %w", err)
	}
	return NewImporterWithDB(db, store, logger), nil
}

// NewImporterWithDB wraps an existing connection. Used by tests.
func NewImporterWithDB(db *sql.DB, store directory.Store, logger zerolog.Logger) *Importer {
	return &Importer{
		db:     db,
		store:  store,
		logger: logger.With().Str("component", "electoral").Logger(),
	}
}

// Run imports every elected official the registry knows. Officials
// already in the directory are skipped, so the run is idempotent.
func (i *Importer) Run(ctx context.Context) (Result, error) {
	rows, err := i.db.QueryContext(ctx, electedQuery)
	if err != nil {
		return Result{}, errors.ExternalUnavailable("electoral registry", err)
	}
	defer rows.Close()

	var result Result
	for rows.Next() {
		var (
			fullName, office         string
			email, phone             sql.NullString
			department, municipality sql.NullString
			termStart, termEnd       sql.NullTime
		)
		if err := rows.Scan(&fullName, &email, &phone, &office,
			&department, &municipality, &termStart, &termEnd); err != nil {
			return result, errors.Wrap(err, "failed to scan electoral row")
		}

		role, ok := officeRoles[strings.ToLower(strings.TrimSpace(office))]
		if !ok {
			i.logger.Debug().
				Str("office", office).
				Str("name", fullName).
				Msg("office outside the hierarchy, skipping")
			result.Skipped++
			continue
		}

		member := &directory.Member{
			ID:       types.NewID(),
			FullName: fullName,
			Email:    email.String,
			Phone:    phone.String,
			Role:     role,
			Territory: types.Territory{
				Department:   department.String,
				Municipality: municipality.String,
			},
			VerifiedOfficeHolder: true,
			Active:               true,
			CreatedBy:            CreatedByImport,
			CreatedAt:            time.Now().UTC(),
		}
		if termStart.Valid {
			member.TermStart = &termStart.Time
		}
		if termEnd.Valid {
			member.TermEnd = &termEnd.Time
		}

		if err := i.store.Insert(ctx, member); err != nil {
			if errors.Is(err, errors.ErrConflict) {
				result.Skipped++
				continue
			}
			i.logger.Error().Err(err).
				Str("name", fullName).
				Msg("failed to import elected official")
			result.Failed++
			continue
		}
		result.Imported++
	}
	if err := rows.Err(); err != nil {
		return result, errors.ExternalUnavailable("electoral registry", err)
	}

	i.logger.Info().
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("electoral import finished")
	return result, nil
}

// Close releases the registry connection.
func (i *Importer) Close() error {
	return i.db.Close()
}
