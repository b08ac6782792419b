package electoral

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/impulso-digital/plataforma/internal/directory"
	"github.com/impulso-digital/plataforma/internal/hierarchy"
	"github.com/impulso-digital/plataforma/internal/shared/logging"
)

func electedColumns() []string {
	return []string{
		"nombre_completo", "correo", "telefono", "cargo",
		"departamento", "municipio", "inicio_periodo", "fin_periodo",
	}
}

func TestRunImportsElectedOfficials(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	termStart := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)
	termEnd := termStart.AddDate(4, 0, 0)

	mock.ExpectQuery("SELECT nombre_completo").WillReturnRows(
		sqlmock.NewRows(electedColumns()).
			AddRow("María Fernández", "maria@example.hn", "9999-0001", "Alcalde",
				"Yoro", "El Progreso", termStart, termEnd).
			AddRow("Juan Castillo", "juan@example.hn", nil, "Regidor",
				"Yoro", "El Progreso", termStart, termEnd).
			AddRow("Pedro Zelaya", nil, nil, "Sindico",
				"Yoro", "Olanchito", termStart, termEnd),
	)

	store := directory.NewMemoryStore()
	importer := NewImporterWithDB(db, store, logging.Nop())

	result, err := importer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Imported != 2 {
		t.Errorf("imported = %d, want 2", result.Imported)
	}
	// The síndico office has no catalog role.
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
	if result.Failed != 0 {
		t.Errorf("failed = %d, want 0", result.Failed)
	}

	members, err := store.List(context.Background(), directory.Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for _, member := range members {
		if !member.VerifiedOfficeHolder {
			t.Errorf("member %q not marked verified office holder", member.FullName)
		}
		if member.CreatedBy != CreatedByImport {
			t.Errorf("member %q created_by = %q", member.FullName, member.CreatedBy)
		}
		if !member.Active {
			t.Errorf("member %q not active", member.FullName)
		}
	}

	mayor, err := store.GetByEmail(context.Background(), "maria@example.hn")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if mayor.Role != hierarchy.RoleMayor {
		t.Errorf("role = %q, want %q", mayor.Role, hierarchy.RoleMayor)
	}
	if mayor.TermStart == nil || !mayor.TermStart.Equal(termStart) {
		t.Errorf("term start = %v, want %v", mayor.TermStart, termStart)
	}
	if mayor.Territory.Municipality != "El Progreso" {
		t.Errorf("municipality = %q", mayor.Territory.Municipality)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows(electedColumns()).
			AddRow("María Fernández", "maria@example.hn", nil, "alcalde",
				"Yoro", "El Progreso", nil, nil)
	}
	mock.ExpectQuery("SELECT nombre_completo").WillReturnRows(rows())
	mock.ExpectQuery("SELECT nombre_completo").WillReturnRows(rows())

	store := directory.NewMemoryStore()
	importer := NewImporterWithDB(db, store, logging.Nop())

	first, err := importer.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.Imported != 1 {
		t.Errorf("first run imported = %d, want 1", first.Imported)
	}

	// Second run hits the duplicate email and skips.
	second, err := importer.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.Imported != 0 || second.Skipped != 1 {
		t.Errorf("second run = %+v, want 0 imported, 1 skipped", second)
	}
}

func TestRunRegistryUnreachable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT nombre_completo").WillReturnError(context.DeadlineExceeded)

	importer := NewImporterWithDB(db, directory.NewMemoryStore(), logging.Nop())
	_, err = importer.Run(context.Background())
	if err == nil {
		t.Fatal("Run() succeeded against unreachable registry")
	}
}
