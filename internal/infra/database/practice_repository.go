package database

import (
	"context"
	"database/sql"
	"log"

	"github.com/google/uuid"
	"github.com/xavierca1/practice-sync/internal/entity"
)

type PracticeRepository struct {
	DB *sql.DB
}

func NewPracticeRepository(db *sql.DB) *PracticeRepository {
	return &PracticeRepository{DB: db}
}

const practiceColumns = `
	id, name, intakeq_key, intakeq_base_url,
	COALESCE(vtiger_url, ''), COALESCE(vtiger_username, ''), COALESCE(vtiger_access_key, ''),
	active, created_at, updated_at
`

func scanPractice(row interface{ Scan(...any) error }) (*entity.Practice, error) {
	var p entity.Practice
	err := row.Scan(
		&p.ID, &p.Name, &p.IntakeQKey, &p.IntakeQBaseURL,
		&p.VtigerURL, &p.VtigerUsername, &p.VtigerAccessKey,
		&p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PracticeRepository) Create(ctx context.Context, p *entity.Practice) error {
	query := `
		INSERT INTO practices (id, name, intakeq_key, intakeq_base_url, vtiger_url, vtiger_username, vtiger_access_key, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := r.DB.QueryRowContext(ctx, query,
		p.ID, p.Name, p.IntakeQKey, p.IntakeQBaseURL,
		p.VtigerURL, p.VtigerUsername, p.VtigerAccessKey, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		log.Printf("Erro crítico no banco (create practice): %v", err)
	}
	return err
}

// UpsertByIntakeQKey: a chave de credencial é a identidade durável.
// O nome de exibição só é gravado na criação; depois vira metadado
// mutável que a sincronização de appointments nunca sobrescreve.
func (r *PracticeRepository) UpsertByIntakeQKey(ctx context.Context, name, intakeQKey string) (*entity.Practice, error) {
	query := `
		INSERT INTO practices (id, name, intakeq_key, intakeq_base_url, active, created_at, updated_at)
		VALUES ($1, $2, $3, '', TRUE, NOW(), NOW())
		ON CONFLICT (intakeq_key)
		DO UPDATE SET updated_at = NOW()
		RETURNING ` + practiceColumns

	row := r.DB.QueryRowContext(ctx, query, uuid.New().String(), name, intakeQKey)
	return scanPractice(row)
}

func (r *PracticeRepository) FindByID(ctx context.Context, id string) (*entity.Practice, error) {
	query := `SELECT ` + practiceColumns + ` FROM practices WHERE id = $1`
	return scanPractice(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PracticeRepository) FindByName(ctx context.Context, name string) (*entity.Practice, error) {
	query := `SELECT ` + practiceColumns + ` FROM practices WHERE name = $1 LIMIT 1`
	return scanPractice(r.DB.QueryRowContext(ctx, query, name))
}

func (r *PracticeRepository) List(ctx context.Context) ([]entity.Practice, error) {
	query := `SELECT ` + practiceColumns + ` FROM practices WHERE active = TRUE ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var practices []entity.Practice
	for rows.Next() {
		p, err := scanPractice(rows)
		if err != nil {
			return nil, err
		}
		practices = append(practices, *p)
	}
	return practices, rows.Err()
}

func (r *PracticeRepository) UpdateVtigerCredentials(ctx context.Context, id, url, username, accessKey string) (*entity.Practice, error) {
	query := `
		UPDATE practices
		SET vtiger_url = $2, vtiger_username = $3, vtiger_access_key = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + practiceColumns

	return scanPractice(r.DB.QueryRowContext(ctx, query, id, url, username, accessKey))
}

func (r *PracticeRepository) UpdateIntakeQCredentials(ctx context.Context, id, key, baseURL string) (*entity.Practice, error) {
	query := `
		UPDATE practices
		SET intakeq_key = $2, intakeq_base_url = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + practiceColumns

	return scanPractice(r.DB.QueryRowContext(ctx, query, id, key, baseURL))
}
