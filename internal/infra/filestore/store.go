package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/xavierca1/practice-sync/internal/infra/integration/intakeq"
	"github.com/xavierca1/practice-sync/internal/infra/integration/vtiger"
)

// Store persiste o progresso de fetch por practice em JSON:
// <baseDir>/<slug>/appointments.json e vtigerleads.json.
// Toda escrita é tmp + rename — um crash no meio nunca corrompe o
// cursor, no máximo perde a última página (que será re-buscada).
type Store struct {
	BaseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{BaseDir: baseDir}
}

var slugStrip = regexp.MustCompile(`[^a-z0-9\-]`)

func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), "-")
	return slugStrip.ReplaceAllString(s, "")
}

// PracticeDir garante e devolve o diretório de dados da practice.
func (s *Store) PracticeDir(practiceName string) (string, error) {
	dir := filepath.Join(s.BaseDir, Slug(practiceName))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

type appointmentsFile struct {
	LastPageFetched int                   `json:"lastPageFetched"`
	Appointments    []intakeq.Appointment `json:"appointments"`
}

type leadsFile struct {
	LastOffset int                 `json:"lastOffset"`
	Leads      []vtiger.LeadRecord `json:"leads"`
}

// LoadAppointments devolve a última página completada e o mapa
// deduplicado por Id. Arquivo ausente ou ilegível = cursor zero.
func (s *Store) LoadAppointments(practiceName string) (int, map[string]intakeq.Appointment, error) {
	dir, err := s.PracticeDir(practiceName)
	if err != nil {
		return 0, nil, err
	}

	var parsed appointmentsFile
	if err := readJSON(filepath.Join(dir, "appointments.json"), &parsed); err != nil {
		return 0, map[string]intakeq.Appointment{}, nil
	}

	records := make(map[string]intakeq.Appointment, len(parsed.Appointments))
	for _, a := range parsed.Appointments {
		records[a.ID] = a
	}
	return parsed.LastPageFetched, records, nil
}

// SaveAppointments persiste o cursor + snapshot completo do mapa.
func (s *Store) SaveAppointments(practiceName string, lastPage int, records map[string]intakeq.Appointment) error {
	dir, err := s.PracticeDir(practiceName)
	if err != nil {
		return err
	}

	// ordem estável no arquivo
	appts := make([]intakeq.Appointment, 0, len(records))
	for _, a := range records {
		appts = append(appts, a)
	}
	sort.Slice(appts, func(i, j int) bool { return appts[i].ID < appts[j].ID })

	return writeAtomic(filepath.Join(dir, "appointments.json"), appointmentsFile{
		LastPageFetched: lastPage,
		Appointments:    appts,
	})
}

// LoadLeads devolve o último offset completado e a lista acumulada.
func (s *Store) LoadLeads(practiceName string) (int, []vtiger.LeadRecord, error) {
	dir, err := s.PracticeDir(practiceName)
	if err != nil {
		return 0, nil, err
	}

	var parsed leadsFile
	if err := readJSON(filepath.Join(dir, "vtigerleads.json"), &parsed); err != nil {
		return 0, nil, nil
	}
	return parsed.LastOffset, parsed.Leads, nil
}

func (s *Store) SaveLeads(practiceName string, lastOffset int, leads []vtiger.LeadRecord) error {
	dir, err := s.PracticeDir(practiceName)
	if err != nil {
		return err
	}

	return writeAtomic(filepath.Join(dir, "vtigerleads.json"), leadsFile{
		LastOffset: lastOffset,
		Leads:      leads,
	})
}

// Arquivo ausente ou ilegível conta como cursor zero: o sync recomeça
// do início e o upsert por source id mantém tudo idempotente.
func readJSON(file string, out any) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func writeAtomic(file string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, file)
}
