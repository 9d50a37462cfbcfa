package application

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// ImportMode selects how imported credentials combine with the saved list.
type ImportMode string

const (
	// ImportMerge keeps every saved credential and adds imported ones whose
	// id and (URL, Username) are both new.
	ImportMerge ImportMode = "merge"

	// ImportReplace discards the saved list in favour of the imported one.
	ImportReplace ImportMode = "replace"
)

// ParseImportMode validates a mode name. Empty means merge.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ImportMerge:
		return ImportMerge, nil
	case ImportReplace:
		return ImportReplace, nil
	default:
		return "", fmt.Errorf("unknown import mode %q", s)
	}
}

// ExportHeader is the column order written by WriteCSV.
var ExportHeader = []string{"Website", "Username", "Password", "Created", "ID"}

// csvColumns maps a column role to its index in the input file.
type csvColumns struct {
	website, username, password, created, id int
}

var positionalColumns = csvColumns{website: 0, username: 1, password: 2, created: 3, id: 4}

// ImportResult reports the outcome of an import.
type ImportResult struct {
	Imported int
	Skipped  int
}

// WriteCSV writes creds with a header row. Fields containing a comma, quote
// or newline are quoted with inner quotes doubled.
func WriteCSV(w io.Writer, creds []model.Credential) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, c := range creds {
		record := []string{c.URL, c.Username, c.Password, c.CreatedAt.UTC().Format(time.RFC3339), c.ID}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", c.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadCSV parses an exported file. The first row is a header; columns are
// located by name ("Created" and "Created Date" are both accepted) and fall
// back to export order when the header is unrecognised. Stray quotes are
// kept as literal characters. Rows that fail to parse or lack a website,
// username or password are skipped and counted. A missing created
// time defaults to now and a missing id to a fresh one.
func ReadCSV(r io.Reader, now time.Time, newID func() string) ([]model.Credential, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}
	cols := columnsFromHeader(header)

	var (
		creds   []model.Credential
		skipped int
	)

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv row: %w", err)
		}

		cred := model.Credential{
			URL:      column(record, cols.website),
			Username: column(record, cols.username),
			Password: column(record, cols.password),
			ID:       column(record, cols.id),
		}
		if cred.URL == "" || cred.Username == "" || cred.Password == "" {
			skipped++
			continue
		}

		cred.LoginURL = cred.URL
		cred.CreatedAt = parseCreated(column(record, cols.created), now)
		if cred.ID == "" {
			cred.ID = newID()
		}

		creds = append(creds, cred)
	}

	return creds, skipped, nil
}

func columnsFromHeader(header []string) csvColumns {
	cols := csvColumns{website: -1, username: -1, password: -1, created: -1, id: -1}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "website", "url":
			cols.website = i
		case "username":
			cols.username = i
		case "password":
			cols.password = i
		case "created", "created date":
			cols.created = i
		case "id":
			cols.id = i
		}
	}

	if cols.website < 0 || cols.username < 0 || cols.password < 0 {
		return positionalColumns
	}
	return cols
}

func column(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseCreated(s string, now time.Time) time.Time {
	if s == "" {
		return now
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}

// TransferService moves the credential list in and out as CSV.
type TransferService struct {
	store driven.CredentialStore
	gate  *GateService
	now   func() time.Time
	newID func() string
}

// NewTransferService creates a TransferService. Export is guarded by gate.
func NewTransferService(store driven.CredentialStore, gate *GateService) *TransferService {
	return &TransferService{
		store: store,
		gate:  gate,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Export writes every credential to w after checking masterPassword against
// the gate.
func (s *TransferService) Export(ctx context.Context, w io.Writer, masterPassword string) (int, error) {
	if err := s.gate.Verify(ctx, masterPassword); err != nil {
		return 0, err
	}

	creds, err := s.store.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list credentials: %w", err)
	}

	if err := WriteCSV(w, creds); err != nil {
		return 0, err
	}
	return len(creds), nil
}

// Import reads a CSV file from r and applies it in the given mode.
func (s *TransferService) Import(ctx context.Context, r io.Reader, mode ImportMode) (ImportResult, error) {
	creds, skipped, err := ReadCSV(r, s.now().UTC(), s.newID)
	if err != nil {
		return ImportResult{}, err
	}

	switch mode {
	case ImportMerge:
		inserted, err := s.store.Merge(ctx, creds)
		if err != nil {
			return ImportResult{}, fmt.Errorf("merge credentials: %w", err)
		}
		return ImportResult{Imported: inserted, Skipped: skipped + len(creds) - inserted}, nil

	case ImportReplace:
		unique := dedupeLastWins(creds)
		if err := s.store.ReplaceAll(ctx, unique); err != nil {
			return ImportResult{}, fmt.Errorf("replace credentials: %w", err)
		}
		return ImportResult{Imported: len(unique), Skipped: skipped + len(creds) - len(unique)}, nil

	default:
		return ImportResult{}, fmt.Errorf("unknown import mode %q", mode)
	}
}

// dedupeLastWins drops earlier rows that share an id or (URL, Username)
// with a later row, keeping the survivors in file order.
func dedupeLastWins(creds []model.Credential) []model.Credential {
	seenKey := make(map[[2]string]bool, len(creds))
	seenID := make(map[string]bool, len(creds))
	kept := make([]model.Credential, 0, len(creds))

	for i := len(creds) - 1; i >= 0; i-- {
		c := creds[i]
		key := [2]string{c.URL, c.Username}
		if seenKey[key] || seenID[c.ID] {
			continue
		}
		seenKey[key] = true
		seenID[c.ID] = true
		kept = append(kept, c)
	}

	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}
