package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hpungsan/kin/internal/config"
	"github.com/hpungsan/kin/internal/contact"
	"github.com/hpungsan/kin/internal/db"
	"github.com/hpungsan/kin/internal/errors"
)

// ImportMode controls what happens when an imported contact already has counters.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any existing record (atomic)
	ImportModeReplace ImportMode = "replace" // overwrite existing counters
	ImportModeAdd     ImportMode = "add"     // add imported counts onto existing ones
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one rejected line.
type ImportError struct {
	Line      int    `json:"line"`
	ContactID string `json:"contact_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// importLine is the union of header and record fields.
type importLine struct {
	KinExport bool   `json:"_kin_export"`
	ContactID string `json:"contact_id"`
	Proposed  int64  `json:"proposed"`
	Engaged   int64  `json:"engaged"`
}

type importRecord struct {
	line int
	c    contact.Counters
}

// Import loads counter records from a JSONL export file.
//
// Mode "error" is all-or-nothing: any unparseable line aborts the import with
// the line errors reported, and any contact that already has a record aborts
// it with CONFLICT. Nothing is written in either case. The other
// modes apply every valid line in one transaction and report bad lines as
// skipped.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	switch input.Mode {
	case ImportModeError, ImportModeReplace, ImportModeAdd:
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, add")
	}

	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := err.(*errors.KinError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file)
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageFailure("import", err)
	}
	defer tx.Rollback() //nolint:errcheck

	out := &ImportOutput{Errors: parseErrors, Skipped: len(parseErrors)}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("import")
		}

		switch input.Mode {
		case ImportModeError:
			exists, err := db.CounterExists(ctx, tx, r.c.ContactID)
			if err != nil {
				return nil, err
			}
			if exists {
				conflict := errors.NewConflict(r.c.ContactID)
				conflict.Details["line"] = r.line
				return nil, conflict
			}
			if err := db.SetCounters(ctx, tx, r.c); err != nil {
				return nil, err
			}
		case ImportModeReplace:
			if err := db.SetCounters(ctx, tx, r.c); err != nil {
				return nil, err
			}
		case ImportModeAdd:
			if err := db.AddCounters(ctx, tx, r.c); err != nil {
				return nil, err
			}
		}
		out.Imported++
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageFailure("import", err)
	}
	if out.Errors == nil {
		out.Errors = []ImportError{}
	}
	return out, nil
}

// parseExportFile reads records, skipping the header line.
// Duplicate contact ids within one file keep the last line.
func parseExportFile(file io.Reader) ([]importRecord, []ImportError) {
	var (
		records     []importRecord
		parseErrors []ImportError
		index       = map[string]int{}
	)

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var l importLine
		if err := json.Unmarshal([]byte(line), &l); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if l.KinExport {
			continue
		}

		id := strings.TrimSpace(l.ContactID)
		switch {
		case id == "":
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: "missing contact_id field",
			})
			continue
		case l.Proposed < 0 || l.Engaged < 0:
			parseErrors = append(parseErrors, ImportError{
				Line:      lineNum,
				ContactID: id,
				Code:      "INVALID_RECORD",
				Message:   "counters must be non-negative",
			})
			continue
		}

		r := importRecord{line: lineNum, c: contact.Counters{ContactID: id, Proposed: l.Proposed, Engaged: l.Engaged}}
		if i, dup := index[id]; dup {
			records[i] = r
			continue
		}
		index[id] = len(records)
		records = append(records, r)
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}
	return records, parseErrors
}
