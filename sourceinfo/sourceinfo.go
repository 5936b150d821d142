// Package sourceinfo implements the optional source-position side-table
// described in spec.md §6: an append-only table mapping
// opaque position ids to (file, line) pairs, plus its textual codec.
package sourceinfo

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/xid"
)

// FileID identifies one source file in a Table.
type FileID int

// PosID identifies one (file, line) pair in a Table.
type PosID int

// Pos is a resolved source position, returned by Table.Resolve.
type Pos struct {
	File string
	Line int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Table is an append-only, index-stable position table. Entries are never
// removed once added, matching spec.md §9's "global state" design note.
// RunID is a correlation id for whichever pass-manager run populated this
// table instance; it has no bearing on PosID/FileID stability, which must
// stay small dense integers so the serialized form stays compact.
type Table struct {
	RunID string

	mu        sync.Mutex
	files     []string
	positions []filePos
	once      sync.Once
}

type filePos struct {
	file FileID
	line int
}

// NewTable creates an empty, initialized Table.
func NewTable() *Table {
	t := &Table{}
	t.init()
	return t
}

func (t *Table) init() {
	t.once.Do(func() {
		t.RunID = xid.New().String()
	})
}

// AddFile interns a file path and returns its stable FileID.
func (t *Table) AddFile(path string) FileID {
	t.init()
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, f := range t.files {
		if f == path {
			return FileID(i)
		}
	}
	t.files = append(t.files, path)
	return FileID(len(t.files) - 1)
}

// AddPosition interns a (file, line) pair and returns its stable PosID.
// line must be 1-based; line 0 is rejected, matching spec.md §6.
func (t *Table) AddPosition(file FileID, line int) (PosID, error) {
	if line == 0 {
		return 0, fmt.Errorf("sourceinfo: line numbers are 1-based, got 0")
	}

	t.init()
	t.mu.Lock()
	defer t.mu.Unlock()

	t.positions = append(t.positions, filePos{file: file, line: line})
	return PosID(len(t.positions) - 1), nil
}

// Resolve returns the (file, line) a PosID denotes.
func (t *Table) Resolve(id PosID) (Pos, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(id) < 0 || int(id) >= len(t.positions) {
		return Pos{}, false
	}
	fp := t.positions[id]
	if int(fp.file) < 0 || int(fp.file) >= len(t.files) {
		return Pos{}, false
	}
	return Pos{File: t.files[fp.file], Line: fp.line}, true
}

// Encode serializes the table to the textual layout documented in
// spec.md §6, with entries emitted sorted by id.
func (t *Table) Encode() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	b.WriteString("sourceinfo #{\n")
	b.WriteString("FILES\n")
	for i, f := range t.files {
		fmt.Fprintf(&b, "  %d: %s\n", i, f)
	}
	b.WriteString("POSITIONS\n")
	for i, fp := range t.positions {
		fmt.Fprintf(&b, "  %d: %d %d\n", i, fp.file, fp.line)
	}
	b.WriteString("}#\n")
	return b.String()
}

// Decode parses the textual layout documented in spec.md §6. It is the
// strict inverse of Encode: out-of-order ids and a line of 0 are rejected.
func Decode(text string) (*Table, error) {
	t := NewTable()

	sc := bufio.NewScanner(strings.NewReader(text))
	section := ""
	maxFileID, maxPosID := -1, -1

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || line == "sourceinfo #{" || line == "}#":
			continue
		case line == "FILES":
			section = "FILES"
			continue
		case line == "POSITIONS":
			section = "POSITIONS"
			continue
		}

		switch section {
		case "FILES":
			id, path, err := splitEntry(line, 1)
			if err != nil {
				return nil, fmt.Errorf("sourceinfo: bad FILES entry %q: %w", line, err)
			}
			if id != maxFileID+1 {
				return nil, fmt.Errorf("sourceinfo: FILES entries must be sorted by id, got %d after %d", id, maxFileID)
			}
			maxFileID = id
			t.files = append(t.files, path[0])
		case "POSITIONS":
			id, fields, err := splitEntry(line, 2)
			if err != nil {
				return nil, fmt.Errorf("sourceinfo: bad POSITIONS entry %q: %w", line, err)
			}
			if id != maxPosID+1 {
				return nil, fmt.Errorf("sourceinfo: POSITIONS entries must be sorted by id, got %d after %d", id, maxPosID)
			}
			maxPosID = id

			fileID, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("sourceinfo: bad file-id in %q: %w", line, err)
			}
			lineNum, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("sourceinfo: bad line-num in %q: %w", line, err)
			}
			if lineNum == 0 {
				return nil, fmt.Errorf("sourceinfo: line 0 is rejected (position %d)", id)
			}
			t.positions = append(t.positions, filePos{file: FileID(fileID), line: lineNum})
		default:
			return nil, fmt.Errorf("sourceinfo: entry %q outside of a section", line)
		}
	}

	return t, sc.Err()
}

// splitEntry parses "<id>: <space-separated fields>" with exactly wantFields
// fields after the colon.
func splitEntry(line string, wantFields int) (int, []string, error) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return 0, nil, fmt.Errorf("missing ':'")
	}
	id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, nil, err
	}
	fields := strings.Fields(parts[1])
	if len(fields) != wantFields {
		return 0, nil, fmt.Errorf("expected %d fields, got %d", wantFields, len(fields))
	}
	return id, fields, nil
}
