package repository

import (
	"context"
	"encoding/binary"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
	"github.com/mowoo/SLG-Dashboard/pkg/logger"
	"github.com/mowoo/SLG-Dashboard/pkg/metrics"
)

const (
	csvExt     = ".csv"
	sampleRows = 3
	dirPerm    = 0o755
	filePerm   = 0o644
	tempPrefix = ".upload-"
	tempSuffix = ".tmp"
)

// Store provides read/write access to the snapshot directory.
type Store interface {
	// Load parses every snapshot file into one Dataset. Per-file problems are
	// reported in LoadResult.Skipped; the error is a *SchemaError when no file
	// has the required columns, or the context error.
	Load(ctx context.Context) (LoadResult, error)

	// Fingerprint hashes the directory state (names, sizes, mtimes).
	Fingerprint(ctx context.Context) (uint64, error)

	// Save writes an uploaded snapshot under a sanitized name and returns it.
	Save(ctx context.Context, name string, content []byte) (string, error)

	// Has reports whether a snapshot file with the sanitized name exists.
	Has(ctx context.Context, name string) (bool, error)
}

// LoadResult is the outcome of one directory load.
type LoadResult struct {
	Dataset model.Dataset
	Files   []string // files that contributed rows
	Skipped []FileError
}

// CSVStore reads snapshot CSV files from a single directory.
type CSVStore struct {
	dir      string
	excluded map[string]struct{}
	loc      *time.Location
	logger   logger.Logger
}

var _ Store = (*CSVStore)(nil)

// NewCSVStore creates a store over dir. By default nothing is excluded.
func NewCSVStore(dir string, opts ...Option) *CSVStore {
	s := &CSVStore{
		dir:      dir,
		excluded: map[string]struct{}{},
		loc:      time.UTC,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the snapshot directory.
func (s *CSVStore) Dir() string { return s.dir }

// Load implements Store. A missing directory, an empty directory and a
// directory where every file fails all produce an empty Dataset.
func (s *CSVStore) Load(ctx context.Context) (LoadResult, error) {
	start := time.Now()
	res := LoadResult{Dataset: model.Dataset{}, Files: []string{}, Skipped: []FileError{}}

	names, err := s.listCSV()
	if err != nil {
		s.logger.Warn(ctx, "snapshot directory unreadable", logger.String("dir", s.dir), logger.Error(err))
		return res, nil
	}

	var (
		schemaFailures []FileError
		firstRejected  *parsedFile
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		pf, ferr := s.loadFile(name)
		if ferr != nil {
			s.logger.Warn(ctx, "snapshot file skipped", logger.String("file", name), logger.Error(ferr.Err))
			metrics.RecordSnapshotFileSkipped()
			res.Skipped = append(res.Skipped, *ferr)
			if len(ferr.Missing) > 0 {
				schemaFailures = append(schemaFailures, *ferr)
				if firstRejected == nil {
					firstRejected = pf
				}
			}
			continue
		}

		res.Files = append(res.Files, name)
		for i := range pf.rows {
			if _, drop := s.excluded[pf.rows[i].Group]; drop {
				continue
			}
			res.Dataset = append(res.Dataset, pf.rows[i])
		}
	}

	sort.SliceStable(res.Dataset, func(i, j int) bool {
		return res.Dataset[i].RecordedAt.Before(res.Dataset[j].RecordedAt)
	})

	metrics.RecordSnapshotLoad(float64(time.Since(start).Microseconds()) / 1000)
	metrics.UpdateSnapshotFiles(len(res.Files))
	metrics.UpdateSnapshotRows(len(res.Dataset))

	if len(res.Files) == 0 && len(schemaFailures) > 0 {
		serr := newSchemaError(schemaFailures, firstRejected)
		metrics.RecordSchemaError()
		s.logger.Warn(ctx, "no snapshot file has the required columns",
			logger.Strings("missing", serr.Missing),
			logger.Strings("present", serr.Present))
		return res, serr
	}

	s.logger.Debug(ctx, "snapshots loaded",
		logger.Int("files", len(res.Files)),
		logger.Int("skipped", len(res.Skipped)),
		logger.Int("rows", len(res.Dataset)))
	return res, nil
}

// Fingerprint implements Store. A missing directory hashes to 0.
func (s *CSVStore) Fingerprint(_ context.Context) (uint64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	h := xxhash.New()
	var buf [8]byte
	for _, e := range entries {
		if !isSnapshotEntry(e) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		_, _ = h.WriteString(e.Name())
		binary.LittleEndian.PutUint64(buf[:], uint64(info.Size()))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(info.ModTime().UnixNano()))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64(), nil
}

// Save implements Store. The name is reduced to its base, must end in .csv
// and must embed a snapshot timestamp. An existing file is replaced.
func (s *CSVStore) Save(_ context.Context, name string, content []byte) (string, error) {
	base, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	if _, err := ParseTimestamp(base, s.loc); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp := filepath.Join(s.dir, tempPrefix+uuid.NewString()+tempSuffix)
	if err := os.WriteFile(tmp, content, filePerm); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", base, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, base)); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename %s: %w", base, err)
	}
	return base, nil
}

// Has implements Store.
func (s *CSVStore) Has(_ context.Context, name string) (bool, error) {
	base, err := SanitizeName(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(filepath.Join(s.dir, base))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// SanitizeName strips directories and control characters from an uploaded
// filename and checks the extension.
func SanitizeName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, filepath.Base(name))
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == ".." || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	if !strings.EqualFold(filepath.Ext(base), csvExt) {
		return "", fmt.Errorf("%w: %q", ErrNotCSV, name)
	}
	return base, nil
}

func isSnapshotEntry(e fs.DirEntry) bool {
	if !e.Type().IsRegular() {
		return false
	}
	n := e.Name()
	return !strings.HasPrefix(n, ".") && strings.EqualFold(filepath.Ext(n), csvExt)
}

// listCSV returns the snapshot file names sorted lexically.
func (s *CSVStore) listCSV() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if isSnapshotEntry(e) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// parsedFile is one decoded snapshot file.
type parsedFile struct {
	mapping columnMapping
	records [][]string // data rows, header excluded
	rows    []model.Snapshot
}

// loadFile parses one file. On a schema failure the partially parsed file is
// returned alongside the error so its header can be reported.
func (s *CSVStore) loadFile(name string) (*parsedFile, *FileError) {
	recordedAt, err := ParseTimestamp(name, s.loc)
	if err != nil {
		return nil, &FileError{File: name, Err: err}
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, &FileError{File: name, Err: fmt.Errorf("%w: %w", ErrParse, err)}
	}

	pf, err := parseSnapshot(raw)
	if err != nil {
		return nil, &FileError{File: name, Err: fmt.Errorf("%w: %w", ErrParse, err)}
	}
	if missing := pf.mapping.missing(); len(missing) > 0 {
		return pf, &FileError{
			File:    name,
			Missing: missing,
			Err:     fmt.Errorf("%w: missing %s", ErrParse, strings.Join(missing, ", ")),
		}
	}

	pf.rows = buildRows(pf, name, recordedAt)
	return pf, nil
}

// parseSnapshot decodes raw and reads it as CSV. When several encodings are
// plausible the first one whose header carries every required field wins.
func parseSnapshot(raw []byte) (*parsedFile, error) {
	cands, err := decodeCandidates(raw)
	if err != nil {
		return nil, err
	}

	var first *parsedFile
	var firstErr error
	for _, c := range cands {
		pf, err := readCSV(c.text)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(pf.mapping.missing()) == 0 {
			return pf, nil
		}
		if first == nil {
			first = pf
		}
	}
	if first != nil {
		return first, nil
	}
	return nil, firstErr
}

func readCSV(text string) (*parsedFile, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, err
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return &parsedFile{mapping: mapColumns(header), records: records}, nil
}

// buildRows turns CSV records into snapshots. Rows without a member id are
// dropped. Ranks come from the file when every row has a valid one; otherwise
// they are assigned by merit descending in file order.
func buildRows(pf *parsedFile, file string, recordedAt time.Time) []model.Snapshot {
	_, hasRank := pf.mapping.index[FieldRank]
	rows := make([]model.Snapshot, 0, len(pf.records))
	for _, rec := range pf.records {
		member := pf.mapping.value(rec, FieldMember)
		if member == "" {
			continue
		}
		merit := parseNumber(pf.mapping.value(rec, FieldMerit))
		power := parseNumber(pf.mapping.value(rec, FieldPower))
		rank := 0
		if hasRank {
			if r, err := strconv.Atoi(strings.ReplaceAll(pf.mapping.value(rec, FieldRank), ",", "")); err == nil && r > 0 {
				rank = r
			} else {
				hasRank = false
			}
		}
		rows = append(rows, model.Snapshot{
			MemberID:   member,
			Group:      pf.mapping.value(rec, FieldGroup),
			Region:     pf.mapping.value(rec, FieldRegion),
			Merit:      merit,
			Power:      power,
			Rank:       rank,
			RecordedAt: recordedAt,
			Efficiency: model.Efficiency(merit, power),
			SourceFile: file,
		})
	}
	if !hasRank {
		assignRanks(rows)
	}
	return rows
}

// assignRanks ranks rows by merit descending; ties keep file order.
func assignRanks(rows []model.Snapshot) {
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rows[order[a]].Merit > rows[order[b]].Merit
	})
	for pos, i := range order {
		rows[i].Rank = pos + 1
	}
}

// parseNumber reads a counter that may carry thousands separators. Anything
// unparseable, NaN or infinite becomes 0.
func parseNumber(v string) float64 {
	v = strings.NewReplacer(",", "", "，", "", " ", "", "\u00a0", "").Replace(v)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// newSchemaError summarizes files rejected for missing columns.
func newSchemaError(failures []FileError, first *parsedFile) *SchemaError {
	seen := map[string]struct{}{}
	var missing []string
	for _, f := range failures {
		for _, m := range f.Missing {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			missing = append(missing, m)
		}
	}
	sort.Strings(missing)

	serr := &SchemaError{Missing: missing, Present: []string{}, Sample: [][]string{}}
	if first != nil {
		serr.Present = first.mapping.present
		for i := 0; i < len(first.records) && i < sampleRows; i++ {
			serr.Sample = append(serr.Sample, first.records[i])
		}
	}
	return serr
}
