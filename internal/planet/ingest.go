package planet

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// LoadOptions controls how a source is fetched and parsed.
type LoadOptions struct {
	// Delimiter for the table. If 0, sniffed from the source name.
	Delimiter rune
	// HTTPTimeout bounds remote fetches.
	HTTPTimeout time.Duration
	// Logger receives load failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultLoadOptions returns reasonable defaults for loading a planet table.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{HTTPTimeout: 30 * time.Second}
}

// Load reads the planet table from a local path or an http(s) URL.
// It never fails: an unreachable or unparseable source yields an empty,
// non-nil slice and a logged warning.
func Load(ctx context.Context, source string, opt LoadOptions) []Record {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(source)
	}
	rc, err := open(ctx, source, opt.HTTPTimeout)
	if err != nil {
		logger.Warn("planet data unavailable", "source", source, "error", err)
		return []Record{}
	}
	defer rc.Close()

	recs, err := parse(rc, delim)
	if err != nil {
		logger.Warn("planet data unparseable", "source", source, "error", err)
		return []Record{}
	}
	logger.Debug("planet data loaded", "source", source, "records", len(recs))
	return recs
}

// Parse reads a comma-delimited table with a header row into records,
// preserving row order.
func Parse(r io.Reader) ([]Record, error) {
	return parse(r, ',')
}

func open(ctx context.Context, source string, timeout time.Duration) (io.ReadCloser, error) {
	if source == "" {
		return nil, errors.New("no data source configured")
	}
	lower := strings.ToLower(source)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open data: %w", err)
		}
		return f, nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("fetch: unexpected status %s: %s", resp.Status, string(b))
	}
	return resp.Body, nil
}

func parse(src io.Reader, delim rune) ([]Record, error) {
	r := csv.NewReader(skipBOM(src))
	// Archive exports prefix metadata with '#'. csv only honors the marker at
	// the start of a record, never inside a quoted field.
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	out := []Record{}
	for row := 1; ; row++ {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		out = append(out, mapRow(rec, index))
	}
	return out, nil
}

// mapRow assigns every field from its named column or the default.
func mapRow(rec []string, index map[string]int) Record {
	str := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}
	num := func(col string) float64 { return ParseFloat(str(col)) }

	return Record{
		Name:            str(ColName),
		HostStar:        str(ColHostStar),
		Method:          str(ColMethod),
		YearDiscovered:  str(ColYear),
		OrbitalPeriod:   num(ColOrbitalPeriod),
		SemiMajorAxis:   num(ColSemiMajorAxis),
		Radius:          num(ColRadius),
		Mass:            num(ColMass),
		EquilibriumTemp: num(ColEquilibriumTemp),
		StellarTemp:     num(ColStellarTemp),
		StellarRadius:   num(ColStellarRadius),
		StellarMass:     num(ColStellarMass),
		Distance:        num(ColDistance),
		VMagnitude:      num(ColVMagnitude),
		RA:              str(ColRA),
		Dec:             str(ColDec),
		ReferenceMarkup: str(ColReference),
	}
}

// skipBOM drops a leading UTF-8 byte order mark so it cannot hide a
// comment marker or the first header name.
func skipBOM(src io.Reader) io.Reader {
	br := bufio.NewReader(src)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(3)
	}
	return br
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func sniffDelimiter(source string) rune {
	name := strings.ToLower(source)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}
