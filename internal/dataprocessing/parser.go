package dataprocessing

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"navcli/internal/date"
	"navcli/pkg/contracts/domain"
)

const (
	feedFields      = 6
	feedSeparator   = ";"
	headerCode      = "Scheme Code"
	maxFeedLineSize = 1024 * 1024
)

var (
	// ErrSkipped marks lines that are ignored without a diagnostic: blank
	// lines, section titles, the header row, sentinel NAVs and zero NAVs.
	ErrSkipped = errors.New("line skipped")
	// ErrMalformed marks lines that look like records but fail validation.
	ErrMalformed = errors.New("malformed line")
)

// navSentinels are placeholders AMFI publishes instead of a NAV.
var navSentinels = map[string]struct{}{
	"NA":      {},
	"N.A.":    {},
	"N/A":     {},
	"#N/A":    {},
	"#DIV/0!": {},
	"B.C.":    {},
	"B. C.":   {},
	"-":       {},
}

// ParseLine parses one "code;name;nav;repurchase;sale;date" record.
func ParseLine(line string) (domain.Observation, error) {
	fields := strings.Split(line, feedSeparator)
	if len(fields) != feedFields {
		return domain.Observation{}, ErrSkipped
	}

	code := strings.TrimSpace(fields[0])
	name := strings.TrimSpace(fields[1])
	nav := strings.TrimSpace(fields[2])
	day := strings.TrimSpace(fields[5])
	if code == "" || name == "" || nav == "" || day == "" {
		return domain.Observation{}, ErrSkipped
	}
	if code == headerCode {
		return domain.Observation{}, ErrSkipped
	}
	if _, ok := navSentinels[nav]; ok {
		return domain.Observation{}, ErrSkipped
	}

	name = strings.NewReplacer(`"`, "", "'", "").Replace(name)
	nav = strings.ReplaceAll(nav, ",", "")

	if !onlyChars(code, "0123456789") {
		return domain.Observation{}, fmt.Errorf("%w: scheme code %q", ErrMalformed, code)
	}
	if !onlyChars(nav, "0123456789.") {
		return domain.Observation{}, fmt.Errorf("%w: nav %q", ErrMalformed, nav)
	}

	id, err := strconv.ParseInt(code, 10, 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("%w: scheme code %q: %w", ErrMalformed, code, err)
	}
	value, err := decimal.NewFromString(nav)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("%w: nav %q: %w", ErrMalformed, nav, err)
	}
	on, err := date.ParseFeed(day)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if value.IsZero() {
		return domain.Observation{}, ErrSkipped
	}

	return domain.Observation{
		Code: id,
		Name: name,
		NAV:  value.InexactFloat64(),
		Date: on,
	}, nil
}

func onlyChars(s, allowed string) bool {
	return strings.Trim(s, allowed) == ""
}

// FeedParser streams observations out of NAV history files.
type FeedParser struct {
	logger *slog.Logger
	filter func(code int64) bool
}

// NewFeedParser creates a parser that accepts every fund.
func NewFeedParser(logger *slog.Logger) *FeedParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedParser{logger: logger.With(slog.String("component", "feed_parser"))}
}

// WithFilter returns a copy of the parser that only emits funds accepted by keep.
func (p *FeedParser) WithFilter(keep func(code int64) bool) *FeedParser {
	clone := *p
	clone.filter = keep
	return &clone
}

// Parse reads r line by line and hands every valid observation to emit.
// source names the input in diagnostics.
func (p *FeedParser) Parse(ctx context.Context, r io.Reader, source string, emit func(domain.Observation) error) (ParseStatistics, error) {
	var stats ParseStatistics
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxFeedLineSize)

	for scanner.Scan() {
		stats.Lines++
		if stats.Lines%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		line := scanner.Text()
		obs, err := ParseLine(line)
		switch {
		case errors.Is(err, ErrSkipped):
			stats.Skipped++
			continue
		case err != nil:
			stats.Dropped++
			p.logger.WarnContext(ctx, "dropping feed line",
				"source", source,
				"line_number", stats.Lines,
				"line", line,
				"error", err,
			)
			continue
		}

		if p.filter != nil && !p.filter(obs.Code) {
			stats.Filtered++
			continue
		}
		if err := emit(obs); err != nil {
			return stats, fmt.Errorf("%s line %d: %w", source, stats.Lines, err)
		}
		stats.Observations++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read %s: %w", source, err)
	}
	return stats, nil
}

// ParseFile opens path and parses it.
func (p *FeedParser) ParseFile(ctx context.Context, path string, emit func(domain.Observation) error) (ParseStatistics, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParseStatistics{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return p.Parse(ctx, f, path, emit)
}

// ParseFiles parses every file in order and returns the combined statistics.
func (p *FeedParser) ParseFiles(ctx context.Context, paths []string, emit func(domain.Observation) error) (ParseStatistics, error) {
	var total ParseStatistics
	for i, path := range paths {
		p.logger.InfoContext(ctx, "reading NAV file",
			"file", path,
			"progress", fmt.Sprintf("%d/%d", i+1, len(paths)),
		)
		stats, err := p.ParseFile(ctx, path, emit)
		total.Add(stats)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
