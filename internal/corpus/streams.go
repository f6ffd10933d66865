package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"insncorpus/internal/classify"
)

// Summaries selects which summary files a run writes.
type Summaries uint8

const (
	SummaryNone    Summaries = iota
	SummaryResults           // <prefix>results.txt
	SummaryAll               // results, unsupported and supported
)

func (s Summaries) String() string {
	switch s {
	case SummaryResults:
		return "results"
	case SummaryAll:
		return "all"
	}
	return "none"
}

func (s Summaries) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Summaries) UnmarshalText(b []byte) error {
	v, err := ParseSummaries(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSummaries accepts "none", "results" and "all".
func ParseSummaries(s string) (Summaries, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return SummaryNone, nil
	case "results":
		return SummaryResults, nil
	case "all", "logs":
		return SummaryAll, nil
	}
	return SummaryNone, fmt.Errorf("unknown summary selection %q", s)
}

// SummaryFiles returns the file names written for prefix under s.
func SummaryFiles(prefix string, s Summaries) []string {
	switch s {
	case SummaryResults:
		return []string{prefix + "results.txt"}
	case SummaryAll:
		return []string{prefix + "results.txt", prefix + "unsupported.txt", prefix + "supported.txt"}
	}
	return nil
}

type stream struct {
	f *os.File
	w *bufio.Writer
}

func createStream(path string) (*stream, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &stream{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *stream) line(format string, args ...any) error {
	if s == nil {
		return nil
	}
	_, err := fmt.Fprintf(s.w, format+"\n", args...)
	return err
}

func (s *stream) close() error {
	if s == nil {
		return nil
	}
	return errors.Join(s.w.Flush(), s.f.Close())
}

// streams holds the summary files of one run. Unselected streams are nil
// and ignore writes.
type streams struct {
	results     *stream
	unsupported *stream
	supported   *stream
}

func openStreams(dir, prefix string, sel Summaries) (st *streams, err error) {
	st = &streams{}
	defer func() {
		if err != nil {
			st.close()
			st = nil
		}
	}()
	files := SummaryFiles(prefix, sel)
	targets := []**stream{&st.results, &st.unsupported, &st.supported}
	for i, name := range files {
		s, err := createStream(filepath.Join(dir, name))
		if err != nil {
			return st, fmt.Errorf("open summary: %w", err)
		}
		*targets[i] = s
	}
	return st, nil
}

func (st *streams) record(r classify.Record) error {
	if err := st.results.line("%s", r); err != nil {
		return err
	}
	if r.Outcome == classify.Built {
		return st.supported.line("%s", r.Name)
	}
	return st.unsupported.line("%s", r)
}

func (st *streams) totals(counts map[classify.Outcome]int) error {
	total := 0
	for _, o := range classify.Outcomes {
		if err := st.results.line("%s\t%d", o, counts[o]); err != nil {
			return err
		}
		total += counts[o]
	}
	return st.results.line("TOTAL\t%d", total)
}

// close releases every open stream exactly once.
func (st *streams) close() error {
	err := errors.Join(st.results.close(), st.unsupported.close(), st.supported.close())
	st.results, st.unsupported, st.supported = nil, nil, nil
	return err
}
