package output

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// ReportSink writes a Markdown summary of the run on Close (see --report).
type ReportSink struct {
	path    string
	file    *os.File
	mu      sync.Mutex
	summary *Summary
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{path: path, file: f}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := v.(Summary); ok {
		s.summary = &t
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	if s.summary == nil {
		b.WriteString("# taur Sync Report\n\nThe run did not complete.\n")
	} else {
		writeReport(&b, *s.summary)
	}

	if _, err := s.file.WriteString(b.String()); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

func writeReport(b *strings.Builder, sum Summary) {
	doc := DocumentFromSummary(sum)

	fmt.Fprintf(b, "# taur Sync Report\n\n")
	fmt.Fprintf(b, "- Run: `%s`\n", doc.RunID)
	fmt.Fprintf(b, "- Mode: %s\n", doc.Mode)
	fmt.Fprintf(b, "- Exit code: %d\n\n", doc.ExitCode)

	b.WriteString("## Summary\n\n")
	b.WriteString("| Status | Repositories |\n")
	b.WriteString("|---|---|\n")
	for _, st := range []string{"updated", "up-to-date", "failed"} {
		fmt.Fprintf(b, "| %s | %d |\n", st, doc.Counts[st])
	}
	if len(doc.Unresolved) > 0 {
		fmt.Fprintf(b, "| unresolved | %d |\n", len(doc.Unresolved))
	}
	b.WriteString("\n")

	updated := updatedRecords(doc.Repositories)
	b.WriteString("## Upstream Changes\n\n")
	if len(updated) == 0 {
		b.WriteString("- No packages with upstream changes.\n\n")
	}
	for _, rec := range updated {
		fmt.Fprintf(b, "### %s\n\n", rec.Repo)
		for _, c := range rec.Commits {
			fmt.Fprintf(b, "- %s\n", escapeMarkdown(c))
		}
		b.WriteString("\n")
	}

	groups := failureGroups(append(failedRecords(doc.Repositories), doc.Unresolved...))
	if len(groups) == 0 {
		return
	}
	b.WriteString("## Failures\n\n")
	for _, g := range groups {
		fmt.Fprintf(b, "- **%s**: %s\n", g.Kind, formatRepoList(g.Repos, 10))
		for _, reason := range g.Reasons {
			fmt.Fprintf(b, "  - %s\n", escapeMarkdown(reason))
		}
	}
	b.WriteString("\n")
}
