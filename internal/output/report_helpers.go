package output

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"taur/internal/failure"
)

// failureGroup collects failed repositories that share a failure kind.
type failureGroup struct {
	Kind    string
	Repos   []string
	Reasons []string
}

// kindOrder lists failure kinds from most to least actionable.
var kindOrder = []failure.Kind{
	failure.NotFound,
	failure.InvalidRepository,
	failure.RemoteUnreachable,
	failure.Timeout,
	failure.ToolFailure,
	failure.Interrupted,
}

func updatedRecords(recs []Record) []Record {
	var out []Record
	for _, r := range recs {
		if len(r.Commits) > 0 {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b Record) int { return strings.Compare(a.Repo, b.Repo) })
	return out
}

func failedRecords(recs []Record) []Record {
	var out []Record
	for _, r := range recs {
		if r.Kind != "" {
			out = append(out, r)
		}
	}
	return out
}

func failureGroups(recs []Record) []failureGroup {
	byKind := make(map[string]*failureGroup)
	for _, r := range recs {
		g, ok := byKind[r.Kind]
		if !ok {
			g = &failureGroup{Kind: r.Kind}
			byKind[r.Kind] = g
		}
		g.Repos = append(g.Repos, r.Repo)
		reason := fmt.Sprintf("%s: %s", r.Repo, normalizeErrorReason(r.Error))
		if !slices.Contains(g.Reasons, reason) {
			g.Reasons = append(g.Reasons, reason)
		}
	}

	var out []failureGroup
	for _, k := range kindOrder {
		if g, ok := byKind[k.String()]; ok {
			slices.Sort(g.Repos)
			out = append(out, *g)
		}
	}
	return out
}

// normalizeErrorReason collapses whitespace and truncates long tool output.
func normalizeErrorReason(errText string) string {
	s := strings.Join(strings.Fields(errText), " ")
	if utf8.RuneCountInString(s) > 120 {
		return string([]rune(s)[:117]) + "..."
	}
	return s
}

func formatRepoList(repos []string, max int) string {
	noun := "repositories"
	if len(repos) == 1 {
		noun = "repository"
	}
	if len(repos) <= max {
		return fmt.Sprintf("%d %s (%s)", len(repos), noun, strings.Join(repos, ", "))
	}
	return fmt.Sprintf("%d %s (%s, ...)", len(repos), noun, strings.Join(repos[:max], ", "))
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
