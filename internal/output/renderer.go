package output

import (
	"fmt"

	"taur/internal/repo"
	"taur/internal/result"

	"github.com/fatih/color"
)

// View selects how a Report is presented.
type View int

const (
	// FetchView lists only repositories with upstream changes.
	FetchView View = iota
	// PullView gives every repository a line.
	PullView
)

func (v View) String() string {
	if v == PullView {
		return "pull"
	}
	return "fetch"
}

const (
	headerUpdates   = "The following packages have upstream changes:"
	messageNoUpdate = "There are currently no packages with upstream changes"
)

// Renderer turns a Report into display lines. It holds its own colour
// settings and never writes anywhere.
type Renderer struct {
	bold    *color.Color
	marker  *color.Color
	bullet  *color.Color
	summary *color.Color
	errc    *color.Color
}

func NewRenderer(colorize bool) *Renderer {
	r := &Renderer{
		bold:    color.New(color.Bold),
		marker:  color.New(color.FgBlue, color.Bold),
		bullet:  color.New(color.FgMagenta),
		summary: color.New(color.FgCyan),
		errc:    color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{r.bold, r.marker, r.bullet, r.summary, r.errc} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// Render returns the lines for rep in the given view. Equal inputs always
// produce equal output.
func (r *Renderer) Render(view View, rep result.Report) []string {
	if view == PullView {
		return r.renderPull(rep)
	}
	return r.renderFetch(rep)
}

func (r *Renderer) renderFetch(rep result.Report) []string {
	var lines []string

	var updated []result.Entry
	for _, e := range rep.Entries.Successes() {
		if e.Outcome.IsUpdated() {
			updated = append(updated, e)
		}
	}

	if len(updated) > 0 {
		lines = append(lines, r.bold.Sprint(headerUpdates), "")
		for _, e := range updated {
			lines = append(lines, r.marker.Sprint("::")+" "+r.bold.Sprint(e.Repo.Name), "")
			for _, c := range e.Outcome.Commits() {
				lines = append(lines, r.commitLine(c))
			}
			lines = append(lines, "")
		}
	}

	failures := r.failureLines(rep)
	if len(updated) == 0 && len(failures) == 0 {
		return []string{messageNoUpdate}
	}
	return append(lines, failures...)
}

// renderPull keeps the order the names were given in. Entries hold the
// resolved names in that order; each unresolved name is slotted back in at
// its Index.
func (r *Renderer) renderPull(rep result.Report) []string {
	var lines []string
	unresolved := rep.Unresolved
	pos := 0
	for _, e := range rep.Entries {
		for len(unresolved) > 0 && unresolved[0].Index <= pos {
			lines = append(lines, r.unresolvedPullLine(unresolved[0]))
			unresolved = unresolved[1:]
			pos++
		}
		lines = append(lines, r.pullLines(e)...)
		pos++
	}
	for _, u := range unresolved {
		lines = append(lines, r.unresolvedPullLine(u))
	}
	return lines
}

func (r *Renderer) unresolvedPullLine(u repo.ResolveError) string {
	return fmt.Sprintf("%s: %s %s", r.bold.Sprint(u.Name), r.errc.Sprint("error:"), causeOf(u))
}

func (r *Renderer) pullLines(e result.Entry) []string {
	name := r.bold.Sprint(e.Repo.Name)
	switch e.Outcome.Status() {
	case result.StatusUpdated:
		commits := e.Outcome.Commits()
		lines := []string{fmt.Sprintf("%s: updated (%d new %s)", name, len(commits), plural(len(commits), "commit"))}
		for _, c := range commits {
			lines = append(lines, r.commitLine(c))
		}
		return lines
	case result.StatusFailed:
		return []string{fmt.Sprintf("%s: %s %s", name, r.errc.Sprint("error:"), e.Outcome.Message())}
	default:
		return []string{fmt.Sprintf("%s: up to date", name)}
	}
}

func (r *Renderer) failureLines(rep result.Report) []string {
	var lines []string
	for _, e := range rep.Entries.Failures() {
		lines = append(lines, fmt.Sprintf("%s %s: %s", r.errc.Sprint("error:"), e.Repo.Name, e.Outcome.Message()))
	}
	for _, u := range rep.Unresolved {
		lines = append(lines, fmt.Sprintf("%s %s: %s", r.errc.Sprint("error:"), u.Name, causeOf(u)))
	}
	return lines
}

func (r *Renderer) commitLine(summary string) string {
	return r.bullet.Sprint("*") + " " + r.summary.Sprint(summary)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
