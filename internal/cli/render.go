package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/joseph-ayodele/docintake/constants"
	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/entity"
	"github.com/joseph-ayodele/docintake/internal/ingest"
	"github.com/joseph-ayodele/docintake/internal/pipeline"
	"github.com/joseph-ayodele/docintake/internal/repository"
)

type styles struct {
	Title   lipgloss.Style
	Key     lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		Key:     lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A6E3A1")),
		Warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F9E2AF")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F38BA8")),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475A")).
			Padding(0, 1),
	}
}

// Renderer prints results either styled (for a terminal) or as JSON lines.
type Renderer struct {
	w           io.Writer
	json        bool
	showContent bool
	st          styles
}

// NewRenderer switches to JSON when forced or when w is not a terminal.
func NewRenderer(w io.Writer, forceJSON, showContent bool) *Renderer {
	return &Renderer{w: w, json: forceJSON || !isTerminal(w), showContent: showContent, st: defaultStyles()}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (r *Renderer) emit(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(r.w, "{\"error\":%q}\n", err.Error())
		return
	}
	fmt.Fprintln(r.w, string(b))
}

// Outcome prints one processed file.
func (r *Renderer) Outcome(o pipeline.Outcome) {
	if r.json {
		if !r.showContent && o.Document != nil {
			o = withoutContent(o)
		}
		r.emit(o)
		return
	}
	switch o.Status {
	case constants.OutcomeOK:
		fmt.Fprintf(r.w, "%s %s\n", r.st.Success.Render("✔ "+string(o.Status)), r.st.Title.Render(o.FileName))
	case constants.OutcomeWarning:
		fmt.Fprintf(r.w, "%s %s: %v\n", r.st.Warning.Render("! "+string(o.Status)), o.FileName, o.Err)
		return
	default:
		fmt.Fprintf(r.w, "%s %s: %v\n", r.st.Error.Render("✘ "+string(o.Status)), o.FileName, o.Err)
		return
	}
	if o.Result.Method != "" {
		fmt.Fprintln(r.w, r.st.Muted.Render(fmt.Sprintf("  %s · %d page(s) · %s", o.Result.Method, o.Result.Pages, o.Result.Duration.Round(time.Millisecond))))
	}
	for _, w := range o.Result.Warnings {
		fmt.Fprintln(r.w, r.st.Warning.Render("  warning: ")+w)
	}
	if o.Document != nil {
		fmt.Fprintln(r.w, r.st.Box.Render(r.record(o.Document)))
		if r.showContent {
			fmt.Fprintln(r.w, o.Document.ExtractedContent())
		}
	}
}

// withoutContent drops extracted_content from the JSON view.
func withoutContent(o pipeline.Outcome) pipeline.Outcome {
	d := o.Document
	o.Document = entity.RestoreDocument(d.ID(), d.FileName(), d.DocumentType(), d.ProcessedAt(), "", d.DynamicFields(), d.SourceObject())
	return o
}

func (r *Renderer) record(d *entity.Document) string {
	var b strings.Builder
	line := func(k string, v any) {
		fmt.Fprintf(&b, "%s %v\n", r.st.Key.Render(k+":"), v)
	}
	if d.ID() != 0 {
		line("id", d.ID())
	}
	line(entity.FieldFileName, d.FileName())
	line(entity.FieldDocumentType, d.DocumentType())
	line(entity.FieldProcessedAt, d.ProcessedAtISO())
	line("content_chars", len([]rune(d.ExtractedContent())))
	if so := d.SourceObject(); so != "" {
		line("source_object", so)
	}
	for _, k := range d.DynamicKeys() {
		v, _ := d.Field(k)
		line(k, v)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Warning prints a process-level warning.
func (r *Renderer) Warning(msg string) {
	if r.json {
		r.emit(map[string]string{"warning": msg})
		return
	}
	fmt.Fprintln(r.w, r.st.Warning.Render("warning: ")+msg)
}

// Error prints a fatal command error.
func (r *Renderer) Error(err error) {
	if r.json {
		r.emit(map[string]string{"error": err.Error(), "code": common.KindOf(err)})
		return
	}
	fmt.Fprintln(r.w, r.st.Error.Render("error: ")+err.Error())
}

// Summary prints the totals of an ingest run.
func (r *Renderer) Summary(s ingest.Stats) {
	if r.json {
		r.emit(map[string]any{"summary": map[string]int{
			"files": s.Files, "ok": s.Succeeded, "warnings": s.Warnings, "failed": s.Failed,
		}})
		return
	}
	fmt.Fprintln(r.w, r.st.Muted.Render(fmt.Sprintf("%d file(s): %d ok, %d warning(s), %d failed", s.Files, s.Succeeded, s.Warnings, s.Failed)))
}

// Stats prints document counts per type.
func (r *Renderer) Stats(counts []repository.TypeCount) {
	var total int64
	for _, c := range counts {
		total += c.Count
	}
	if r.json {
		by := make(map[string]int64, len(counts))
		for _, c := range counts {
			by[c.DocumentType] = c.Count
		}
		r.emit(map[string]any{"total": total, "by_type": by})
		return
	}
	sorted := append([]repository.TypeCount(nil), counts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })
	width := len("document_type")
	for _, c := range sorted {
		width = max(width, lipgloss.Width(c.DocumentType))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.st.Title.Render(fmt.Sprintf("%-*s %8s", width, "document_type", "count")))
	for _, c := range sorted {
		fmt.Fprintf(&b, "%-*s %8d\n", width, c.DocumentType, c.Count)
	}
	fmt.Fprintf(&b, "%s", r.st.Muted.Render(fmt.Sprintf("%-*s %8d", width, "total", total)))
	fmt.Fprintln(r.w, r.st.Box.Render(b.String()))
}
