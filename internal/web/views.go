package web

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/store"
)

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937}
table{border-collapse:collapse;margin:1rem 0}
th,td{border:1px solid #d1d5db;padding:.35rem .7rem;text-align:left}
th{background:#f3f4f6}
.failed{color:#b91c1c}.succeeded{color:#047857}
.alert{border:1px solid #fca5a5;background:#fef2f2;padding:1rem}`

// html accumulates output and remembers the first write error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) row(cells ...string) {
	h.raw("<tr>")
	for _, c := range cells {
		h.raw("<td>")
		h.text(c)
		h.raw("</td>")
	}
	h.raw("</tr>")
}

func (h *html) header(cells ...string) {
	h.raw("<tr>")
	for _, c := range cells {
		h.raw("<th>")
		h.text(c)
		h.raw("</th>")
	}
	h.raw("</tr>")
}

func (h *html) open(title string) {
	h.raw("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>")
	h.text(title)
	h.raw("</title><style>" + pageStyle + "</style></head><body>")
}

func (h *html) close() {
	h.raw("</body></html>")
}

// RunPage renders the summary of one cleaning run.
func RunPage(rec store.RunRecord) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.open("Cleaning run " + rec.ID)

		h.raw("<h1>")
		h.text(rec.Dataset)
		h.raw(` <small class="` + templ.EscapeString(rec.Status) + `">`)
		h.text(rec.Status)
		h.raw("</small></h1>")
		if rec.Error != "" {
			h.raw(`<p class="alert">`)
			h.text(rec.Error)
			h.raw("</p>")
		}

		h.raw("<table>")
		h.row("Run", rec.ID)
		h.row("File", rec.FileName)
		h.row("Encoding", rec.Encoding)
		h.row("Started", rec.StartedAt.Format("2006-01-02 15:04:05 MST"))
		h.row("Duration", rec.Duration().String())
		h.row("Rows", fmt.Sprintf("%d -> %d", rec.InitialRows, rec.FinalRows))
		h.row("Exact duplicates removed", strconv.Itoa(rec.ExactDuplicates))
		h.row("Partial duplicates", strconv.Itoa(rec.PartialDuplicates))
		h.row("Quarantined rows", strconv.Itoa(rec.QuarantinedRows))
		h.raw("</table>")
		if rec.Artifacts.Cleaned != "" {
			h.raw(`<p><a href="/api/runs/` + url.PathEscape(rec.ID) + `/cleaned.csv">Download cleaned data</a></p>`)
		}

		if len(rec.Outcomes) > 0 {
			h.raw("<h2>Rules</h2><table>")
			h.header("Rule", "Classification", "Violations", "Ratio", "Repaired", "Skipped", "Quarantined")
			for _, o := range rec.Outcomes {
				h.row(o.Rule, o.Classification,
					fmt.Sprintf("%d / %d", o.Violations, o.TotalRows),
					fmt.Sprintf("%.1f%%", o.Ratio*100),
					strconv.Itoa(o.Repaired), strconv.Itoa(o.Skipped), strconv.Itoa(o.Quarantined))
			}
			h.raw("</table>")
		}

		if len(rec.Quarantine) > 0 {
			h.raw("<h2>Quarantine</h2><table>")
			h.header("Reason", "Rows", "")
			for _, b := range rec.Quarantine {
				h.raw("<tr><td>")
				h.text(b.Reason)
				h.raw("</td><td>" + strconv.Itoa(b.Rows) + "</td><td>")
				if _, ok := rec.Artifacts.Quarantine[b.Reason]; ok {
					h.raw(`<a href="/api/runs/` + url.PathEscape(rec.ID) + "/quarantine/" +
						url.PathEscape(b.Reason) + `.csv">CSV</a>`)
				}
				h.raw("</td></tr>")
			}
			h.raw("</table>")
		}

		if len(rec.Coercion) > 0 {
			h.raw("<h2>Date coercion</h2><table>")
			h.header("Column", "Cells nulled")
			cols := make([]string, 0, len(rec.Coercion))
			for c := range rec.Coercion {
				cols = append(cols, c)
			}
			sort.Strings(cols)
			for _, c := range cols {
				h.row(c, strconv.Itoa(rec.Coercion[c]))
			}
			h.raw("</table>")
		}

		if len(rec.Issues) > 0 {
			h.raw("<h2>Issues</h2><table>")
			h.header("Stage", "Kind", "Subject", "Message")
			for _, is := range rec.Issues {
				h.row(is.Stage, is.Kind, is.Subject, is.Message)
			}
			h.raw("</table>")
		}

		if len(rec.Quality) > 0 {
			h.raw("<h2>Data quality</h2><table>")
			h.header("Column", "Issue", "Rows", "Magnitude", "Suggestion")
			for _, q := range rec.Quality {
				rows := "-"
				if q.RowCount > 0 {
					rows = strconv.Itoa(q.RowCount)
				}
				h.row(q.Column, q.Kind, rows, fmt.Sprintf("%.2f%%", q.Magnitude), q.Suggestion)
			}
			h.raw("</table>")
		}

		h.close()
		return h.err
	})
}

// ErrorPage renders a user-facing error.
func ErrorPage(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.open("Error")
		h.raw(`<div class="alert"><strong>`)
		h.text(msg.Message)
		h.raw("</strong>")
		if msg.Action != "" {
			h.raw("<p>")
			h.text(msg.Action)
			h.raw("</p>")
		}
		h.raw("<small>Code: ")
		h.text(msg.Code)
		h.raw("</small></div>")
		h.close()
		return h.err
	})
}
