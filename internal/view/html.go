package view

import (
	"strconv"
	"strings"
)

// EmptyHistoryText is shown in the history container when there are no
// entries.
const EmptyHistoryText = "History is empty"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML replaces & < > " ' with their entities in a single pass. It is
// not idempotent: escaping twice escapes the ampersands of the first pass.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// HistoryHTML renders the history container markup. File names are escaped;
// timestamps are generated locally and are written as-is.
func HistoryHTML(rows []HistoryRow) string {
	if len(rows) == 0 {
		return `<p class="history-empty">` + EmptyHistoryText + `</p>`
	}

	var b strings.Builder
	for _, r := range rows {
		class := "history-item"
		if r.Active {
			class += " active"
		}
		b.WriteString(`<div class="` + class + `" data-id="` + strconv.FormatInt(r.ID, 10) + `">`)
		b.WriteString(`<div class="history-item-name">` + EscapeHTML(r.FileName) + `</div>`)
		b.WriteString(`<div class="history-item-time">` + r.Timestamp + `</div>`)
		b.WriteString("</div>\n")
	}
	return b.String()
}

// StatusHTML renders the status message area. An empty status renders as
// an empty string.
func StatusHTML(s Status) string {
	if s.Kind == StatusNone {
		return ""
	}
	return `<div class="` + string(s.Kind) + `">` + s.String() + `</div>`
}
