package aggregate

import (
	"strings"

	"fintrack/internal/core"
)

const csvHeader = "Date,Type,Category,Note,Amount"

// ExportRange returns the transactions an export covers: the inclusive
// custom range when both bounds parse, otherwise everything. Category is
// never filtered on export.
func (e *Engine) ExportRange(txs []core.Transaction, startDate, endDate string) []core.Transaction {
	return e.Filter(txs, Params{DateMode: DateModeCustom, StartDate: startDate, EndDate: endDate})
}

// ExportCSV renders the export rows as text. Notes are quoted verbatim;
// embedded quotes and commas are not escaped.
func (e *Engine) ExportCSV(txs []core.Transaction, startDate, endDate string) string {
	rows := e.ExportRange(txs, startDate, endDate)

	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteByte('\n')
	for i, tx := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.FormatDate(tx))
		b.WriteByte(',')
		b.WriteString(string(tx.Type))
		b.WriteByte(',')
		b.WriteString(tx.Category)
		b.WriteString(`,"`)
		b.WriteString(tx.Note)
		b.WriteString(`",`)
		b.WriteString(tx.Amount.String())
	}
	return b.String()
}

// FormatDate renders the transaction date as M/D/YYYY in the engine
// location, or "" when the date is missing.
func (e *Engine) FormatDate(tx core.Transaction) string {
	if tx.Date.IsZero() {
		return ""
	}
	return tx.Date.In(e.loc).Format("1/2/2006")
}
