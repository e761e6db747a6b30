package split

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/noah-isme/patungan/internal/bill"
)

// ExportCSV renders per-participant breakdowns as CSV with amounts rounded
// to two decimal places.
func ExportCSV(b bill.Bill, selections map[string][]string, names map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Participant", "Subtotal", "Tax", "Tip", "Total"}); err != nil {
		return nil, err
	}
	for _, p := range Participants(b, selections, names) {
		row := []string{
			p.Name,
			formatAmount(p.Subtotal),
			formatAmount(p.Tax),
			formatAmount(p.Tip),
			formatAmount(p.Total),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(bill.Round2(v), 'f', 2, 64)
}
