// Package export renders harvest result sets to CSV and XLSX and hands
// the bytes to a storage sink.
package export

import (
	"bytes"
	"encoding/csv"

	"github.com/rotisserie/eris"

	"github.com/salonscope/harvest-cli/internal/model"
)

// columnHeaders is the fixed export column set, in spreadsheet order.
var columnHeaders = []string{
	"サロン名", "住所", "電話番号", "URL", "ID", "Instagram",
	"アクセス", "営業時間", "定休日", "支払い方法",
	"カット価格", "スタッフ数", "こだわり条件", "備考", "その他",
}

// utf8BOM lets spreadsheet applications detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func recordRow(r model.SalonDetails) []string {
	phone := ""
	if r.Phone != nil {
		phone = *r.Phone
	}
	return []string{
		r.Name, r.Address, phone, r.URL, r.StableID, r.InstagramURL,
		r.Access, r.BusinessHours, r.ClosedDays, r.PaymentMethods,
		r.CutPrice, r.StaffCount, r.Features, r.Remarks, r.Other,
	}
}

// CSV renders the result set as BOM-prefixed UTF-8 CSV bytes.
func CSV(results []model.SalonDetails) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(columnHeaders); err != nil {
		return nil, eris.Wrap(err, "export: write csv header")
	}
	for _, r := range results {
		if err := w.Write(recordRow(r)); err != nil {
			return nil, eris.Wrap(err, "export: write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "export: flush csv")
	}
	return buf.Bytes(), nil
}
