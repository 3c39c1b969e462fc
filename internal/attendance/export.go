package attendance

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// CSVHeader is the fixed column order of the export.
var CSVHeader = []string{"세션명", "이름", "구분", "주차여부", "시간"}

const utf8BOM = "\uFEFF"

// WriteCSV writes views as a BOM-prefixed CSV in which every field is quoted.
// Times are rendered the way a Korean locale spreadsheet expects, in loc.
func WriteCSV(w io.Writer, views []RecordView, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(utf8BOM)
	bw.WriteString(strings.Join(CSVHeader, ","))
	bw.WriteByte('\n')
	for _, v := range views {
		parking := "X"
		if v.HasParking {
			parking = "O"
		}
		row := []string{v.SessionName, v.Name, v.CheckType.Label(), parking, FormatKoreanTime(v.Timestamp.In(loc))}
		for i, field := range row {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(quote(field))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// FormatKoreanTime renders t like "2024. 3. 5. 오후 2:07:09".
func FormatKoreanTime(t time.Time) string {
	meridiem := "오전"
	h := t.Hour()
	if h >= 12 {
		meridiem = "오후"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d. %d. %d. %s %d:%02d:%02d", t.Year(), int(t.Month()), t.Day(), meridiem, h, t.Minute(), t.Second())
}
