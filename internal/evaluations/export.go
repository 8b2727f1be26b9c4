package evaluations

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// BuildReportXLSX renders the period evaluation report as an xlsx workbook.
func BuildReportXLSX(periodName string, rows []ExportRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Evaluations"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"No", "Nama Guru", "Email", "Sekolah", "Total Skor", "Rata-rata", "Nilai Akhir"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		f.SetRowStyle(sheet, 1, 1, style)
	}

	for i, row := range rows {
		values := []interface{}{i + 1, row.TeacherName, row.Email, row.Organization,
			row.TotalScore, row.AverageScore, row.FinalGrade}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	f.SetColWidth(sheet, "B", "D", 28)
	f.SetCellValue(sheet, fmt.Sprintf("A%d", len(rows)+3), fmt.Sprintf("Periode: %s", periodName))

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf, nil
}
