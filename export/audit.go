package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"retrievalagent/places"
	"retrievalagent/retrieval"
)

// ExportFormat формат аудита
type ExportFormat string

const (
	FormatExcel ExportFormat = "excel"
	FormatCSV   ExportFormat = "csv"
)

// Названия листов книги аудита
const (
	SheetCandidates = "Candidates"
	SheetIterations = "Iterations"
	SheetQueries    = "Queries"
)

var (
	candidateHeaders = []string{
		"Place ID", "Name", "Kind", "Cluster", "Latitude", "Longitude",
		"Rating", "Onsite CO2 (kg)", "Low Carbon Score", "Tags", "Source",
	}
	iterationHeaders = []string{
		"Iteration", "Radius (km)", "Cluster Radii", "Thresholds", "Clusters",
		"Categories", "Queries", "Added", "Failures", "Decision", "Relaxation", "Relaxation Source",
	}
	queryHeaders = []string{
		"Iteration", "Kind", "Cluster", "Category", "Radius (km)", "Min Rating",
		"Provider", "Attempts", "Returned", "Added", "From Cache", "Status", "Error",
	}
)

// FormatFromPath определяет формат по расширению файла
func FormatFromPath(path string) ExportFormat {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatExcel
}

// Exporter экспорт журнала запуска для разбора
type Exporter struct {
	result *retrieval.Result
}

// NewExporter создает экспортер для результата запуска
func NewExporter(result *retrieval.Result) *Exporter {
	return &Exporter{result: result}
}

// Export записывает аудит в формате, определенном по расширению
func (e *Exporter) Export(path string) error {
	switch FormatFromPath(path) {
	case FormatCSV:
		return e.ExportToCSV(path)
	default:
		return e.ExportToExcel(path)
	}
}

// ExportToExcel записывает книгу с листами кандидатов, итераций и запросов
func (e *Exporter) ExportToExcel(filename string) error {
	if e.result == nil {
		return fmt.Errorf("no retrieval result to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetCandidates); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetIterations, SheetQueries} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
	}

	// Стиль заголовков
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]interface{}
	}{
		{SheetCandidates, candidateHeaders, candidateRows(e.result.Candidates)},
		{SheetIterations, iterationHeaders, iterationRows(e.result.History)},
		{SheetQueries, queryHeaders, queryRows(e.result.History)},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.headers, s.rows, headerStyle); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for rowIdx, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowIdx+2, err)
		}
	}

	// Ширина колонок
	for i := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, 18)
	}
	return nil
}

// ExportToCSV записывает журнал запросов в CSV
func (e *Exporter) ExportToCSV(filename string) error {
	if e.result == nil {
		return fmt.Errorf("no retrieval result to export")
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(queryHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for _, row := range queryRows(e.result.History) {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = fmt.Sprint(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

func candidateRows(candidates []places.Candidate) [][]interface{} {
	rows := make([][]interface{}, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, []interface{}{
			c.PlaceID, c.Name, string(c.Kind), c.ClusterID,
			c.Location.Latitude, c.Location.Longitude,
			c.Rating, c.OnsiteCO2Kg, c.LowCarbonScore,
			strings.Join(c.Tags, ", "), c.Source,
		})
	}
	return rows
}

func iterationRows(history []retrieval.Iteration) [][]interface{} {
	rows := make([][]interface{}, 0, len(history))
	for _, it := range history {
		relaxation, source := "", ""
		if it.Relaxation != nil {
			relaxation, source = it.Relaxation.String(), it.Relaxation.Source
		}
		rows = append(rows, []interface{}{
			it.Number, it.RadiusKm, formatRadii(it.ClusterRadiiKm), formatThresholds(it.Thresholds),
			strings.Join(it.ClustersTargeted, ", "), strings.Join(it.CategoriesTargeted, ", "),
			len(it.Queries), it.CandidatesAdded, it.Failures, string(it.Decision), relaxation, source,
		})
	}
	return rows
}

func queryRows(history []retrieval.Iteration) [][]interface{} {
	var rows [][]interface{}
	for _, it := range history {
		for _, q := range it.Queries {
			rows = append(rows, []interface{}{
				it.Number, string(q.Kind), q.ClusterID, q.Category, q.RadiusKm, q.MinRating,
				q.Provider, q.Attempts, q.Returned, q.Added, q.FromCache, queryStatus(q), q.Error,
			})
		}
	}
	return rows
}

func queryStatus(q retrieval.QueryOutcome) string {
	switch {
	case !q.Failed():
		return "ok"
	case q.Transient:
		return "transient failure"
	default:
		return "failed"
	}
}

// formatRadii "c1_central=15" в порядке идентификаторов
func formatRadii(radii map[string]float64) string {
	ids := make([]string, 0, len(radii))
	for id := range radii {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id+"="+strconv.FormatFloat(radii[id], 'f', -1, 64))
	}
	return strings.Join(parts, ", ")
}

func formatThresholds(thresholds map[places.Kind]float64) string {
	parts := make([]string, 0, len(thresholds))
	for _, kind := range places.Kinds() {
		if v, ok := thresholds[kind]; ok {
			parts = append(parts, fmt.Sprintf("%s=%.1f", kind, v))
		}
	}
	return strings.Join(parts, ", ")
}
