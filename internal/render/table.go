package render

import "strings"

// Table renders a markdown pipe table. Rows shorter than header are padded
// with empty cells.
func Table(header []string, rows [][]string) string {
	var sb strings.Builder
	writeRow(&sb, header, len(header))
	sb.WriteString("|")
	for range header {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, row := range rows {
		writeRow(&sb, row, len(header))
	}
	return sb.String()
}

func writeRow(sb *strings.Builder, cells []string, width int) {
	sb.WriteString("|")
	for i := 0; i < width; i++ {
		cell := ""
		if i < len(cells) {
			cell = strings.ReplaceAll(cells[i], "|", `\|`)
		}
		sb.WriteString(" ")
		sb.WriteString(cell)
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}
