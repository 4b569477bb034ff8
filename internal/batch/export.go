package batch

import (
	"strings"

	"ocr-credits-go/internal/models"
)

const exportSeparator = "---------------------------------------------------"

// CombinedText joins every item's extracted text into one document, each
// section headed by the file name and divided by a dashed separator line.
// Items that produced no text get a placeholder so the section order still
// matches the file order.
func CombinedText(items []models.BatchItem) string {
	sections := make([]string, 0, len(items))
	for _, item := range items {
		text := item.ExtractedText
		if text == "" {
			text = "No text extracted"
		}
		sections = append(sections, item.Name+"\n"+text+"\n\n")
	}
	return strings.Join(sections, exportSeparator+"\n")
}
