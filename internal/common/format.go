package common

import (
	"fmt"
	"strings"
)

// Default separator width for command output
const DefaultWidth = 80

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintField prints one aligned label/value line.
func PrintField(label string, value interface{}) {
	fmt.Printf("  %-18s %v\n", label+":", value)
}

// PrintItemLine prints one per-file status line of a batch run.
func PrintItemLine(index int, name, status, message string) {
	fmt.Printf("  [%d] %-30s %-20s %s\n", index+1, name, status, message)
}
