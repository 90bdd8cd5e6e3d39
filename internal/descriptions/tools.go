package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	PDFMergeDescription = `Combine pages from several PDF files into one new PDF, keeping shared resources, form fields and the tagged structure intact.

**When to use:** Need to assemble a document from parts of other documents: a contract with its annexes, selected pages of several reports, filled forms bundled into one file.

**Why it's useful:** Objects shared between pages (fonts, images, color spaces) are written once. Form fields with the same name are joined into one field with several widgets, and accessibility tags of the kept pages survive while tags of dropped pages are removed.

**Examples:**
• Bundle documents: "Merge cover.pdf, report.pdf and appendix.pdf into bundle.pdf"
• Pick pages: "Take pages 1-3 of a.pdf and page 5 of b.pdf into summary.pdf"
• Forms: "Merge the three filled application forms into applications.pdf, keeping the fields editable"

**Common workflows:**
1. Assembly: pdf_server_info → pdf_stats_file on each input → pdf_merge
2. Forms: pdf_inspect_fields on each input → check name conflicts → pdf_merge with merge_fields
3. Quality check: pdf_merge with verify → pdf_validate_file on the output

**Best practices:** Inputs are merged in the given order. Page specs use "1-3,5,7-" syntax. Fields whose types disagree are reported as warnings and left out of the form.`

	PDFInspectFieldsDescription = `List the interactive form fields of a PDF file with their types, values and widget placement.

**When to use:** Before merging forms, to see which fully qualified field names will be joined and whether their types agree.

**Why it's useful:** Fields sharing a name across inputs become one field after a merge, so they also share one value. Inspecting first shows conflicts before they happen.

**Examples:**
• Check a form: "Which fields does application.pdf have?"
• Compare forms: "Do a.pdf and b.pdf both have a field named applicant.name?"

**Best practices:** Use the pages parameter to look only at the fields that a partial merge would keep.`

	PDFValidateFileDescription = `Validate that a file is a readable, structurally sound PDF.

**When to use:** Before merging an input, or after a merge to check the output.

**Why it's useful:** Runs a structural validation of the cross-reference table and object graph, then reads the document back with an independent reader and reports page, widget and field counts.

**Examples:**
• Check an input: "Is scan-0042.pdf a valid PDF?"
• Check a result: "Validate bundle.pdf after the merge"

**Best practices:** Validation failures list the first problem found. Repairing damaged files is out of scope.`

	PDFStatsFileDescription = `Get document properties of a PDF file that matter for merging.

**When to use:** Need the page count for a page spec, or need to know whether a file is encrypted, tagged or carries a form.

**Why it's useful:** Reports permissions of encrypted files (merging needs the assemble permission), whether the file is tagged for accessibility and how many form fields it has, alongside title, author and producer.

**Examples:**
• Plan a merge: "How many pages does report.pdf have?"
• Check permissions: "Can pages of locked.pdf be assembled into another document?"

**Best practices:** Call this before choosing page ranges.`

	PDFServerInfoDescription = `Get server information, configured directories, merge defaults and the PDF files available as inputs.

**When to use:** At the start of a session to discover input files and the directory outputs are written to.

**Why it's useful:** Shows where inputs are read from and outputs are written to, the default tagging and field merging behavior, and a bounded listing of PDF files in the input directory.

**Best practices:** Directory listings are cached for a few minutes and capped in size; very large trees may be truncated.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"pdf_merge":          PDFMergeDescription,
	"pdf_inspect_fields": PDFInspectFieldsDescription,
	"pdf_validate_file":  PDFValidateFileDescription,
	"pdf_stats_file":     PDFStatsFileDescription,
	"pdf_server_info":    PDFServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the names of all tools in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
