package verify

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-merger/internal/pdf/errors"
)

// tailSize bounds how far from the end of the file startxref is searched for
const tailSize = 1024

// XRefEntry is one line of a classic cross-reference section
type XRefEntry struct {
	Number     int
	Offset     int64
	Generation int
	InUse      bool
}

// XRefSummary counts the entries of the last cross-reference section
type XRefSummary struct {
	StartXRef int64 `json:"startxref"`
	InUse     int   `json:"inUse"`
	Free      int   `json:"free"`
}

// CheckXRef reads the classic cross-reference table of path and confirms
// that every in-use entry points at the header of the object it names.
// Files ending in a cross-reference stream are rejected.
func CheckXRef(path string) (*XRefSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeIO, "failed to read file", err).WithFile(path)
	}

	start, err := findStartXRef(data)
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeSourceIntegrity, "cannot locate xref", err).WithFile(path)
	}
	entries, err := parseXRefTable(bytes.NewReader(data[start:]))
	if err != nil {
		return nil, pdferrors.WrapError(pdferrors.ErrorTypeSourceIntegrity, "malformed xref", err).WithFile(path)
	}

	summary := &XRefSummary{StartXRef: start}
	for _, e := range entries {
		if !e.InUse {
			summary.Free++
			continue
		}
		summary.InUse++
		if err := checkObjectHeader(data, e); err != nil {
			return summary, pdferrors.WrapError(pdferrors.ErrorTypeSourceIntegrity, "xref entry does not match file", err).
				WithFile(path).WithObject(e.Number, e.Generation)
		}
	}
	return summary, nil
}

func findStartXRef(data []byte) (int64, error) {
	tail := data
	if len(tail) > tailSize {
		tail = tail[len(tail)-tailSize:]
	}
	i := bytes.LastIndex(tail, []byte("startxref"))
	if i < 0 {
		return 0, fmt.Errorf("startxref keyword not found")
	}
	fields := strings.Fields(string(tail[i+len("startxref"):]))
	if len(fields) == 0 {
		return 0, fmt.Errorf("startxref has no offset")
	}
	start, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid startxref offset %q: %w", fields[0], err)
	}
	if start < 0 || start >= int64(len(data)) {
		return 0, fmt.Errorf("startxref offset %d outside file", start)
	}
	return start, nil
}

// parseXRefTable reads subsections up to the trailer keyword
func parseXRefTable(r io.Reader) ([]XRefEntry, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "xref" {
		return nil, fmt.Errorf("expected xref keyword")
	}

	var entries []XRefEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "trailer" {
			return entries, nil
		}

		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid subsection header %q", line)
		}
		first, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid start number %q: %w", parts[0], err)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid count %q: %w", parts[1], err)
		}

		for i := 0; i < count; i++ {
			if !scanner.Scan() {
				return nil, fmt.Errorf("unexpected end of xref entries")
			}
			entry, err := parseEntry(scanner.Text(), first+i)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("xref section has no trailer")
}

func parseEntry(line string, number int) (XRefEntry, error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return XRefEntry{}, fmt.Errorf("invalid xref entry for object %d: %q", number, line)
	}
	offset, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return XRefEntry{}, fmt.Errorf("invalid offset for object %d: %w", number, err)
	}
	gen, err := strconv.Atoi(parts[1])
	if err != nil {
		return XRefEntry{}, fmt.Errorf("invalid generation for object %d: %w", number, err)
	}

	entry := XRefEntry{Number: number, Offset: offset, Generation: gen}
	switch parts[2] {
	case "n":
		entry.InUse = true
	case "f":
	default:
		return XRefEntry{}, fmt.Errorf("unknown xref flag %q for object %d", parts[2], number)
	}
	return entry, nil
}

func checkObjectHeader(data []byte, e XRefEntry) error {
	if e.Offset < 0 || e.Offset >= int64(len(data)) {
		return fmt.Errorf("offset %d outside file", e.Offset)
	}
	want := fmt.Sprintf("%d %d obj", e.Number, e.Generation)
	if !bytes.HasPrefix(data[e.Offset:], []byte(want)) {
		end := min(e.Offset+int64(len(want)), int64(len(data)))
		return fmt.Errorf("expected %q at offset %d, found %q", want, e.Offset, data[e.Offset:end])
	}
	return nil
}
