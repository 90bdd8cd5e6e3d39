package pdf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/a3tai/mcp-pdf-merger/internal/descriptions"
)

var errScanLimit = errors.New("scan limit reached")

// DirectoryCache provides TTL-based caching for directory listings
type DirectoryCache struct {
	entries map[string]cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

type cacheEntry struct {
	files      []FileInfo
	truncated  bool
	lastUpdate time.Time
}

// NewDirectoryCache creates a new directory cache with specified TTL
func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached listing of path if it has not expired
func (c *DirectoryCache) Get(path string) (files []FileInfo, truncated, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[path]
	if !exists || time.Since(entry.lastUpdate) > c.ttl {
		return nil, false, false
	}
	return entry.files, entry.truncated, true
}

// Set stores the listing of path
func (c *DirectoryCache) Set(path string, files []FileInfo, truncated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{files: files, truncated: truncated, lastUpdate: time.Now()}
}

// Clear removes expired entries
func (c *DirectoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path, entry := range c.entries {
		if time.Since(entry.lastUpdate) > c.ttl {
			delete(c.entries, path)
		}
	}
}

// Len returns the number of entries, expired or not
func (c *DirectoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// DirectoryScanner lists PDF files below a directory within depth, count
// and time limits. Hidden entries and symlinks are skipped.
type DirectoryScanner struct {
	maxDepth  int
	fileLimit int
	timeLimit time.Duration
}

// NewDirectoryScanner creates a scanner; zero disables a limit
func NewDirectoryScanner(maxDepth, fileLimit int, timeLimit time.Duration) *DirectoryScanner {
	return &DirectoryScanner{maxDepth: maxDepth, fileLimit: fileLimit, timeLimit: timeLimit}
}

// Scan walks root. truncated reports that a limit stopped the walk early.
func (s *DirectoryScanner) Scan(ctx context.Context, root string) (files []FileInfo, truncated bool, err error) {
	start := time.Now()
	root = filepath.Clean(root)
	files = []FileInfo{}

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if walkErr != nil {
			if entry != nil && entry.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if s.timeLimit > 0 && time.Since(start) > s.timeLimit {
			return errScanLimit
		}
		if path == root {
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") || entry.Type()&fs.ModeSymlink != 0 {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if s.maxDepth > 0 && depth(root, path) >= s.maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil //nolint:nilerr // Skip entries that vanish during the walk
		}
		files = append(files, FileInfo{
			Name:         entry.Name(),
			Path:         path,
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
		if s.fileLimit > 0 && len(files) >= s.fileLimit {
			return errScanLimit
		}
		return nil
	})
	if errors.Is(err, errScanLimit) {
		return files, true, nil
	}
	return files, false, err
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// PDFServerInfo builds server info results, caching directory listings
type PDFServerInfo struct {
	cache   *DirectoryCache
	scanner *DirectoryScanner
	service *Service
}

// NewPDFServerInfo creates a server info handler for service
func NewPDFServerInfo(service *Service) *PDFServerInfo {
	return &PDFServerInfo{
		cache:   NewDirectoryCache(5 * time.Minute),
		scanner: NewDirectoryScanner(5, 100, 3*time.Second),
		service: service,
	}
}

// GetServerInfo returns server information and the PDF files available in
// the input directory
func (p *PDFServerInfo) GetServerInfo(ctx context.Context, serverName, version string) (*PDFServerInfoResult, error) {
	dir := p.service.pathValidator.GetConfiguredDirectory()

	files, truncated, ok := p.cache.Get(dir)
	if !ok {
		scanCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		var err error
		files, truncated, err = p.scanner.Scan(scanCtx, dir)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("directory scan cancelled: %w", ctx.Err())
			}
			files, truncated = []FileInfo{}, false
		} else {
			p.cache.Set(dir, files, truncated)
		}
	}

	return &PDFServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  dir,
		OutputDirectory:   p.service.outputValidator.GetConfiguredDirectory(),
		MaxFileSize:       p.service.maxFileSize,
		Tagged:            p.service.defaults.Tagged,
		MergeFields:       p.service.defaults.MergeFields,
		AvailableTools:    p.getAvailableTools(),
		DirectoryContents: files,
		Truncated:         truncated,
		UsageGuidance:     p.getUsageGuidance(),
	}, nil
}

func (p *PDFServerInfo) getAvailableTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "pdf_merge",
			Description: descriptions.GetToolDescription("pdf_merge"),
			Usage:       "Use this tool to combine pages of several PDF files into a new file.",
			Parameters: "inputs (required): list of {path, pages} objects, output (required): output file name, " +
				"tagged (optional), merge_fields (optional), overwrite (optional), verify (optional)",
		},
		{
			Name:        "pdf_inspect_fields",
			Description: descriptions.GetToolDescription("pdf_inspect_fields"),
			Usage:       "Use this tool to list the form fields of a file before merging forms.",
			Parameters:  "path (required): path to the PDF file, pages (optional): page spec such as 1-3,5",
		},
		{
			Name:        "pdf_validate_file",
			Description: descriptions.GetToolDescription("pdf_validate_file"),
			Usage:       "Use this tool to check inputs before a merge and outputs after it.",
			Parameters:  "path (required): path to the PDF file",
		},
		{
			Name:        "pdf_stats_file",
			Description: descriptions.GetToolDescription("pdf_stats_file"),
			Usage:       "Use this tool to get page count, permissions, tagging and field count of a file.",
			Parameters:  "path (required): path to the PDF file",
		},
		{
			Name:        "pdf_server_info",
			Description: descriptions.GetToolDescription("pdf_server_info"),
			Usage:       "Use this tool to discover input files and server defaults.",
			Parameters:  "none",
		},
	}
}

func (p *PDFServerInfo) getUsageGuidance() string {
	return fmt.Sprintf(`PDF Merger MCP Server Usage Guide:

1. DISCOVER INPUTS:
   - Use 'pdf_server_info' to list PDF files in the input directory
   - Use 'pdf_stats_file' for page counts and permissions

2. CHECK FORMS:
   - Use 'pdf_inspect_fields' on each input that has a form
   - Fields with the same full name are joined into one field

3. MERGE:
   - Use 'pdf_merge' with inputs in output order
   - Page specs: "1-3,5" takes pages 1, 2, 3 and 5; "7-" takes page 7 to the end
   - Set verify to read the output back after writing

4. VALIDATE:
   - Use 'pdf_validate_file' on the output

IMPORTANT NOTES:
- Relative paths are resolved against the input directory for inputs and the output directory for outputs
- The server can handle files up to %dMB
- Encrypted inputs need the assemble permission, and the fill-forms permission when fields are merged`,
		p.service.maxFileSize/(1024*1024))
}

// ClearCache clears expired cache entries
func (p *PDFServerInfo) ClearCache() {
	p.cache.Clear()
}
