// Package render implements the Output Formatters (spec.md §4.11): pure
// functions turning a final record list into bytes in one of six formats.
package render

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/copytree/copytree/internal/pipeline"
)

// Options controls formatting details shared across formatters.
type Options struct {
	Format          pipeline.OutputFormat
	Instructions    string
	Profile         string
	WithLineNumbers bool
	ShowSize        bool
	WithGitStatus   bool
	OnlyTree        bool
	AsReference     bool
}

// Render dispatches to the formatter named by opts.Format.
func Render(records []pipeline.FileRecord, opts Options) ([]byte, error) {
	switch opts.Format {
	case pipeline.FormatXML:
		return renderXML(records, opts), nil
	case pipeline.FormatJSON:
		return renderJSON(records, opts)
	case pipeline.FormatNDJSON:
		return renderNDJSON(records, opts)
	case pipeline.FormatMarkdown:
		return renderMarkdown(records, opts), nil
	case pipeline.FormatTree:
		return renderTree(records), nil
	case pipeline.FormatSARIF:
		return renderSARIF(records, opts)
	default:
		return nil, fmt.Errorf("render: unknown format %q", opts.Format)
	}
}

// decorateLines prefixes each line of text with a right-aligned 1-based
// index followed by "| ", per spec.md §4.11.
func decorateLines(text string) string {
	lines := strings.Split(text, "\n")
	width := len(fmt.Sprintf("%d", len(lines)))
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%*d| %s\n", width, i+1, line)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func recordContent(f pipeline.FileRecord, opts Options) string {
	text := f.Content()
	if opts.WithLineNumbers && !f.Binary {
		text = decorateLines(text)
	}
	return text
}

// buildTree groups records by directory prefix into an ASCII directory tree.
type treeNode struct {
	name     string
	isDir    bool
	size     int64
	children map[string]*treeNode
	order    []string
}

func newTreeNode(name string, isDir bool) *treeNode {
	return &treeNode{name: name, isDir: isDir, children: make(map[string]*treeNode)}
}

func buildTree(records []pipeline.FileRecord) *treeNode {
	root := newTreeNode("", true)
	for _, f := range records {
		parts := strings.Split(f.RelPath, "/")
		cur := root
		for i, part := range parts {
			isDir := i < len(parts)-1
			child, ok := cur.children[part]
			if !ok {
				child = newTreeNode(part, isDir)
				cur.children[part] = child
				cur.order = append(cur.order, part)
			}
			if !isDir {
				child.size = f.Size
			}
			cur = child
		}
	}
	return root
}

func writeTree(b *strings.Builder, node *treeNode, prefix string, showSize bool) {
	sort.Strings(node.order)
	for i, name := range node.order {
		child := node.children[name]
		last := i == len(node.order)-1
		connector := "├── "
		nextPrefix := prefix + "│   "
		if last {
			connector = "└── "
			nextPrefix = prefix + "    "
		}
		label := name
		if child.isDir {
			label += "/"
		} else if showSize {
			label += fmt.Sprintf(" (%d bytes)", child.size)
		}
		b.WriteString(prefix + connector + label + "\n")
		if child.isDir {
			writeTree(b, child, nextPrefix, showSize)
		}
	}
}

func renderTree(records []pipeline.FileRecord) []byte {
	root := buildTree(records)
	var b strings.Builder
	writeTree(&b, root, "", true)
	return []byte(b.String())
}

// groupByDir returns relPaths grouped by directory, directories sorted.
func groupByDir(records []pipeline.FileRecord) (dirs []string, byDir map[string][]pipeline.FileRecord) {
	byDir = make(map[string][]pipeline.FileRecord)
	for _, f := range records {
		dir := path.Dir(f.RelPath)
		if dir == "." {
			dir = "(root)"
		}
		byDir[dir] = append(byDir[dir], f)
	}
	for dir := range byDir {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return
}

func renderMarkdown(records []pipeline.FileRecord, opts Options) []byte {
	var b strings.Builder
	b.WriteString("# Context\n\n")

	if opts.Instructions != "" {
		b.WriteString(opts.Instructions)
		b.WriteString("\n\n")
	}

	if opts.OnlyTree {
		b.WriteString("```\n")
		b.Write(renderTree(records))
		b.WriteString("```\n")
		return []byte(b.String())
	}

	dirs, byDir := groupByDir(records)
	for _, dir := range dirs {
		fmt.Fprintf(&b, "## %s\n\n", dir)
		files := byDir[dir]
		sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
		for _, f := range files {
			fmt.Fprintf(&b, "### %s\n\n", f.RelPath)
			if opts.AsReference {
				fmt.Fprintf(&b, "_(reference only, content omitted, %d bytes)_\n\n", f.Size)
				continue
			}
			lang := languageForExt(f.RelPath)
			fmt.Fprintf(&b, "```%s\n%s\n```\n\n", lang, recordContent(f, opts))
		}
	}
	return []byte(b.String())
}

func languageForExt(relPath string) string {
	ext := strings.TrimPrefix(path.Ext(relPath), ".")
	switch ext {
	case "go", "py", "js", "ts", "tsx", "jsx", "rb", "rs", "java", "c", "cpp", "h", "hpp", "sh", "yaml", "yml", "json", "md", "sql":
		return ext
	default:
		return ""
	}
}

type jsonMetadata struct {
	FileCount int    `json:"fileCount"`
	TotalSize int64  `json:"totalSize"`
	Profile   string `json:"profile,omitempty"`
	Generated string `json:"generated"`
}

type jsonFile struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Modified  string `json:"modified"`
	Content   string `json:"content,omitempty"`
	Binary    bool   `json:"binary"`
	GitStatus string `json:"gitStatus,omitempty"`
}

type jsonDocument struct {
	Directory string       `json:"directory"`
	Metadata  jsonMetadata `json:"metadata"`
	Files     []jsonFile   `json:"files"`
}

func toJSONFile(f pipeline.FileRecord, opts Options) jsonFile {
	jf := jsonFile{
		Path:     f.RelPath,
		Size:     f.Size,
		Modified: f.ModTime.Format(time.RFC3339),
		Binary:   f.Binary,
	}
	if opts.WithGitStatus {
		jf.GitStatus = f.GitStatus
	}
	if !opts.AsReference && !opts.OnlyTree {
		jf.Content = recordContent(f, opts)
	}
	return jf
}

func renderJSON(records []pipeline.FileRecord, opts Options) ([]byte, error) {
	var totalSize int64
	files := make([]jsonFile, 0, len(records))
	for _, f := range records {
		totalSize += f.Size
		files = append(files, toJSONFile(f, opts))
	}

	doc := jsonDocument{
		Directory: ".",
		Metadata: jsonMetadata{
			FileCount: len(records),
			TotalSize: totalSize,
			Profile:   opts.Profile,
			Generated: time.Now().Format(time.RFC3339),
		},
		Files: files,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding json output: %w", err)
	}
	return buf.Bytes(), nil
}

func renderNDJSON(records []pipeline.FileRecord, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	header := jsonMetadata{
		FileCount: len(records),
		Profile:   opts.Profile,
		Generated: time.Now().Format(time.RFC3339),
	}
	for _, f := range records {
		header.TotalSize += f.Size
	}
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("encoding ndjson header: %w", err)
	}

	for _, f := range records {
		if err := enc.Encode(toJSONFile(f, opts)); err != nil {
			return nil, fmt.Errorf("encoding ndjson record %s: %w", f.RelPath, err)
		}
	}
	return buf.Bytes(), nil
}

// renderXML emits the ct: namespaced document. Markup characters and
// XML-illegal control characters are escaped by writeEscaped; binary
// content is base64-wrapped inside <ct:binary>.
func renderXML(records []pipeline.FileRecord, opts Options) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<ct:context xmlns:ct="https://copytree.dev/schema">` + "\n")

	if opts.Instructions != "" {
		b.WriteString("  <ct:instructions>")
		writeEscaped(&b, opts.Instructions)
		b.WriteString("</ct:instructions>\n")
	}

	b.WriteString("  <ct:tree>\n")
	treeText := string(renderTree(records))
	for _, line := range strings.Split(treeText, "\n") {
		b.WriteString("    " + line + "\n")
	}
	b.WriteString("  </ct:tree>\n")

	if !opts.OnlyTree {
		b.WriteString("  <ct:files>\n")
		for _, f := range records {
			fmt.Fprintf(&b, "    <ct:file path=\"@%s\" size=\"%d\">", f.RelPath, f.Size)
			if opts.AsReference {
				b.WriteString("</ct:file>\n")
				continue
			}
			if f.Binary {
				b.WriteString("<ct:binary encoding=\"base64\">")
				b.WriteString(base64.StdEncoding.EncodeToString(f.Bytes))
				b.WriteString("</ct:binary>")
			} else {
				writeEscaped(&b, recordContent(f, opts))
			}
			b.WriteString("</ct:file>\n")
		}
		b.WriteString("  </ct:files>\n")
	}

	b.WriteString("</ct:context>\n")
	return []byte(b.String())
}

func writeEscaped(b *strings.Builder, s string) {
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			if r < 0x20 && r != '\n' && r != '\t' {
				fmt.Fprintf(b, "&#%d;", r)
			} else {
				b.WriteRune(r)
			}
		}
	}
}

type sarifDocument struct {
	Schema  string      `json:"$schema"`
	Version string      `json:"version"`
	Runs    []sarifRun  `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type sarifResult struct {
	RuleID  string           `json:"ruleId"`
	Message sarifMessage     `json:"message"`
	Level   string           `json:"level"`
	Locs    []sarifLocation  `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

// renderSARIF emits a minimal SARIF 2.1.0 document, one result per record
// whose secrets-guard count in Meta["secrets_count"] is non-zero.
func renderSARIF(records []pipeline.FileRecord, opts Options) ([]byte, error) {
	var results []sarifResult
	for _, f := range records {
		count, _ := f.Meta["secrets_count"].(int)
		if count == 0 {
			continue
		}
		results = append(results, sarifResult{
			RuleID:  "secrets-guard",
			Message: sarifMessage{Text: fmt.Sprintf("%d likely secret(s) detected", count)},
			Level:   "warning",
			Locs: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: f.RelPath},
				},
			}},
		})
	}

	doc := sarifDocument{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "copytree", Version: "dev"}},
			Results: results,
		}},
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding sarif output: %w", err)
	}
	return buf.Bytes(), nil
}
