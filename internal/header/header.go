// Package header parses the textual VCF header embedded in a BCF file into
// the dictionaries that record decoding resolves integer indices against.
package header

import (
	"fmt"
	"strconv"
	"strings"
)

// Decl is the declared value signature of an INFO or FORMAT key.
// Type and Number are kept as written in the header; the binary record
// carries its own wire type, so these are advisory for callers.
type Decl struct {
	Type   string // Integer, Float, Flag, Character or String
	Number string // 0, 1, 2, ..., A, R, G or .
}

// Key is one entry in the BCF string dictionary. FILTER, INFO and FORMAT
// lines with the same ID share a single entry and a single index, each
// contributing its own declaration.
type Key struct {
	ID     string
	Idx    int
	Filter bool  // declared as a FILTER
	Info   *Decl // non-nil when declared as an INFO key
	Format *Decl // non-nil when declared as a FORMAT key
}

// Contig is one entry in the contig dictionary.
type Contig struct {
	ID     string
	Length int64 // 0 when the header does not declare a length
	Idx    int
}

// Header holds the dictionaries built from a BCF file's textual header.
// It is immutable after Parse and safe for concurrent readers.
type Header struct {
	contigs []*Contig
	keys    []*Key
	samples []string
	byName  map[string]*Key
	gt      int
	lines   []string
}

// Parse builds a Header from the raw header text embedded in a BCF file.
// The text is the ##-prefixed meta lines plus the #CHROM column line, as
// stored by the writer; trailing NUL padding is ignored.
func Parse(text string) (*Header, error) {
	p := dictBuilder{byName: make(map[string]*Key)}

	// The FILTER/PASS entry is implicit: every BCF dictionary starts with
	// it whether or not the header spells it out.
	p.key("PASS").Filter = true

	h := &Header{byName: p.byName, gt: -1}

	lineNo := 0
	for _, line := range strings.Split(strings.TrimRight(text, "\x00"), "\n") {
		lineNo++
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		h.lines = append(h.lines, line)

		if strings.HasPrefix(line, "#CHROM") {
			fields := strings.Split(line, "\t")
			if len(fields) > 9 {
				h.samples = fields[9:]
			}
			continue
		}
		if !strings.HasPrefix(line, "##") {
			return nil, &ParseError{Line: lineNo, Message: "expected ## or #CHROM line"}
		}

		name, rest, ok := strings.Cut(line[2:], "=")
		if !ok || !strings.HasPrefix(rest, "<") {
			// Plain key=value meta line (##fileformat=..., ##reference=...).
			continue
		}
		switch name {
		case "contig", "FILTER", "INFO", "FORMAT":
		default:
			// ALT, META, PEDIGREE and friends have IDs but no slot in the
			// FILTER/INFO/FORMAT string dictionary.
			continue
		}

		attrs, err := parseStructured(rest)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Message: err.Error()}
		}
		id := attrs.get("ID")
		if id == "" {
			return nil, &ParseError{Line: lineNo, Message: fmt.Sprintf("%s line without ID", name)}
		}

		if name == "contig" {
			c := &Contig{ID: id, Idx: -1}
			if l := attrs.get("length"); l != "" {
				if n, err := strconv.ParseInt(l, 10, 64); err == nil {
					c.Length = n
				}
			}
			if idx, ok, err := attrs.idx(); err != nil {
				return nil, &ParseError{Line: lineNo, Message: err.Error()}
			} else if ok {
				c.Idx = idx
			}
			p.contigs = append(p.contigs, c)
			continue
		}

		k := p.key(id)
		switch name {
		case "FILTER":
			k.Filter = true
		case "INFO":
			k.Info = &Decl{Type: attrs.get("Type"), Number: attrs.get("Number")}
		case "FORMAT":
			k.Format = &Decl{Type: attrs.get("Type"), Number: attrs.get("Number")}
		}
		if idx, ok, err := attrs.idx(); err != nil {
			return nil, &ParseError{Line: lineNo, Message: err.Error()}
		} else if ok {
			if k.Idx >= 0 && k.Idx != idx {
				return nil, &ParseError{Line: lineNo, Message: fmt.Sprintf("conflicting IDX for %s: %d and %d", id, k.Idx, idx)}
			}
			k.Idx = idx
		}
	}

	var err error
	if h.keys, err = placeKeys(p.entries); err != nil {
		return nil, err
	}
	if h.contigs, err = placeContigs(p.contigs); err != nil {
		return nil, err
	}

	if gt, ok := h.byName["GT"]; ok && gt.Format != nil {
		h.gt = gt.Idx
	}
	return h, nil
}

// dictBuilder accumulates dictionary entries in encounter order before
// explicit IDX attributes and free-slot assignment fix their positions.
type dictBuilder struct {
	entries []*Key
	contigs []*Contig
	byName  map[string]*Key
}

func (p *dictBuilder) key(id string) *Key {
	if k, ok := p.byName[id]; ok {
		return k
	}
	k := &Key{ID: id, Idx: -1}
	p.entries = append(p.entries, k)
	p.byName[id] = k
	return k
}

// placeKeys assigns dictionary positions: entries with an explicit IDX keep
// it, the rest fill free slots in encounter order. Mirrors how BCF writers
// lay out the string table, so both IDX-carrying and IDX-free headers
// resolve identically.
func placeKeys(entries []*Key) ([]*Key, error) {
	table := make([]*Key, 0, len(entries))
	grow := func(n int) {
		for len(table) <= n {
			table = append(table, nil)
		}
	}
	for _, k := range entries {
		if k.Idx < 0 {
			continue
		}
		grow(k.Idx)
		if other := table[k.Idx]; other != nil && other != k {
			return nil, &ParseError{Message: fmt.Sprintf("IDX %d claimed by both %s and %s", k.Idx, other.ID, k.ID)}
		}
		table[k.Idx] = k
	}
	next := 0
	for _, k := range entries {
		if k.Idx >= 0 {
			continue
		}
		for next < len(table) && table[next] != nil {
			next++
		}
		grow(next)
		k.Idx = next
		table[next] = k
	}
	return table, nil
}

func placeContigs(entries []*Contig) ([]*Contig, error) {
	table := make([]*Contig, 0, len(entries))
	grow := func(n int) {
		for len(table) <= n {
			table = append(table, nil)
		}
	}
	for _, c := range entries {
		if c.Idx < 0 {
			continue
		}
		grow(c.Idx)
		if other := table[c.Idx]; other != nil && other != c {
			return nil, &ParseError{Message: fmt.Sprintf("contig IDX %d claimed by both %s and %s", c.Idx, other.ID, c.ID)}
		}
		table[c.Idx] = c
	}
	next := 0
	for _, c := range entries {
		if c.Idx >= 0 {
			continue
		}
		for next < len(table) && table[next] != nil {
			next++
		}
		grow(next)
		c.Idx = next
		table[next] = c
	}
	return table, nil
}

// Contig returns the contig dictionary entry at index i.
func (h *Header) Contig(i int) (*Contig, bool) {
	if i < 0 || i >= len(h.contigs) || h.contigs[i] == nil {
		return nil, false
	}
	return h.contigs[i], true
}

// NumContigs returns the size of the contig dictionary, including any
// gaps left by sparse IDX attributes.
func (h *Header) NumContigs() int {
	return len(h.contigs)
}

// Key returns the string dictionary entry at index i.
func (h *Header) Key(i int) (*Key, bool) {
	if i < 0 || i >= len(h.keys) || h.keys[i] == nil {
		return nil, false
	}
	return h.keys[i], true
}

// NumKeys returns the size of the string dictionary.
func (h *Header) NumKeys() int {
	return len(h.keys)
}

// InfoKey resolves an INFO key by name.
func (h *Header) InfoKey(name string) (*Key, bool) {
	k, ok := h.byName[name]
	if !ok || k.Info == nil {
		return nil, false
	}
	return k, true
}

// FormatKey resolves a FORMAT key by name.
func (h *Header) FormatKey(name string) (*Key, bool) {
	k, ok := h.byName[name]
	if !ok || k.Format == nil {
		return nil, false
	}
	return k, true
}

// GT returns the dictionary index of the FORMAT/GT key, or -1 when the
// header does not declare one.
func (h *Header) GT() int {
	return h.gt
}

// Samples returns the sample names from the #CHROM line, in column order.
func (h *Header) Samples() []string {
	return h.samples
}

// NumSamples returns the number of samples declared by the header.
func (h *Header) NumSamples() int {
	return len(h.samples)
}

// Lines returns the original header lines, in file order, for re-emission
// as VCF text.
func (h *Header) Lines() []string {
	return h.lines
}

// lineAttrs holds the key=value attributes of one ##name=<...> line.
type lineAttrs map[string]string

func (a lineAttrs) get(key string) string {
	return a[key]
}

func (a lineAttrs) idx() (int, bool, error) {
	raw, ok := a["IDX"]
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("bad IDX attribute %q", raw)
	}
	return n, true, nil
}

// parseStructured parses the <key=value,...> body of a structured header
// line. Commas and = inside double-quoted values do not split fields.
func parseStructured(rest string) (lineAttrs, error) {
	end := strings.LastIndexByte(rest, '>')
	if !strings.HasPrefix(rest, "<") || end < 0 {
		return nil, fmt.Errorf("malformed structured line %q", rest)
	}
	body := rest[1:end]

	attrs := make(lineAttrs)
	for _, field := range splitUnquoted(body, ',') {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("attribute %q is not key=value", field)
		}
		attrs[key] = strings.Trim(value, `"`)
	}
	return attrs, nil
}

// splitUnquoted splits s on sep, treating double-quoted runs as opaque.
func splitUnquoted(s string, sep byte) []string {
	var parts []string
	start := 0
	quoted := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			quoted = !quoted
		case s[i] == sep && !quoted:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

// ParseError reports a malformed header line.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("bcf header: %s", e.Message)
	}
	return fmt.Sprintf("bcf header: line %d: %s", e.Line, e.Message)
}
