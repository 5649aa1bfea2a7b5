package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/tsawler/slidesmith/report"
)

const (
	partContentTypes = "[Content_Types].xml"
	partPresentation = "ppt/presentation.xml"
	partPresRels     = "ppt/_rels/presentation.xml.rels"
	partCoreProps    = "docProps/core.xml"
	partAppProps     = "docProps/app.xml"
	xmlDeclaration   = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

// maxPartSize bounds the decompressed size of a single part.
const maxPartSize int64 = 256 << 20

// Package is an opened presentation held in memory. All parts are kept as
// raw bytes so edits touch only what they change.
type Package struct {
	source       string
	parts        map[string][]byte
	order        []string // Zip entry order
	contentTypes *contentTypesXML
	presentation *presentationXML
	presRels     *relationshipsXML
	slides       []*Slide
	layouts      map[string]*Layout
	coreProps    *corePropertiesXML
	appProps     *appPropertiesXML
}

// Properties is document level metadata.
type Properties struct {
	Title       string
	Subject     string
	Creator     string
	Keywords    []string
	Application string
}

// Open opens a PPTX file.
func Open(filename string) (*Package, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &report.ParseError{Source: filename, Err: err}
	}
	return openBytes(filename, data)
}

// OpenBytes opens a PPTX document held in memory.
func OpenBytes(data []byte) (*Package, error) {
	return openBytes("", data)
}

// OpenReader opens a PPTX document from a reader.
func OpenReader(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &report.ParseError{Err: fmt.Errorf("opening ZIP archive: %w", err)}
	}
	return load("", zr)
}

func openBytes(source string, data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &report.ParseError{Source: source, Err: fmt.Errorf("opening ZIP archive: %w", err)}
	}
	return load(source, zr)
}

func load(source string, zr *zip.Reader) (*Package, error) {
	p := &Package{
		source: source,
		parts:  make(map[string][]byte, len(zr.File)),
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return nil, &report.ParseError{Source: source, Err: fmt.Errorf("reading %s: %w", f.Name, err)}
		}
		p.setPart(f.Name, data)
	}

	if err := p.validate(); err != nil {
		return nil, &report.ParseError{Source: source, Err: err}
	}
	if err := p.parse(); err != nil {
		return nil, &report.ParseError{Source: source, Err: err}
	}
	return p, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	if int64(f.UncompressedSize64) > maxPartSize {
		return nil, fmt.Errorf("part too large (%d bytes)", f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxPartSize))
}

// validate checks that required PPTX files exist.
func (p *Package) validate() error {
	for _, name := range []string{partContentTypes, partPresentation} {
		if _, ok := p.parts[name]; !ok {
			return fmt.Errorf("missing required file: %s", name)
		}
	}
	return nil
}

// parse rebuilds the parsed view from the raw parts.
func (p *Package) parse() error {
	p.contentTypes = &contentTypesXML{}
	if err := xml.Unmarshal(p.parts[partContentTypes], p.contentTypes); err != nil {
		return fmt.Errorf("parsing content types: %w", err)
	}

	p.presRels = &relationshipsXML{}
	if data, ok := p.parts[partPresRels]; ok {
		if err := xml.Unmarshal(data, p.presRels); err != nil {
			return fmt.Errorf("parsing relationships: %w", err)
		}
	}

	p.presentation = &presentationXML{}
	if err := xml.Unmarshal(p.parts[partPresentation], p.presentation); err != nil {
		return fmt.Errorf("parsing presentation: %w", err)
	}

	p.layouts = make(map[string]*Layout)
	if err := p.parseSlides(); err != nil {
		return fmt.Errorf("parsing slides: %w", err)
	}

	p.coreProps = nil
	if data, ok := p.parts[partCoreProps]; ok {
		props := &corePropertiesXML{}
		if xml.Unmarshal(data, props) == nil {
			p.coreProps = props
		}
	}
	p.appProps = nil
	if data, ok := p.parts[partAppProps]; ok {
		props := &appPropertiesXML{}
		if xml.Unmarshal(data, props) == nil {
			p.appProps = props
		}
	}
	return nil
}

type slideRef struct {
	path string
	id   string
	rID  string
}

// slideOrder lists the slide parts in presentation order. Without a slide
// id list the parts are sorted by number.
func (p *Package) slideOrder() ([]slideRef, error) {
	if p.presentation.SlideIdList == nil {
		var refs []slideRef
		for _, name := range p.order {
			if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
				refs = append(refs, slideRef{path: name})
			}
		}
		sort.SliceStable(refs, func(i, j int) bool {
			return extractSlideNumber(refs[i].path) < extractSlideNumber(refs[j].path)
		})
		return refs, nil
	}

	refs := make([]slideRef, 0, len(p.presentation.SlideIdList.SlideId))
	for _, sid := range p.presentation.SlideIdList.SlideId {
		rel := p.presRels.byID(sid.RID)
		if rel == nil {
			return nil, fmt.Errorf("slide id %s: relationship %q not found", sid.ID, sid.RID)
		}
		refs = append(refs, slideRef{
			path: resolvePart(partPresentation, rel.Target),
			id:   sid.ID,
			rID:  sid.RID,
		})
	}
	return refs, nil
}

// extractSlideNumber extracts the slide number from a path like "ppt/slides/slide1.xml"
func extractSlideNumber(path string) int {
	name := strings.TrimPrefix(path, "ppt/slides/slide")
	name = strings.TrimSuffix(name, ".xml")
	var num int
	fmt.Sscanf(name, "%d", &num)
	return num
}

// parseSlides parses all slides in presentation order.
func (p *Package) parseSlides() error {
	refs, err := p.slideOrder()
	if err != nil {
		return err
	}
	p.slides = make([]*Slide, 0, len(refs))
	for i, ref := range refs {
		slide, err := p.parseSlide(ref, i)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.path, err)
		}
		p.slides = append(p.slides, slide)
	}
	return nil
}

// readRels parses the relationships of a part. A missing rels part yields an
// empty set.
func (p *Package) readRels(part string) (*relationshipsXML, error) {
	rels := &relationshipsXML{}
	data, ok := p.parts[relsPath(part)]
	if !ok {
		return rels, nil
	}
	if err := xml.Unmarshal(data, rels); err != nil {
		return nil, fmt.Errorf("parsing relationships of %s: %w", part, err)
	}
	return rels, nil
}

// SlideCount returns the number of slides.
func (p *Package) SlideCount() int {
	return len(p.slides)
}

// Slide returns the slide at the given index (0-indexed).
func (p *Package) Slide(index int) (*Slide, error) {
	if index < 0 || index >= len(p.slides) {
		return nil, fmt.Errorf("slide index %d out of range (0-%d)", index, len(p.slides)-1)
	}
	return p.slides[index], nil
}

// Slides returns the slides in presentation order.
func (p *Package) Slides() []*Slide {
	return append([]*Slide(nil), p.slides...)
}

// Source returns the file name the package was opened from, if any.
func (p *Package) Source() string {
	return p.source
}

// Part returns the raw bytes of a part.
func (p *Package) Part(name string) ([]byte, bool) {
	data, ok := p.parts[name]
	return data, ok
}

// PartNames returns the part names in archive order.
func (p *Package) PartNames() []string {
	return append([]string(nil), p.order...)
}

// Properties returns document metadata.
func (p *Package) Properties() Properties {
	var props Properties
	if p.coreProps != nil {
		props.Title = strings.TrimSpace(p.coreProps.Title)
		props.Subject = p.coreProps.Subject
		props.Creator = p.coreProps.Creator
		if p.coreProps.Keywords != "" {
			for _, kw := range strings.Split(p.coreProps.Keywords, ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					props.Keywords = append(props.Keywords, kw)
				}
			}
		}
	}
	if p.appProps != nil {
		props.Application = p.appProps.Application
	}
	return props
}

// Clone returns an independent copy of the package.
func (p *Package) Clone() (*Package, error) {
	out := &Package{
		source: p.source,
		parts:  make(map[string][]byte, len(p.parts)),
	}
	for _, name := range p.order {
		out.setPart(name, append([]byte(nil), p.parts[name]...))
	}
	if err := out.parse(); err != nil {
		return nil, fmt.Errorf("cloning package: %w", err)
	}
	return out, nil
}

func (p *Package) setPart(name string, data []byte) {
	if _, ok := p.parts[name]; !ok {
		p.order = append(p.order, name)
	}
	p.parts[name] = data
}

func (p *Package) deletePart(name string) {
	if _, ok := p.parts[name]; !ok {
		return
	}
	delete(p.parts, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// putXML marshals v into a part with the standard declaration.
func (p *Package) putXML(name string, v any) error {
	data, err := xml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}
	p.setPart(name, append([]byte(xmlDeclaration), data...))
	return nil
}

// WriteTo writes the package as a zip archive. The content types part is
// written first.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	names := make([]string, 0, len(p.order))
	names = append(names, partContentTypes)
	for _, name := range p.order {
		if name != partContentTypes {
			names = append(names, name)
		}
	}
	for _, name := range names {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return cw.n, fmt.Errorf("creating %s: %w", name, err)
		}
		if _, err := fw.Write(p.parts[name]); err != nil {
			return cw.n, fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("closing archive: %w", err)
	}
	return cw.n, nil
}

// Bytes returns the package as a zip archive.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the package to a file.
func (p *Package) Save(filename string) error {
	data, err := p.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}

// resolvePart resolves a relationship target against the part that owns it.
func resolvePart(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Join(path.Dir(source), target)
}

// relsPath returns the relationships part of a part.
func relsPath(part string) string {
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

// relTarget returns the target of a relationship from one part to another.
func relTarget(from, to string) string {
	fromDir := strings.Split(path.Dir(from), "/")
	toParts := strings.Split(to, "/")
	i := 0
	for i < len(fromDir) && i < len(toParts)-1 && fromDir[i] == toParts[i] {
		i++
	}
	var b strings.Builder
	for j := i; j < len(fromDir); j++ {
		if fromDir[j] == "." || fromDir[j] == "" {
			continue
		}
		b.WriteString("../")
	}
	b.WriteString(strings.Join(toParts[i:], "/"))
	return b.String()
}
