package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Document is one open template instance. Each synthesis row opens its own
// instance from pristine bytes; instances are not safe for concurrent use
// and never share mutable state with each other.
type Document struct {
	data    []byte
	xref    *xrefTable
	trailer Dict
	sec     *securityHandler

	cache map[int]Object
	pages []*Page

	nextNum  int
	newObjs  map[int]Object // objects created or rewritten by drawing
	embedded []*EmbeddedFont
}

// Open parses template bytes. Templates carrying standard encryption with an
// empty user password open transparently; anything needing a real password
// fails with ErrPasswordProtected.
func Open(data []byte) (*Document, error) {
	if !bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-")) {
		return nil, errors.New("not a PDF file")
	}
	table, err := parseXRef(data)
	if err != nil {
		return nil, fmt.Errorf("cross-reference: %w", err)
	}
	doc := &Document{
		data:    data,
		xref:    table,
		trailer: table.trailer,
		cache:   make(map[int]Object),
		newObjs: make(map[int]Object),
	}
	if encObj, ok := table.trailer["Encrypt"]; ok {
		enc, ok := doc.resolve(encObj).(Dict)
		if !ok {
			return nil, errors.New("invalid /Encrypt dictionary")
		}
		handler, err := newSecurityHandler(enc, fileIDBytes(table.trailer), doc.resolve)
		if err != nil {
			return nil, err
		}
		doc.sec = handler
		// Objects touched before the handler existed were loaded raw.
		doc.cache = make(map[int]Object)
	}
	if err := doc.loadPages(); err != nil {
		return nil, err
	}
	doc.nextNum = doc.maxObjectNumber() + 1
	return doc, nil
}

// PageCount reports the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// Page returns the 1-based page.
func (d *Document) Page(n int) (*Page, error) {
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range 1..%d", n, len(d.pages))
	}
	return d.pages[n-1], nil
}

// resolve dereferences chains of indirect references.
func (d *Document) resolve(obj Object) Object {
	for depth := 0; depth < 32; depth++ {
		ref, ok := obj.(Ref)
		if !ok {
			return obj
		}
		loaded, err := d.loadObject(ref.Num)
		if err != nil {
			return Null{}
		}
		obj = loaded
	}
	return Null{}
}

func (d *Document) loadObject(num int) (Object, error) {
	if obj, ok := d.cache[num]; ok {
		return obj, nil
	}
	entry, ok := d.xref.entries[num]
	if !ok || entry.free {
		return Null{}, nil
	}
	var obj Object
	var err error
	if entry.inStream {
		obj, err = d.loadFromObjectStream(entry.streamNum, entry.streamIdx, num)
	} else {
		obj, err = d.parseIndirectAt(entry.offset, num, entry.generation)
	}
	if err != nil {
		return nil, err
	}
	d.cache[num] = obj
	return obj, nil
}

// parseIndirectAt reads "num gen obj ... endobj" at a byte offset,
// decrypting strings and stream bytes when the file is encrypted.
func (d *Document) parseIndirectAt(offset int64, wantNum, gen int) (Object, error) {
	if offset < 0 || offset >= int64(len(d.data)) {
		return nil, fmt.Errorf("object %d offset %d out of file", wantNum, offset)
	}
	l := &lexer{data: d.data, pos: int(offset)}
	numTok := l.readToken()
	genTok := l.readToken()
	num, err1 := strconv.Atoi(numTok)
	parsedGen, err2 := strconv.Atoi(genTok)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("object %d: bad header %q %q", wantNum, numTok, genTok)
	}
	if num != wantNum {
		return nil, fmt.Errorf("object %d: header names %d", wantNum, num)
	}
	if err := l.expectKeyword("obj"); err != nil {
		return nil, fmt.Errorf("object %d: %w", wantNum, err)
	}
	obj, err := l.readObject()
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", wantNum, err)
	}

	if dict, ok := obj.(Dict); ok {
		l.skipWhitespace()
		if bytes.HasPrefix(d.data[l.pos:], []byte("stream")) {
			l.pos += len("stream")
			l.skipStreamEOL()
			length, ok := d.streamLength(dict)
			if !ok || l.pos+length > len(d.data) {
				return nil, fmt.Errorf("object %d: invalid stream length", wantNum)
			}
			raw := bytes.Clone(d.data[l.pos : l.pos+length])
			stream := &Stream{Dict: dict, Data: raw}
			if d.sec != nil {
				if t, _ := dict.name("Type"); t != "XRef" {
					stream.Data = d.sec.decrypt(wantNum, parsedGen, stream.Data)
					stream.Dict = d.sec.decryptObject(dict, wantNum, parsedGen).(Dict)
				}
			}
			return stream, nil
		}
	}
	if d.sec != nil {
		obj = d.sec.decryptObject(obj, wantNum, parsedGen)
	}
	return obj, nil
}

func (d *Document) streamLength(dict Dict) (int, bool) {
	switch v := dict["Length"].(type) {
	case Integer:
		return int(v), true
	case Ref:
		if n, ok := numeric(d.resolve(v)); ok {
			return int(n), true
		}
	}
	return 0, false
}

// loadFromObjectStream extracts a compressed object. Contained objects were
// encrypted with their container, so no further decryption applies.
func (d *Document) loadFromObjectStream(containerNum, idx, wantNum int) (Object, error) {
	container, err := d.loadObject(containerNum)
	if err != nil {
		return nil, err
	}
	stream, ok := container.(*Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d is not a stream", containerNum)
	}
	plain, err := stream.Decode(d.resolve)
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", containerNum, err)
	}
	n, _ := stream.Dict.integer("N")
	first, _ := stream.Dict.integer("First")

	hl := &lexer{data: plain, pos: 0}
	var offsets [][2]int // num, offset
	for i := int64(0); i < n; i++ {
		numTok := hl.readToken()
		offTok := hl.readToken()
		num, err1 := strconv.Atoi(numTok)
		off, err2 := strconv.Atoi(offTok)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("object stream %d: bad pair %q %q", containerNum, numTok, offTok)
		}
		offsets = append(offsets, [2]int{num, off})
	}
	if idx < 0 || idx >= len(offsets) {
		return nil, fmt.Errorf("object stream %d: index %d out of range", containerNum, idx)
	}
	pair := offsets[idx]
	if pair[0] != wantNum {
		// The index drifted; fall back to a scan for the right number.
		found := false
		for _, p := range offsets {
			if p[0] == wantNum {
				pair = p
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("object %d not present in object stream %d", wantNum, containerNum)
		}
	}
	ol := &lexer{data: plain, pos: int(first) + pair[1]}
	return ol.readObject()
}

func (d *Document) loadPages() error {
	root, ok := d.resolve(d.trailer["Root"]).(Dict)
	if !ok {
		// Repair path: hunt for the catalog directly.
		root = d.findCatalog()
		if root == nil {
			return errors.New("document has no catalog")
		}
	}
	pagesObj := d.resolve(root["Pages"])
	pagesDict, ok := pagesObj.(Dict)
	if !ok {
		return errors.New("catalog has no page tree")
	}
	visited := make(map[int]bool)
	if err := d.walkPages(root["Pages"], pagesDict, inherited{}, visited); err != nil {
		return err
	}
	if len(d.pages) == 0 {
		return errors.New("document has no pages")
	}
	for i, p := range d.pages {
		p.num = i + 1
	}
	return nil
}

func (d *Document) findCatalog() Dict {
	for num := range d.xref.entries {
		obj, err := d.loadObject(num)
		if err != nil {
			continue
		}
		if dict, ok := obj.(Dict); ok {
			if t, _ := dict.name("Type"); t == "Catalog" {
				d.trailer["Root"] = Ref{Num: num}
				return dict
			}
		}
	}
	return nil
}

type inherited struct {
	mediaBox  Array
	resources Object
	rotate    Object
}

func (d *Document) walkPages(refObj Object, node Dict, inh inherited, visited map[int]bool) error {
	if ref, ok := refObj.(Ref); ok {
		if visited[ref.Num] {
			return errors.New("page tree cycle")
		}
		visited[ref.Num] = true
	}
	if mb, ok := d.resolve(node["MediaBox"]).(Array); ok {
		inh.mediaBox = mb
	}
	if res, ok := node["Resources"]; ok {
		inh.resources = res
	}
	if rot, ok := node["Rotate"]; ok {
		inh.rotate = rot
	}
	t, _ := node.name("Type")
	if t == "Page" {
		ref, _ := refObj.(Ref)
		page := &Page{doc: d, ref: ref, dict: cloneDict(node), inh: inh}
		d.pages = append(d.pages, page)
		return nil
	}
	kids, ok := d.resolve(node["Kids"]).(Array)
	if !ok {
		return fmt.Errorf("page tree node missing /Kids")
	}
	for _, kid := range kids {
		kidDict, ok := d.resolve(kid).(Dict)
		if !ok {
			continue
		}
		if err := d.walkPages(kid, kidDict, inh, visited); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) maxObjectNumber() int {
	maxNum := 0
	for num := range d.xref.entries {
		if num > maxNum {
			maxNum = num
		}
	}
	return maxNum
}

func (d *Document) allocNum() int {
	n := d.nextNum
	d.nextNum++
	return n
}
