package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

type xrefEntry struct {
	offset     int64
	generation int
	free       bool
	// compressed objects live inside an object stream
	inStream  bool
	streamNum int
	streamIdx int
}

type xrefTable struct {
	entries map[int]xrefEntry
	trailer Dict
}

// parseXRef locates the cross-reference data and follows the /Prev chain,
// merging sections first-seen-wins. A failure to find or parse any section
// falls back to a full-file repair scan.
func parseXRef(data []byte) (*xrefTable, error) {
	table := &xrefTable{entries: make(map[int]xrefEntry), trailer: make(Dict)}
	start, err := findStartXRef(data)
	if err != nil {
		return repairScan(data)
	}

	visited := make(map[int64]bool)
	offset := start
	for offset > 0 && offset < int64(len(data)) {
		if visited[offset] {
			break
		}
		visited[offset] = true
		next, err := parseXRefSection(data, offset, table)
		if err != nil {
			return repairScan(data)
		}
		offset = next
	}
	if len(table.entries) == 0 {
		return repairScan(data)
	}
	return table, nil
}

func findStartXRef(data []byte) (int64, error) {
	tail := data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, errors.New("startxref not found")
	}
	l := &lexer{data: tail, pos: idx + len("startxref")}
	tok := l.readToken()
	off, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid startxref offset %q", tok)
	}
	return off, nil
}

// parseXRefSection reads one section (classic table or xref stream) at the
// offset, merges its entries, and returns the /Prev offset (0 when done).
func parseXRefSection(data []byte, offset int64, table *xrefTable) (int64, error) {
	l := &lexer{data: data, pos: int(offset)}
	l.skipWhitespace()
	if bytes.HasPrefix(data[l.pos:], []byte("xref")) {
		l.pos += 4
		return parseClassicTable(data, l, table)
	}
	return parseXRefStream(data, l, table)
}

func parseClassicTable(data []byte, l *lexer, table *xrefTable) (int64, error) {
	for {
		l.skipWhitespace()
		if bytes.HasPrefix(data[l.pos:], []byte("trailer")) {
			l.pos += len("trailer")
			break
		}
		startTok := l.readToken()
		countTok := l.readToken()
		start, err1 := strconv.Atoi(startTok)
		count, err2 := strconv.Atoi(countTok)
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("bad xref subsection header %q %q", startTok, countTok)
		}
		for i := 0; i < count; i++ {
			offTok := l.readToken()
			genTok := l.readToken()
			kindTok := l.readToken()
			off, err1 := strconv.ParseInt(offTok, 10, 64)
			gen, err2 := strconv.Atoi(genTok)
			if err1 != nil || err2 != nil || (kindTok != "n" && kindTok != "f") {
				return 0, fmt.Errorf("bad xref entry %q %q %q", offTok, genTok, kindTok)
			}
			num := start + i
			if _, seen := table.entries[num]; seen {
				continue
			}
			table.entries[num] = xrefEntry{offset: off, generation: gen, free: kindTok == "f"}
		}
	}
	trailerObj, err := l.readObject()
	if err != nil {
		return 0, fmt.Errorf("trailer: %w", err)
	}
	trailer, ok := trailerObj.(Dict)
	if !ok {
		return 0, errors.New("trailer is not a dictionary")
	}
	mergeTrailer(table, trailer)

	// Hybrid files keep newer entries in a parallel xref stream.
	if stm, ok := trailer.integer("XRefStm"); ok {
		sl := &lexer{data: data, pos: int(stm)}
		if _, err := parseXRefStream(data, sl, table); err != nil {
			return 0, err
		}
	}
	if prev, ok := trailer.integer("Prev"); ok {
		return prev, nil
	}
	return 0, nil
}

func parseXRefStream(data []byte, l *lexer, table *xrefTable) (int64, error) {
	// "num gen obj" header
	if _, err := strconv.Atoi(l.readToken()); err != nil {
		return 0, fmt.Errorf("xref stream header: %w", err)
	}
	if _, err := strconv.Atoi(l.readToken()); err != nil {
		return 0, fmt.Errorf("xref stream header: %w", err)
	}
	if err := l.expectKeyword("obj"); err != nil {
		return 0, err
	}
	obj, err := l.readObject()
	if err != nil {
		return 0, err
	}
	dict, ok := obj.(Dict)
	if !ok {
		return 0, errors.New("xref stream object is not a stream")
	}
	if t, _ := dict.name("Type"); t != "XRef" {
		return 0, fmt.Errorf("expected /Type /XRef, got /%s", t)
	}
	l.skipWhitespace()
	if err := l.expectKeyword("stream"); err != nil {
		return 0, err
	}
	l.skipStreamEOL()
	length, ok := dict.integer("Length")
	if !ok || l.pos+int(length) > len(data) {
		return 0, errors.New("xref stream length invalid")
	}
	stream := &Stream{Dict: dict, Data: data[l.pos : l.pos+int(length)]}
	plain, err := stream.Decode(func(o Object) Object { return o })
	if err != nil {
		return 0, fmt.Errorf("decode xref stream: %w", err)
	}

	wArr, ok := dict["W"].(Array)
	if !ok || len(wArr) < 3 {
		return 0, errors.New("xref stream missing /W")
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		v, ok := numeric(wArr[i])
		if !ok {
			return 0, errors.New("xref stream /W not numeric")
		}
		w[i] = int(v)
	}
	size, _ := dict.integer("Size")
	index := []int64{0, size}
	if idxArr, ok := dict["Index"].(Array); ok {
		index = index[:0]
		for _, item := range idxArr {
			v, ok := numeric(item)
			if !ok {
				return 0, errors.New("xref stream /Index not numeric")
			}
			index = append(index, int64(v))
		}
	}

	rowLen := w[0] + w[1] + w[2]
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := int64(0); j < count && pos+rowLen <= len(plain); j++ {
			row := plain[pos : pos+rowLen]
			pos += rowLen
			kind := int64(1)
			if w[0] > 0 {
				kind = beInt(row[:w[0]])
			}
			f2 := beInt(row[w[0] : w[0]+w[1]])
			f3 := beInt(row[w[0]+w[1]:])
			num := int(start + j)
			if _, seen := table.entries[num]; seen {
				continue
			}
			switch kind {
			case 0:
				table.entries[num] = xrefEntry{free: true, generation: int(f3)}
			case 1:
				table.entries[num] = xrefEntry{offset: f2, generation: int(f3)}
			case 2:
				table.entries[num] = xrefEntry{inStream: true, streamNum: int(f2), streamIdx: int(f3)}
			}
		}
	}
	mergeTrailer(table, dict)
	if prev, ok := dict.integer("Prev"); ok {
		return prev, nil
	}
	return 0, nil
}

func beInt(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

func mergeTrailer(table *xrefTable, d Dict) {
	for _, key := range []Name{"Root", "Info", "Encrypt", "ID", "Size"} {
		if _, have := table.trailer[key]; !have {
			if v, ok := d[key]; ok {
				table.trailer[key] = v
			}
		}
	}
}

// repairScan rebuilds the table by scanning for "N G obj" headers, keeping
// the last occurrence of each object number so appended revisions win.
func repairScan(data []byte) (*xrefTable, error) {
	table := &xrefTable{entries: make(map[int]xrefEntry), trailer: make(Dict)}
	for pos := 0; pos < len(data); {
		idx := bytes.Index(data[pos:], []byte(" obj"))
		if idx < 0 {
			break
		}
		objAt := pos + idx
		// Walk backwards over "N G".
		lineStart := objAt
		for lineStart > 0 && lineStart > objAt-64 {
			c := data[lineStart-1]
			if (c < '0' || c > '9') && c != ' ' {
				break
			}
			lineStart--
		}
		fields := bytes.Fields(data[lineStart:objAt])
		if len(fields) >= 2 {
			num, err1 := strconv.Atoi(string(fields[len(fields)-2]))
			gen, err2 := strconv.Atoi(string(fields[len(fields)-1]))
			if err1 == nil && err2 == nil {
				headStart := objAt
				for headStart > lineStart && data[headStart-1] != '\n' && data[headStart-1] != '\r' {
					headStart--
				}
				// Re-verify the header begins the line.
				head := bytes.TrimLeft(data[headStart:objAt], " ")
				if len(bytes.Fields(head)) == 2 {
					table.entries[num] = xrefEntry{offset: int64(headStart), generation: gen}
				}
			}
		}
		pos = objAt + 4
	}
	if len(table.entries) == 0 {
		return nil, errors.New("no objects found during repair scan")
	}
	// Recover a trailer dictionary for /Root.
	if idx := bytes.LastIndex(data, []byte("trailer")); idx >= 0 {
		l := &lexer{data: data, pos: idx + len("trailer")}
		if obj, err := l.readObject(); err == nil {
			if d, ok := obj.(Dict); ok {
				mergeTrailer(table, d)
			}
		}
	}
	return table, nil
}
