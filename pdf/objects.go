package pdf

import (
	"bytes"
	"fmt"
	"strconv"
)

// Object is any value of the document's object model.
type Object interface{}

type (
	Name    string
	Integer int64
	Real    float64
	Boolean bool
	Null    struct{}

	// String holds decoded (and, for encrypted files, decrypted) bytes.
	String []byte

	Array []Object
	Dict  map[Name]Object

	// Ref is an indirect reference.
	Ref struct{ Num, Gen int }
)

// Stream couples a dictionary with its encoded stream bytes. Data is kept in
// its filtered form; Decode produces the plain bytes.
type Stream struct {
	Dict Dict
	Data []byte
}

func (d Dict) name(key Name) (Name, bool) {
	n, ok := d[key].(Name)
	return n, ok
}

func (d Dict) integer(key Name) (int64, bool) {
	switch v := d[key].(type) {
	case Integer:
		return int64(v), true
	case Real:
		return int64(v), true
	}
	return 0, false
}

func numeric(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// writeObject serializes an object body in file syntax.
func writeObject(buf *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Boolean:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Integer:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case Real:
		buf.WriteString(formatFloat(float64(v)))
	case Name:
		writeName(buf, v)
	case String:
		writeString(buf, v)
	case Ref:
		fmt.Fprintf(buf, "%d %d R", v.Num, v.Gen)
	case Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeObject(buf, item)
		}
		buf.WriteByte(']')
	case Dict:
		writeDict(buf, v)
	case *Stream:
		s := *v
		s.Dict = cloneDict(v.Dict)
		s.Dict["Length"] = Integer(len(v.Data))
		writeDict(buf, s.Dict)
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	default:
		buf.WriteString("null")
	}
}

func writeDict(buf *bytes.Buffer, d Dict) {
	buf.WriteString("<<")
	for _, key := range sortedKeys(d) {
		buf.WriteByte(' ')
		writeName(buf, key)
		buf.WriteByte(' ')
		writeObject(buf, d[key])
	}
	buf.WriteString(" >>")
}

func writeName(buf *bytes.Buffer, n Name) {
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c <= ' ' || c > '~' || bytes.IndexByte([]byte("/%()<>[]{}#"), c) >= 0 {
			fmt.Fprintf(buf, "#%02X", c)
		} else {
			buf.WriteByte(c)
		}
	}
}

// writeString always emits hex form: it is binary-safe and needs no escape
// table.
func writeString(buf *bytes.Buffer, s String) {
	buf.WriteByte('<')
	const hexdigits = "0123456789ABCDEF"
	for _, b := range s {
		buf.WriteByte(hexdigits[b>>4])
		buf.WriteByte(hexdigits[b&0xf])
	}
	buf.WriteByte('>')
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 5, 64)
	s = trimTrailingZeros(s)
	return s
}

func trimTrailingZeros(s string) string {
	if !bytes.ContainsRune([]byte(s), '.') {
		return s
	}
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}

func sortedKeys(d Dict) []Name {
	keys := make([]Name, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func cloneDict(d Dict) Dict {
	out := make(Dict, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
