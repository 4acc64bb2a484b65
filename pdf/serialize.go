package pdf

import (
	"bytes"
	"fmt"
	"sort"
)

// Serialize writes the instance back out as a complete file: every original
// object (decrypted, with page mutations applied) plus the objects created
// by drawing. Object streams are unpacked into regular objects and any
// decorative encryption is dropped, so the output opens everywhere.
func (d *Document) Serialize() ([]byte, error) {
	if err := d.applyPageMutations(); err != nil {
		return nil, err
	}

	written := make(map[int]int64)
	var out bytes.Buffer
	out.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	for _, num := range d.objectNumbers() {
		obj, ok := d.objectForOutput(num)
		if !ok {
			continue
		}
		written[num] = int64(out.Len())
		fmt.Fprintf(&out, "%d 0 obj\n", num)
		writeObject(&out, obj)
		out.WriteString("\nendobj\n")
	}
	if len(written) == 0 {
		return nil, fmt.Errorf("nothing to serialize")
	}

	maxNum := 0
	for num := range written {
		if num > maxNum {
			maxNum = num
		}
	}
	xrefOffset := int64(out.Len())
	fmt.Fprintf(&out, "xref\n0 %d\n", maxNum+1)
	out.WriteString("0000000000 65535 f \n")
	for num := 1; num <= maxNum; num++ {
		if off, ok := written[num]; ok {
			fmt.Fprintf(&out, "%010d 00000 n \n", off)
		} else {
			out.WriteString("0000000000 65535 f \n")
		}
	}

	trailer := Dict{"Size": Integer(maxNum + 1)}
	for _, key := range []Name{"Root", "Info", "ID"} {
		if v, ok := d.trailer[key]; ok {
			trailer[key] = v
		}
	}
	out.WriteString("trailer\n")
	writeDict(&out, trailer)
	fmt.Fprintf(&out, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return out.Bytes(), nil
}

// objectNumbers returns every object number that may appear in the output,
// ascending.
func (d *Document) objectNumbers() []int {
	seen := make(map[int]bool)
	for num, entry := range d.xref.entries {
		if !entry.free && num > 0 {
			seen[num] = true
		}
	}
	for num := range d.newObjs {
		seen[num] = true
	}
	nums := make([]int, 0, len(seen))
	for num := range seen {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	return nums
}

// objectForOutput loads an object for writing. Cross-reference streams and
// object-stream containers are dropped: their data is re-expressed as the
// classic table and plain objects. Unloadable objects are skipped; whatever
// referenced them was already broken in the input.
func (d *Document) objectForOutput(num int) (Object, bool) {
	if obj, ok := d.newObjs[num]; ok {
		return obj, true
	}
	obj, err := d.loadObject(num)
	if err != nil {
		return nil, false
	}
	if _, isNull := obj.(Null); isNull {
		return nil, false
	}
	if stream, ok := obj.(*Stream); ok {
		switch t, _ := stream.Dict.name("Type"); t {
		case "XRef", "ObjStm":
			return nil, false
		}
	}
	return obj, true
}

func (d *Document) applyPageMutations() error {
	for _, p := range d.pages {
		if !p.dirty() {
			continue
		}
		if p.ref.Num == 0 {
			return fmt.Errorf("page %d has no indirect reference", p.num)
		}

		csNum := d.allocNum()
		d.newObjs[csNum] = &Stream{
			Dict: Dict{"Filter": Name("FlateDecode")},
			Data: flateCompress(p.content.Bytes()),
		}

		pd := cloneDict(p.dict)
		switch c := pd["Contents"].(type) {
		case Array:
			pd["Contents"] = append(append(Array{}, c...), Ref{Num: csNum})
		case nil:
			pd["Contents"] = Ref{Num: csNum}
		default:
			pd["Contents"] = Array{c, Ref{Num: csNum}}
		}

		res := d.effectiveResources(p)
		fontDict := asDict(d.resolve(res["Font"]))
		fontDict = cloneDict(fontDict)
		for family, name := range p.fontRes {
			ef := d.embeddedByFamily(family)
			if ef == nil {
				return fmt.Errorf("page %d references unembedded family %q", p.num, family)
			}
			fontDict[name] = ef.buildObjects(d)
		}
		if len(fontDict) > 0 {
			res["Font"] = fontDict
		}

		if len(p.imageRes) > 0 {
			xobjDict := cloneDict(asDict(d.resolve(res["XObject"])))
			for i, name := range p.imageRes {
				xobjDict[name] = p.imageObjs[i]
			}
			res["XObject"] = xobjDict
		}
		pd["Resources"] = res

		d.newObjs[p.ref.Num] = pd
	}
	return nil
}

// effectiveResources returns a mutable copy of the page's resources,
// falling back to the inherited dictionary.
func (d *Document) effectiveResources(p *Page) Dict {
	if res, ok := d.resolve(p.dict["Resources"]).(Dict); ok {
		return cloneDict(res)
	}
	if res, ok := d.resolve(p.inh.resources).(Dict); ok {
		return cloneDict(res)
	}
	return make(Dict)
}

func (d *Document) embeddedByFamily(family string) *EmbeddedFont {
	for _, ef := range d.embedded {
		if ef.family == family {
			return ef
		}
	}
	return nil
}
