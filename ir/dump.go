package ir

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Dump renders an Entry graph as YAML for debugging. Shared and cyclic
// entries are assigned an id on first visit and rendered as "ref#<id>"
// thereafter, so the dump terminates on any graph the walker can produce.
func Dump(e *Entry) (string, error) {
	d := &dumper{ids: map[*Entry]int{}}
	out, err := yaml.Marshal(d.node(e))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

type dumper struct {
	ids  map[*Entry]int
	next int
}

func (d *dumper) node(e *Entry) interface{} {
	if e == nil {
		return nil
	}
	if id, ok := d.ids[e]; ok {
		return fmt.Sprintf("ref#%d", id)
	}
	id := d.next
	d.next++
	d.ids[e] = id

	m := map[string]interface{}{"id": id, "tag": e.Tag.String()}
	switch e.Tag {
	case TagJSON:
		if _, ok := e.JSON.(Undefined); ok {
			m["json"] = "undefined"
		} else {
			m["json"] = e.JSON
		}
	case TagExpr:
		m["expr"] = e.Expr
	case TagRegexp:
		m["regexp"] = fmt.Sprintf("/%s/%s", e.Regexp.Source, e.Regexp.Flags)
	case TagModule:
		m["module"] = e.Module
	case TagPromise:
		m["promise"] = d.node(e.Promise)
	case TagOutput:
		m["output"] = d.node(e.Output)
	case TagArray:
		elems := make(map[int]interface{}, len(e.Array))
		for _, el := range e.Array {
			elems[el.Index] = d.node(el.Value)
		}
		m["array"] = elems
		if e.ArrayLength > 0 {
			m["length"] = e.ArrayLength
		}
	case TagFunction:
		fn := map[string]interface{}{"code": e.Function.Code}
		if e.Function.Name != "" {
			fn["name"] = e.Function.Name
		}
		if e.Function.UsesNonLexicalReceiver {
			fn["usesNonLexicalReceiver"] = true
		}
		if caps := d.slots(e.Function.CapturedValues); len(caps) > 0 {
			fn["captured"] = caps
		}
		if env := d.slots(e.Function.Env); len(env) > 0 {
			fn["env"] = env
		}
		if e.Function.Proto != nil {
			fn["proto"] = d.node(e.Function.Proto)
		}
		m["function"] = fn
	case TagObject:
		obj := map[string]interface{}{}
		if env := d.slots(e.Object.Env); len(env) > 0 {
			obj["env"] = env
		}
		if e.Object.Proto != nil {
			obj["proto"] = d.node(e.Object.Proto)
		}
		if e.Object.Partial {
			obj["partial"] = true
		}
		m["object"] = obj
	}
	return m
}

// slots renders an OrderedMap as a slice of single-pair maps, preserving
// insertion order (a plain Go map would shuffle it in the YAML output).
func (d *dumper) slots(m *OrderedMap) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, m.Len())
	for _, slot := range m.Slots() {
		entry := map[string]interface{}{}
		if slot.Info.IsAccessor() {
			acc := map[string]interface{}{}
			if slot.Info.Get != nil {
				acc["get"] = d.node(slot.Info.Get)
			}
			if slot.Info.Set != nil {
				acc["set"] = d.node(slot.Info.Set)
			}
			entry[slot.Key.String()] = acc
		} else {
			entry[slot.Key.String()] = d.node(slot.Value)
		}
		out = append(out, entry)
	}
	return out
}
