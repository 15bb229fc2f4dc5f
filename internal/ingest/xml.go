package ingest

import (
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/RubenCid35/rossete"
	"github.com/RubenCid35/rossete/internal/config"
	"github.com/RubenCid35/rossete/internal/encoding"
	"github.com/RubenCid35/rossete/internal/staging"
)

// decodeXMLDocument parses r into the same generic tree shape jsonField
// already knows how to walk: a child element with no attributes and no
// child elements collapses to its plain text content; everything else
// becomes a map[string]any keyed by child tag name (repeated tags becoming
// a []any) plus "@attr" entries for attributes and "#text" for mixed
// content. This mirrors the decode-to-generic-tree idiom a query engine
// needs, just built directly against encoding/xml instead of a bespoke
// tokenizer.
func decodeXMLDocument(r io.Reader) (any, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, rossete.NewError(rossete.KindParseFailureXML, "empty XML document")
		}
		if err != nil {
			return nil, rossete.WrapError(rossete.KindParseFailureXML, "read XML token", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			val, err := decodeXMLElement(dec, start)
			if err != nil {
				return nil, err
			}
			return map[string]any{start.Name.Local: val}, nil
		}
	}
}

func decodeXMLElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	node := make(map[string]any, len(start.Attr)+1)
	for _, attr := range start.Attr {
		node["@"+attr.Name.Local] = attr.Value
	}
	hasChildren := false
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, rossete.WrapError(rossete.KindParseFailureXML, "read XML token", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			hasChildren = true
			child, err := decodeXMLElement(dec, t)
			if err != nil {
				return nil, err
			}
			key := t.Name.Local
			if existing, ok := node[key]; ok {
				if list, ok := existing.([]any); ok {
					node[key] = append(list, child)
				} else {
					node[key] = []any{existing, child}
				}
			} else {
				node[key] = child
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			trimmed := strings.TrimSpace(text.String())
			if !hasChildren && len(start.Attr) == 0 {
				return trimmed, nil
			}
			if trimmed != "" {
				node["#text"] = trimmed
			}
			return node, nil
		}
	}
}

// xmlRecords walks a "/"-separated element path down the decoded document,
// returning every match of the final segment as one record.
func xmlRecords(root any, iterator string) ([]any, error) {
	segs := strings.Split(strings.Trim(iterator, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return nil, rossete.NewError(rossete.KindParseFailureXML, "empty iterator expression")
	}

	cur := root
	for i, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, rossete.NewError(rossete.KindParseFailureXML, "iterator path does not resolve to an element at "+seg)
		}
		val, ok := m[seg]
		if !ok {
			return nil, rossete.NewError(rossete.KindParseFailureXML, "iterator path missing element "+seg)
		}
		if i == len(segs)-1 {
			if list, ok := val.([]any); ok {
				return list, nil
			}
			return []any{val}, nil
		}
		cur = val
	}
	return nil, rossete.NewError(rossete.KindParseFailureXML, "empty iterator expression")
}

// xmlField evaluates a "."-separated sub-path against one record: "@attr"
// reads an attribute, "#text" the mixed-content text, a plain name a child
// element (itself either text or a nested element map).
func xmlField(record any, field string) (string, bool) {
	cur := record
	if field != "" {
		for _, key := range strings.Split(field, ".") {
			m, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			next, ok := m[key]
			if !ok {
				return "", false
			}
			cur = next
		}
	}
	switch v := cur.(type) {
	case string:
		return v, true
	case map[string]any:
		if t, ok := v["#text"].(string); ok {
			return t, true
		}
		return "", false
	default:
		return "", false
	}
}

func ingestXML(batch *staging.Batch, job Job, spec config.FileSpecs) error {
	f, err := os.Open(job.Source.Source)
	if err != nil {
		return rossete.WrapError(rossete.KindParseFailureXML, "open data source", err)
	}
	defer f.Close()

	decoded, err := encoding.Validated(spec.Encoding, f)
	if err != nil {
		return rossete.WrapError(rossete.KindParseFailureXML, "validate data source encoding", err)
	}

	root, err := decodeXMLDocument(decoded)
	if err != nil {
		return err
	}

	records, err := xmlRecords(root, job.Source.Iterator)
	if err != nil {
		return err
	}

	for _, record := range records {
		values := make([]string, len(job.Raw))
		skip := false
		for i, field := range job.Raw {
			v, ok := xmlField(record, field)
			if !ok {
				skip = true
				break
			}
			values[i] = v
		}
		if skip {
			continue
		}
		if _, err := batch.Insert(values); err != nil {
			return rossete.WrapError(rossete.KindInteractionFailed, "insert staged row", err)
		}
	}
	return nil
}
