package extractor

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func extractSchema(doc *goquery.Document, p *Page) {
	p.Schema = []SchemaItem{}
	p.SchemaTypes = []string{}
	seen := make(map[string]bool)
	addTypes := func(types []string) {
		for _, t := range types {
			if !seen[t] {
				seen[t] = true
				p.SchemaTypes = append(p.SchemaTypes, t)
			}
		}
	}

	doc.Find("script[type]").Each(func(_ int, s *goquery.Selection) {
		mt := strings.TrimSpace(strings.Split(s.AttrOr("type", ""), ";")[0])
		if !strings.EqualFold(mt, "application/ld+json") {
			return
		}
		raw := strings.TrimSpace(s.Text())
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return
		}
		types := dedupe(collectTypes(v, nil))
		p.Schema = append(p.Schema, SchemaItem{Types: types, Source: "json-ld", RawJSON: raw})
		addTypes(types)

		if strings.Contains(raw, `"datePublished"`) {
			p.Authorship.HasPublished = true
		}
		if strings.Contains(raw, `"dateModified"`) {
			p.Authorship.HasModified = true
		}
	})
	if len(p.SchemaTypes) > 0 {
		return
	}

	// No JSON-LD types: fall back to microdata, then RDFa.
	doc.Find("[itemscope][itemtype]").Each(func(_ int, s *goquery.Selection) {
		types := splitTypes(s.AttrOr("itemtype", ""))
		if len(types) > 0 {
			p.Schema = append(p.Schema, SchemaItem{Types: types, Source: "microdata"})
			addTypes(types)
		}
	})
	doc.Find("[typeof]").Each(func(_ int, s *goquery.Selection) {
		types := splitTypes(s.AttrOr("typeof", ""))
		if len(types) > 0 {
			p.Schema = append(p.Schema, SchemaItem{Types: types, Source: "rdfa"})
			addTypes(types)
		}
	})
}

// collectTypes gathers every @type in a JSON-LD value, descending into @graph and nested nodes.
func collectTypes(v any, acc []string) []string {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			acc = collectTypes(item, acc)
		}
	case map[string]any:
		switch t := node["@type"].(type) {
		case string:
			acc = appendType(acc, t)
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok {
					acc = appendType(acc, s)
				}
			}
		}
		// Sorted keys keep the type order stable.
		for _, key := range slices.Sorted(maps.Keys(node)) {
			if key == "@type" || key == "@context" {
				continue
			}
			acc = collectTypes(node[key], acc)
		}
	}
	return acc
}

func appendType(acc []string, t string) []string {
	if t = schemaTypeName(t); t != "" {
		acc = append(acc, t)
	}
	return acc
}

// schemaTypeName reduces "https://schema.org/Product" and "schema:Product" to "Product".
func schemaTypeName(t string) string {
	t = strings.TrimSpace(t)
	if i := strings.LastIndexAny(t, "/#:"); i >= 0 {
		t = t[i+1:]
	}
	return t
}

func splitTypes(attr string) []string {
	var types []string
	for _, f := range strings.Fields(attr) {
		if t := schemaTypeName(f); t != "" {
			types = append(types, t)
		}
	}
	return dedupe(types)
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
