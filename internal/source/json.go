package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/theory/jsonpath"

	"github.com/amishk599/jobpulse/internal/fingerprint"
	"github.com/amishk599/jobpulse/internal/model"
)

// FieldMap names where each listing field lives inside one array element.
// Values are JSONPath expressions ("$.location.name") or dotted member names
// ("location.name").
type FieldMap struct {
	Title    string `yaml:"title"`
	ID       string `yaml:"id"`
	Location string `yaml:"location"`
	URL      string `yaml:"url"`
}

// JSONExtractor maps a JSON API response to listings.
type JSONExtractor struct {
	listPath *jsonpath.Path
	multi    bool // listPath selects elements rather than one array
	title    *jsonpath.Path
	id       *jsonpath.Path
	location *jsonpath.Path
	url      *jsonpath.Path
	baseURL  *url.URL // resolves relative listing URLs
	link     string   // alert link template with {id}
}

// NewJSONExtractor compiles listPath and the field mapping. A title field is
// required; the others are optional.
func NewJSONExtractor(listPath string, fields FieldMap, baseURL, link string) (*JSONExtractor, error) {
	if fields.Title == "" {
		return nil, fmt.Errorf("json extractor: title field is required")
	}
	e := &JSONExtractor{link: link}

	var err error
	if e.listPath, err = compilePath(listPath); err != nil {
		return nil, fmt.Errorf("json extractor: list path: %w", err)
	}
	if e.listPath == nil {
		e.listPath = jsonpath.MustParse("$")
	}
	e.multi = strings.Contains(listPath, "*") || strings.Contains(listPath, "..")
	if e.title, err = compilePath(fields.Title); err != nil {
		return nil, fmt.Errorf("json extractor: title field: %w", err)
	}
	if e.id, err = compilePath(fields.ID); err != nil {
		return nil, fmt.Errorf("json extractor: id field: %w", err)
	}
	if e.location, err = compilePath(fields.Location); err != nil {
		return nil, fmt.Errorf("json extractor: location field: %w", err)
	}
	if e.url, err = compilePath(fields.URL); err != nil {
		return nil, fmt.Errorf("json extractor: url field: %w", err)
	}
	if baseURL != "" {
		if e.baseURL, err = url.Parse(baseURL); err != nil {
			return nil, fmt.Errorf("json extractor: base url: %w", err)
		}
	}
	return e, nil
}

// compilePath turns a field spec into a JSONPath. Empty means "not mapped".
func compilePath(spec string) (*jsonpath.Path, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	if !strings.HasPrefix(spec, "$") {
		var b strings.Builder
		b.WriteString("$")
		for _, part := range strings.Split(spec, ".") {
			b.WriteString("['")
			b.WriteString(strings.ReplaceAll(part, "'", `\'`))
			b.WriteString("']")
		}
		spec = b.String()
	}
	return jsonpath.Parse(spec)
}

// Extract decodes raw and reads the configured array. A missing array is an
// empty result; a body that is not JSON, or a list path that points at
// something other than an array, is a *model.ParseError.
func (e *JSONExtractor) Extract(raw []byte) (model.Extraction, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return model.Extraction{}, &model.ParseError{Format: "json", Err: err}
	}

	elements, err := e.elements(doc)
	if err != nil {
		return model.Extraction{}, err
	}

	listings := make([]model.Listing, 0, len(elements))
	for _, el := range elements {
		l := model.Listing{
			Title:    fingerprint.Normalize(selectString(e.title, el)),
			ID:       strings.TrimSpace(selectString(e.id, el)),
			Location: fingerprint.Normalize(selectString(e.location, el)),
		}
		if l.Title == "" {
			continue
		}
		l.URL = e.listingURL(selectString(e.url, el), l.ID)
		listings = append(listings, l)
	}

	return model.Extraction{
		Listings: listings,
		Strategy: "json",
		Empty:    len(listings) == 0,
	}, nil
}

func (e *JSONExtractor) elements(doc any) ([]any, error) {
	nodes := e.listPath.Select(doc)
	switch {
	case len(nodes) == 0:
		return nil, nil
	case len(nodes) == 1 && !e.multi:
		switch v := nodes[0].(type) {
		case []any:
			return v, nil
		case nil:
			return nil, nil
		default:
			return nil, &model.ParseError{Format: "json", Err: fmt.Errorf("list path selects %T, want array", v)}
		}
	}
	// A wildcard path such as $.jobs[*] selects the elements themselves.
	return []any(nodes), nil
}

func (e *JSONExtractor) listingURL(raw, id string) string {
	if raw != "" {
		if e.baseURL != nil {
			if ref, err := url.Parse(raw); err == nil {
				return e.baseURL.ResolveReference(ref).String()
			}
		}
		return raw
	}
	if e.link != "" && id != "" && strings.Contains(e.link, "{id}") {
		return strings.ReplaceAll(e.link, "{id}", url.PathEscape(id))
	}
	return ""
}

// selectString returns the first value p selects from el, rendered as text.
func selectString(p *jsonpath.Path, el any) string {
	if p == nil {
		return ""
	}
	nodes := p.Select(el)
	if len(nodes) == 0 {
		return ""
	}
	return renderValue(nodes[0])
}

func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := renderValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		// Location objects usually carry a display name.
		for _, k := range []string{"name", "displayName", "text", "title"} {
			if s, ok := x[k].(string); ok {
				return s
			}
		}
	}
	return ""
}
