package scorm

import (
	"fmt"
	"net/url"
	"strings"
)

const refScheme = "scorm:"

// Ref points an external question at a resource of an existing package:
//
//	scorm:<package path>?id=<resource identifier>[;key=value...]
//
// Keys other than id become the launch parameters of the generated item.
type Ref struct {
	Package    string
	ResourceID string
	Params     [][2]string
}

func ParseRef(s string) (Ref, error) {
	var ref Ref
	if !strings.HasPrefix(s, refScheme) {
		return ref, fmt.Errorf("%q is not a %s reference", s, refScheme)
	}
	p, query, _ := strings.Cut(s[len(refScheme):], "?")
	if u, err := url.PathUnescape(p); err == nil {
		p = u
	}
	ref.Package = strings.TrimSpace(p)
	if ref.Package == "" {
		return ref, fmt.Errorf("%q names no package", s)
	}
	for _, kv := range strings.Split(query, ";") {
		k, v, _ := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		switch k {
		case "":
		case "id":
			ref.ResourceID = strings.TrimSpace(v)
		default:
			ref.Params = append(ref.Params, [2]string{k, v})
		}
	}
	if ref.ResourceID == "" {
		return ref, fmt.Errorf("%q names no resource id", s)
	}
	return ref, nil
}

// Parameters renders the launch parameters as an item parameters attribute.
func (r Ref) Parameters() string {
	if len(r.Params) == 0 {
		return ""
	}
	q := make([]string, 0, len(r.Params))
	for _, p := range r.Params {
		q = append(q, url.QueryEscape(p[0])+"="+url.QueryEscape(p[1]))
	}
	return "?" + strings.Join(q, "&")
}
