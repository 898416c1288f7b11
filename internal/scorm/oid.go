package scorm

import (
	"fmt"
	"math"
)

// OID is the pair of identifiers one exported question owns: one for its
// organization item and one for its resource.
type OID struct {
	Item     string
	Resource string
}

// AssignOIDs numbers n questions. The 2n identifiers are distinct and all
// share the zero padded width of the largest one.
func AssignOIDs(n int) []OID {
	if n <= 0 {
		return nil
	}
	width := int(math.Floor(math.Log10(float64(2*n)))) + 1
	out := make([]OID, n)
	for i := range out {
		out[i] = OID{
			Item:     fmt.Sprintf("%0*d", width, 2*i),
			Resource: fmt.Sprintf("%0*d", width, 2*i+1),
		}
	}
	return out
}
