package format

import "net/url"

// SerializeForm flattens submitted form values: a field sent once becomes a
// string, a repeated field a []string in submission order.
func SerializeForm(values url.Values) map[string]any {
	data := make(map[string]any, len(values))
	for key, vs := range values {
		switch len(vs) {
		case 0:
			continue
		case 1:
			data[key] = vs[0]
		default:
			out := make([]string, len(vs))
			copy(out, vs)
			data[key] = out
		}
	}
	return data
}
