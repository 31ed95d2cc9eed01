// Package merge reconciles a translated properties file against its source,
// equivalent to the sort step of the i18n workflow.
package merge

import (
	"bytes"

	"github.com/minios-linux/propkit/propfile"
)

// Result is the outcome of a reconciliation.
type Result struct {
	// Lines is the rewritten file content, one element per line.
	Lines []string
	// Missing lists reference keys with no value in the target, in the order
	// they first appear in the reference.
	Missing []string
}

// Bytes returns Lines as file content.
func (r *Result) Bytes() []byte {
	return propfile.MarshalLines(r.Lines)
}

// Reconcile rewrites target in the order and structure of ref.
//   - Comment and blank lines of ref are kept verbatim.
//   - Each entry of ref becomes key=<target value>.
//   - Continuation lines of ref are dropped; the target value is written instead.
//   - Entries only present in target are dropped.
func Reconcile(ref *propfile.Document, target *propfile.Map) *Result {
	res := &Result{Lines: make([]string, 0, len(ref.Lines))}
	reported := make(map[string]bool)

	for _, ln := range ref.Lines {
		switch ln.Kind {
		case propfile.LineBlank, propfile.LineComment:
			res.Lines = append(res.Lines, ln.Raw)

		case propfile.LineContinuation:
			continue

		case propfile.LineEntry:
			if v, ok := target.Get(ln.Key); ok {
				res.Lines = append(res.Lines, ln.Key+"="+v)
				continue
			}
			if !reported[ln.Key] {
				reported[ln.Key] = true
				res.Missing = append(res.Missing, ln.Key)
			}
		}
	}

	return res
}

// AppendMissing appends key=value lines for keys to the raw file content
// data. A newline is inserted first when data does not end with one.
func AppendMissing(data []byte, keys []string, values *propfile.Map) []byte {
	var buf bytes.Buffer
	buf.Write(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		buf.WriteByte('\n')
	}
	for _, k := range keys {
		v, _ := values.Get(k)
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Replace rewrites doc with new values for the keys present in values.
// Continuation lines belonging to a replaced entry are dropped; every other
// line is kept as written.
func Replace(doc *propfile.Document, values *propfile.Map) []string {
	out := make([]string, 0, len(doc.Lines))
	replacing := false

	for _, ln := range doc.Lines {
		switch ln.Kind {
		case propfile.LineEntry:
			if v, ok := values.Get(ln.Key); ok {
				out = append(out, ln.Key+"="+v)
				replacing = true
				continue
			}
			replacing = false

		case propfile.LineContinuation:
			if replacing {
				continue
			}
		}
		out = append(out, ln.Raw)
	}

	return out
}
