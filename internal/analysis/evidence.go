package analysis

// Model providers report token probabilities in several shapes: a bare
// number, a (token, probability) pair, or a record with a logprob field.
// Evidence is the tagged form all of them are resolved into at the boundary.

type evidenceKind int

const (
	evidenceScalar evidenceKind = iota
	evidencePair
	evidenceRecord
)

type Evidence struct {
	kind  evidenceKind
	value float64
}

func ScalarEvidence(v float64) Evidence {
	return Evidence{kind: evidenceScalar, value: v}
}

// PairEvidence takes the trailing element of a (token, probability) pair.
func PairEvidence(token string, prob float64) Evidence {
	_ = token
	return Evidence{kind: evidencePair, value: prob}
}

func RecordEvidence(logprob float64) Evidence {
	return Evidence{kind: evidenceRecord, value: logprob}
}

func (e Evidence) Float() float64 {
	return e.value
}

// EvidenceFromRaw converts one decoded JSON item into Evidence. Items that
// match none of the known shapes are reported as not ok and dropped.
func EvidenceFromRaw(item interface{}) (Evidence, bool) {
	switch v := item.(type) {
	case float64:
		return ScalarEvidence(v), true
	case float32:
		return ScalarEvidence(float64(v)), true
	case int:
		return ScalarEvidence(float64(v)), true
	case int64:
		return ScalarEvidence(float64(v)), true
	case []interface{}:
		if len(v) != 2 {
			return Evidence{}, false
		}
		last, ok := numeric(v[1])
		if !ok {
			return Evidence{}, false
		}
		token, _ := v[0].(string)
		return PairEvidence(token, last), true
	case map[string]interface{}:
		raw, ok := v["logprob"]
		if !ok {
			return Evidence{}, false
		}
		lp, ok := numeric(raw)
		if !ok {
			return Evidence{}, false
		}
		return RecordEvidence(lp), true
	default:
		return Evidence{}, false
	}
}

// EvidenceFromRawList converts a heterogeneous list, dropping unknown shapes.
func EvidenceFromRawList(items []interface{}) []Evidence {
	var out []Evidence
	for _, item := range items {
		if ev, ok := EvidenceFromRaw(item); ok {
			out = append(out, ev)
		}
	}
	return out
}

func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func meanEvidence(items []Evidence) (float64, bool) {
	if len(items) == 0 {
		return 0, false
	}
	var sum float64
	for _, e := range items {
		sum += e.Float()
	}
	return sum / float64(len(items)), true
}
