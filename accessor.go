package delit

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2"

	"github.com/clrtools/delit/cilmeta"
)

// AnalysisStats counts what happened while recovering accessor text, for
// the final report and for logging non-fatal warnings.
type AnalysisStats struct {
	MethodsConsidered   int
	AccessorsSkipped    int
	UsedLookupTable     bool
	TableRecordsSkipped int
}

// decodedRange is the cache key for a decoded payload slice: identical
// (offset, length) pairs decode to the same text every time, which the
// lookup-table path exploits heavily when many records point at
// overlapping spans.
type decodedRange struct {
	offset, length int
}

// AnalyzeAccessors recovers the (name -> literal text) mapping for every
// qualifying accessor method in binding.DecoderType. It takes either the
// instruction-pattern path or, when the type carries a lookup table field,
// the table path.
func AnalyzeAccessors(binding *DecoderBinding) (*AccessorMap, AnalysisStats) {
	am := NewAccessorMap()
	stats := AnalysisStats{}

	cache, err := lru.New[decodedRange, string](256)
	if err != nil {
		// Only returns an error for a non-positive size, which never
		// happens with the fixed constant above.
		panic(err)
	}

	decode := func(offset, length int) (string, bool) {
		if offset < 0 || length < 0 || offset+length > len(binding.Payload) {
			return "", false
		}
		key := decodedRange{offset, length}
		if s, ok := cache.Get(key); ok {
			return s, true
		}
		slice := binding.Payload[offset : offset+length]
		if !utf8.Valid(slice) {
			return "", false
		}
		s := string(slice)
		cache.Add(key, s)
		return s, true
	}

	if binding.TableField != nil {
		stats.UsedLookupTable = true
		stats.TableRecordsSkipped = analyzeLookupTable(binding, decode, am)
		return am, stats
	}

	for _, m := range binding.DecoderType.Methods {
		if !isAccessorCandidate(m) {
			continue
		}
		stats.MethodsConsidered++

		offset, length, ok := recoverOffsetLength(m.Body)
		if !ok {
			stats.AccessorsSkipped++
			log.Debugf("accessor %s: instruction pattern not recognized, skipping", m.Name)
			continue
		}
		text, ok := decode(offset, length)
		if !ok {
			stats.AccessorsSkipped++
			log.Debugf("accessor %s: offset=%d length=%d out of bounds or invalid UTF-8, skipping", m.Name, offset, length)
			continue
		}
		am.Set(m.Name, text)
	}
	return am, stats
}

// isAccessorCandidate applies the four predicates for "is this a
// per-string accessor".
func isAccessorCandidate(m *cilmeta.MethodRef) bool {
	return !m.IsConstructor &&
		m.ParamCount == 0 &&
		m.ReturnSemantic == cilmeta.SemanticTextSequence &&
		m.Body != nil
}

// recoverOffsetLength finds the first call/virtual-call in body and reads
// the three integer-constant loads immediately preceding it, interpreting
// them left-to-right as (index, offset, length). index is required to be
// present and a valid integer constant but is otherwise unused.
func recoverOffsetLength(body *cilmeta.InstructionStream) (offset, length int, ok bool) {
	callIndex := -1
	for i := 0; i < body.Len(); i++ {
		if body.At(i).Opcode.IsCall() {
			callIndex = i
			break
		}
	}
	if callIndex < 3 {
		return 0, 0, false
	}

	vals := make([]int32, 3)
	for k := 0; k < 3; k++ {
		v, isConst := body.At(callIndex - 3 + k).IntConst()
		if !isConst {
			return 0, 0, false
		}
		vals[k] = v
	}
	// vals = (index, offset, length); index is ignored beyond having
	// matched the pattern.
	return int(vals[1]), int(vals[2]), true
}

// analyzeLookupTable implements the table-driven decode path:
// newline-delimited, comma-separated records of the form
// (id, _, _, offset, length). It returns the count of malformed records.
func analyzeLookupTable(binding *DecoderBinding, decode func(offset, length int) (string, bool), am *AccessorMap) (skipped int) {
	raw, ok := binding.TableField.InitialBytes()
	if !ok {
		return 0
	}
	lines := strings.Split(string(raw), "\n")
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			skipped++
			continue
		}
		if fields[0] == "StringID" {
			continue // header record
		}
		id := fields[0]
		offset, err1 := strconv.Atoi(fields[3])
		length, err2 := strconv.Atoi(fields[4])
		if err1 != nil || err2 != nil {
			skipped++
			continue
		}
		text, ok := decode(offset, length)
		if !ok {
			skipped++
			continue
		}
		am.Set("_String_"+id, text)
	}
	return skipped
}
