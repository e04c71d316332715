package leader

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/mosaicdev/chorus/pkg/models"
)

// fencedBlockRe matches a fenced code block, optionally tagged as json.
var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)```")

// decomposedTask is the wire structure the leader is instructed to emit for
// one sub-task. DependsOn is left loosely typed: models routinely emit a mix
// of numbers and numeric strings, which coerceIndices cleans up.
type decomposedTask struct {
	Role      string `json:"role"`
	Title     string `json:"title"`
	Input     string `json:"input"`
	Reason    string `json:"reason"`
	DependsOn []any  `json:"dependsOn"`
}

// decomposition is the top-level wire structure.
type decomposition struct {
	Tasks []decomposedTask `json:"tasks"`
}

// ParseTasks extracts the task list from a possibly prose-wrapped leader
// response. A fenced code block is preferred; otherwise the first top-level
// {...} span in the raw text is used. Parsing the same well-formed response
// twice yields the same tasks.
func ParseTasks(response string) ([]models.SubTask, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return nil, &ParseError{Reason: "no JSON object found in response", RawText: response}
	}

	var parsed decomposition
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, &ParseError{Reason: "unmarshal JSON: " + err.Error(), RawText: response}
	}
	if parsed.Tasks == nil {
		return nil, &ParseError{Reason: `response JSON has no "tasks" array`, RawText: response}
	}
	if len(parsed.Tasks) == 0 {
		return nil, &ParseError{Reason: "empty task list returned", RawText: response}
	}

	tasks := make([]models.SubTask, len(parsed.Tasks))
	for i, dt := range parsed.Tasks {
		tasks[i] = models.SubTask{
			ID:        models.TaskID(i),
			Index:     i,
			Role:      strings.TrimSpace(strings.ToLower(dt.Role)),
			Title:     dt.Title,
			Input:     dt.Input,
			Reason:    dt.Reason,
			DependsOn: coerceIndices(dt.DependsOn),
		}
	}
	return tasks, nil
}

// extractJSON returns the most plausible JSON span in the response: the
// contents of a fenced code block when one holds an object, otherwise the
// first balanced top-level {...} span.
func extractJSON(response string) string {
	for _, match := range fencedBlockRe.FindAllStringSubmatch(response, -1) {
		candidate := strings.TrimSpace(match[1])
		if strings.HasPrefix(candidate, "{") {
			return candidate
		}
	}
	return braceSpan(response)
}

// braceSpan returns the first balanced {...} span in s, or "".
// Braces inside JSON string literals are skipped.
func braceSpan(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// coerceIndices converts a loosely typed dependsOn array to ints, discarding
// entries that are not numeric.
func coerceIndices(raw []any) []int {
	var out []int
	for _, v := range raw {
		switch n := v.(type) {
		case float64:
			out = append(out, int(n))
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				out = append(out, i)
			}
		}
	}
	return out
}
