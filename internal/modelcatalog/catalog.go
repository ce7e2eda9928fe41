package modelcatalog

import (
	"fmt"
	"sort"
	"strings"
)

// ID is a model identifier understood by the completion endpoint.
type ID string

const (
	GPTTurbo ID = "gpt-3.5-turbo"
)

// Upstream is the identifier placed in every request. The --model selection is
// validated against the catalog but never replaces it.
const Upstream = GPTTurbo

// Default is the selection used when --model is not given.
const Default = GPTTurbo

var labels = map[ID]string{
	GPTTurbo: "gpt_turbo",
}

// Label returns the display name shown in help output.
func (id ID) Label() string {
	if label, ok := labels[id]; ok {
		return label
	}
	return string(id)
}

func (id ID) String() string {
	return id.Label()
}

// Parse accepts either a display label ("gpt_turbo") or an identifier ("gpt-3.5-turbo").
func Parse(value string) (ID, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for id, label := range labels {
		if v == label || v == string(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown model %q (choose from %s)", value, strings.Join(Labels(), ", "))
}

// Labels lists the display names in sorted order.
func Labels() []string {
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
