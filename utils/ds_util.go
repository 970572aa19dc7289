package utils

import (
	"strings"

	"github.com/emirpasic/gods/sets/linkedhashset"
)

// Distinct 去重并保持原有顺序，空白字符串会被丢弃
func Distinct(list []string) []string {
	set := linkedhashset.New()
	for _, value := range list {
		if strings.TrimSpace(value) == "" {
			continue
		}
		set.Add(value)
	}
	result := make([]string, 0, set.Size())
	for _, value := range set.Values() {
		result = append(result, value.(string))
	}
	return result
}
