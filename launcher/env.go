package launcher

import (
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// BuildEnvironment 当前进程的环境变量加上用户的覆盖项，重复的key记录日志后以用户的为准
func BuildEnvironment(overrides map[string]string, log *logrus.Entry) []string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	for key, value := range overrides {
		if old, ok := env[key]; ok {
			log.Warnf("[Launch] env %s is duplicated, %q is replaced by %q", key, old, value)
		}
		env[key] = value
	}

	result := make([]string, 0, len(env))
	for key, value := range env {
		result = append(result, key+"="+value)
	}
	sort.Strings(result)
	return result
}
