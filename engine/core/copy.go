package core

import (
	"github.com/mohae/deepcopy"
)

// CloneMap returns a deep copy of m. Nil in, nil out.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	copied, ok := deepcopy.Copy(m).(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return copied
}
