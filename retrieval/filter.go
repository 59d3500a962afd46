package retrieval

import (
	"fmt"
)

// ErrInvalidCategory rejects categories outside ValidCategories. It is a
// caller-facing validation error, raised before any retrieval work starts.
type ErrInvalidCategory struct {
	Category string
}

func (e *ErrInvalidCategory) Error() string {
	return fmt.Sprintf("invalid category: %q (valid categories: %v)", e.Category, ValidCategories)
}

// BuildFilter translates category/source/filename conditions into a chroma
// where clause. Category is an exact match against the closed enumeration;
// source and filename are substring matches. Multiple conditions combine
// with $and. No conditions yields nil, meaning no filter.
func BuildFilter(category, source, filename string) (map[string]any, error) {
	var conditions []map[string]any

	if category != "" {
		if !ValidateCategory(category) {
			return nil, &ErrInvalidCategory{Category: category}
		}
		conditions = append(conditions, map[string]any{
			"category": map[string]any{"$eq": category},
		})
	}

	if source != "" {
		conditions = append(conditions, map[string]any{
			"source": map[string]any{"$contains": source},
		})
	}

	if filename != "" {
		conditions = append(conditions, map[string]any{
			"filename": map[string]any{"$contains": filename},
		})
	}

	if len(conditions) == 0 {
		return nil, nil
	}
	if len(conditions) == 1 {
		return conditions[0], nil
	}
	return map[string]any{"$and": conditions}, nil
}
