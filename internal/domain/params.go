package domain

// Params — свободные параметры задачи из конфигурации.
//
// Конфигурация слаботипизирована (YAML), поэтому доступ идёт через
// аксессоры со значением по умолчанию. Числа из YAML могут приходить
// как int или float64 — аксессоры приводят оба варианта.
type Params map[string]any

// String извлекает строковый параметр.
func (p Params) String(key, defaultVal string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

// Int извлекает целочисленный параметр.
func (p Params) Int(key string, defaultVal int) int {
	if v, ok := p[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return defaultVal
}

// Float извлекает числовой параметр.
func (p Params) Float(key string, defaultVal float64) float64 {
	if v, ok := p[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return defaultVal
}

// Bool извлекает булев параметр.
func (p Params) Bool(key string, defaultVal bool) bool {
	if v, ok := p[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// StringSlice извлекает список строк.
func (p Params) StringSlice(key string) []string {
	v, ok := p[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		result := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	}
	return nil
}

// Has проверяет наличие параметра.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}
