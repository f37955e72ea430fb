package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseOptionalFloat 解析可选的数值查询参数，空字符串返回 nil
func ParseOptionalFloat(name, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &value, nil
}
