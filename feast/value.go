package feast

import (
	"fmt"
	"strconv"
)

// fromSDKValue 将 SDK 的值归一化为 Go 原生类型：
// 数值统一为 float64，布尔映射为 1/0，字节串转字符串；
// 无法识别的类型先格式化再尝试按数字解析。
func fromSDKValue(val interface{}) interface{} {
	if val == nil {
		return nil
	}

	switch v := val.(type) {
	case string:
		return v
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case int:
		return float64(v)
	case float64:
		return v
	case float32:
		return float64(v)
	case bool:
		if v {
			return float64(1)
		}
		return float64(0)
	case []byte:
		return string(v)
	default:
		s := fmt.Sprintf("%v", val)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	}
}
