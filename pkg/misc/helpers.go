package misc

import (
	"strconv"

	"github.com/sondewatch/client/pkg/log"
	"go.uber.org/zap"
)

func ParseFloat(inStr string, defVal float64, argument string) float64 {
	parsedValue, err := strconv.ParseFloat(inStr, 64)
	if err != nil {
		log.Warn("bad value",
			zap.String("argument", argument),
			zap.String("value", inStr),
		)
		return defVal
	}
	return parsedValue
}
