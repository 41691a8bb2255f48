package utils

import (
	"math"
	"strconv"

	"github.com/claimstream/edi-fixtures/conf"
	"github.com/sirupsen/logrus"
)

// FromEnv always returns a string that is either a non-empty value for the
// configuration key or the string otherwise
func FromEnv(key, otherwise string) string {
	s := conf.GetEnv(key)
	if s == "" {
		logrus.Infof(`No %s value; using %s instead.`, key, otherwise)
		return otherwise
	}
	return s
}

func GetEnvInt(varName string, defaultVal int) int {
	v := conf.GetEnv(varName)
	if v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultVal
}

// ContainsString returns true if `os` is in the array `sa` and false if it is not.
func ContainsString(sa []string, os string) bool {
	for _, s := range sa {
		if s == os {
			return true
		}
	}
	return false
}

// RoundCents rounds a dollar amount to two decimal places. Monetary fields in
// the generated segments carry at most cent precision.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
